package api

import (
	"context"
	"errors"
)

type keyType string

const (
	adminIDKey keyType = "adminID"
)

// ctxWithAdminID records the verified admin identity on the request context
func ctxWithAdminID(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, adminIDKey, adminID)
}

// ctxGetAdminID retrieves the verified admin identity from the context
func ctxGetAdminID(ctx context.Context) (string, error) {
	ctxValue := ctx.Value(adminIDKey)
	if ctxValue == nil {
		return "", errors.New("admin identity not found in context")
	}
	asString, ok := ctxValue.(string)
	if !ok {
		return "", errors.New("admin identity is not of type `string`")
	}
	return asString, nil
}
