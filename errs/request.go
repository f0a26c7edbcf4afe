package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	Unauthorized = NewApiErr(http.StatusUnauthorized, "unauthorized")
)

// Authentication & Authorization Errors
var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
	ErrNotAdmin     = errors.New("admin privileges required")
)

// Content-block validation errors
var (
	ErrInvalidBlockType  = errors.New("invalid block type")
	ErrInvalidBlockField = errors.New("invalid block field")
)

// Image upload errors
var (
	ErrUnsupportedImageType = errors.New("unsupported image type")
)

func Malformed(payloadName string) *ApiErr {
	return NewApiErr(http.StatusBadRequest, payloadName+" malformed")
}

func BadRequest(message string) *ApiErr {
	return NewApiErr(http.StatusBadRequest, message)
}

func NewMissingTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrMissingToken,
		Details:    "Missing access token",
		Field:      "authorization",
	}
}

func NewInvalidTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrInvalidToken,
		Details:    "Invalid access token",
		Field:      "authorization",
	}
}

func NewNotAdminError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        ErrNotAdmin,
		Details:    "This operation requires an admin token",
		Field:      "authorization",
	}
}

// NewInvalidBlockTypeError reports a content block whose variant tag is
// missing or unrecognized. index is the position of the offending block.
func NewInvalidBlockTypeError(index int, blockType string) *ApiErr {
	details := fmt.Sprintf("Block %d has unknown type %q", index, blockType)
	if blockType == "" {
		details = fmt.Sprintf("Block %d is missing a type", index)
	}
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidBlockType,
		Details:    details,
		Field:      fmt.Sprintf("content[%d].type", index),
	}
}

// NewInvalidBlockFieldError reports a content block whose declared variant
// is known but whose fields fail that variant's rules.
func NewInvalidBlockFieldError(index int, field, reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidBlockField,
		Details:    fmt.Sprintf("Block %d: %s", index, reason),
		Field:      fmt.Sprintf("content[%d].%s", index, field),
	}
}

func NewUnsupportedImageTypeError(extension string, allowed []string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrUnsupportedImageType,
		Details:    fmt.Sprintf("Extension %q is not allowed. Allowed: %s", extension, strings.Join(allowed, ", ")),
		Field:      "filename",
	}
}

func IsMissingTokenError(err error) bool {
	return errors.Is(err, ErrMissingToken)
}

func IsInvalidTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsInvalidBlockTypeError(err error) bool {
	return errors.Is(err, ErrInvalidBlockType)
}

func IsInvalidBlockFieldError(err error) bool {
	return errors.Is(err, ErrInvalidBlockField)
}

func IsUnsupportedImageTypeError(err error) bool {
	return errors.Is(err, ErrUnsupportedImageType)
}
