package api

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	blogHandler   blogHandler
	uploadHandler uploadHandler
	assetHandler  assetHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"content[0].type"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}
