package handlers

// ErrorResponse is the standard API error body (message only). Internal
// failure detail never appears here.
type ErrorResponse struct {
	Message string `json:"message"`
}
