package errors

// ErrorDetail is the machine-readable portion of an ErrorResponse.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Hint    string                 `json:"hint,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the wire projection of an error, embedded in webhook
// payloads and returned by API collaborators.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// NewErrorResponse projects an error into its wire form.
func NewErrorResponse(err error) *ErrorResponse {
	if err == nil {
		return nil
	}
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    ErrorCode(err),
			Message: err.Error(),
			Hint:    Hint(err),
			Details: ReportableDetails(err),
		},
	}
}
