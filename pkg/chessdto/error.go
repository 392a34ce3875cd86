package chessdto

import (
	"fmt"
	"net/http"
)

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// APIError is returned by the client when the server answers with an error.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chess api: %d %s", e.Status, e.Message)
	}
	if text := http.StatusText(e.Status); text != "" {
		return fmt.Sprintf("chess api: %d %s", e.Status, text)
	}
	return fmt.Sprintf("chess api: status %d", e.Status)
}

// Temporary reports whether retrying the request may help.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}
