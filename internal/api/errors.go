package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// ErrResponse is the JSON error body.
type ErrResponse struct {
	HTTPStatusCode int          `json:"-"`
	Error          string       `json:"error"`
	Fields         []FieldError `json:"fields,omitempty"`
	Source         string       `json:"source,omitempty"`
}

// FieldError names one invalid input.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func badRequest(msg string) *ErrResponse {
	return &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Error: msg}
}

// errorResponse maps the error taxonomy onto status codes: invalid input is
// 400, an upstream failure is 502, a timeout is 504.
func errorResponse(err error) *ErrResponse {
	var verrs domain.ValidationErrors
	var verr *domain.ValidationError
	var up *domain.UpstreamError

	switch {
	case errors.As(err, &verrs):
		resp := &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Error: "invalid input"}
		for _, v := range verrs {
			resp.Fields = append(resp.Fields, FieldError{Field: v.Field, Reason: v.Reason})
		}
		return resp
	case errors.As(err, &verr):
		return &ErrResponse{
			HTTPStatusCode: http.StatusBadRequest,
			Error:          "invalid input",
			Fields:         []FieldError{{Field: verr.Field, Reason: verr.Reason}},
		}
	case errors.Is(err, context.DeadlineExceeded):
		// a provider that ran out the request deadline is a timeout, not a bad gateway
		resp := &ErrResponse{HTTPStatusCode: http.StatusGatewayTimeout, Error: "analysis timed out"}
		if errors.As(err, &up) {
			resp.Source = up.Source
		}
		return resp
	case errors.As(err, &up):
		return &ErrResponse{HTTPStatusCode: http.StatusBadGateway, Error: up.Error(), Source: up.Source}
	default:
		return &ErrResponse{HTTPStatusCode: http.StatusInternalServerError, Error: "internal error"}
	}
}
