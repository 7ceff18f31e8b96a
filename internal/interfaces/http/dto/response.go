package dto

import (
	"net/url"
	"strconv"

	"github.com/estudiomd/backoffice/internal/domain/shared"
)

// ErrorResponse is the body of every failed request. Fields carries
// field-keyed messages when the failure is tied to request fields.
type ErrorResponse struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
	Fields    map[string][]string `json:"fields,omitempty"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message, requestID string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message, RequestID: requestID}
}

// NewValidationErrorResponse creates a 400 body with field messages
func NewValidationErrorResponse(message, requestID string, fields map[string][]string) ErrorResponse {
	return ErrorResponse{
		Code:      ErrCodeValidation,
		Message:   message,
		RequestID: requestID,
		Fields:    fields,
	}
}

// ListResponse is the pagination envelope of list endpoints. Next and
// Previous are absolute URLs or null.
type ListResponse[T any] struct {
	Results  []T     `json:"results"`
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// NewListResponse wraps a page. self is the absolute URL of the current
// request; its query is kept and only the page parameter changes.
func NewListResponse[T any](p shared.Paginated[T], self *url.URL) ListResponse[T] {
	resp := ListResponse[T]{
		Results: p.Items,
		Count:   p.Total,
	}
	if resp.Results == nil {
		resp.Results = []T{}
	}
	if p.HasNext() {
		next := PageURL(self, p.Page+1)
		resp.Next = &next
	}
	if p.HasPrevious() {
		prev := PageURL(self, p.Page-1)
		resp.Previous = &prev
	}
	return resp
}

// PageURL returns self pointing at page. Page 1 drops the parameter.
func PageURL(self *url.URL, page int) string {
	u := *self
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// StatusResponse is returned by the health endpoints
type StatusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
