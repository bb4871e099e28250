// Package response writes the uniform envelope every endpoint returns:
// trace id, a two-digit result code, a caller-safe message, the payload,
// optional paging, and request timing.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/middleware"
)

const (
	CodeOK             = "00"
	CodeBadRequest     = "01" // validation failures and missing resources
	CodeUnauthorized   = "02"
	CodeForbidden      = "03"
	CodeNotPermitted   = "04" // state-machine and limit violations
	CodeRateLimited    = "05"
	CodeConflict       = "08"
	CodeInternalError  = "10"
	CodeUnknownFailure = "99"
)

type Paging struct {
	Size        int `json:"size"`
	TotalPage   int `json:"total_page"`
	CurrentPage int `json:"current_page"`
	Total       int `json:"total"`
}

// NewPaging computes page math for a listing result.
func NewPaging(page, limit, total int) *Paging {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Paging{
		Size:        limit,
		TotalPage:   totalPages,
		CurrentPage: page,
		Total:       total,
	}
}

type Envelope struct {
	TraceID     string      `json:"traceId"`
	Code        string      `json:"code"`
	Message     string      `json:"message"`
	Data        interface{} `json:"data"`
	Paging      *Paging     `json:"paging,omitempty"`
	ResponseAt  time.Time   `json:"responseAt"`
	TimeConsume int64       `json:"timeConsume"`
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, r *http.Request, data interface{}) {
	write(w, r, http.StatusOK, CodeOK, "success", data, nil)
}

// Created writes a success envelope with a 201 status.
func Created(w http.ResponseWriter, r *http.Request, data interface{}) {
	write(w, r, http.StatusCreated, CodeOK, "success", data, nil)
}

// Paged writes a success envelope with pagination metadata.
func Paged(w http.ResponseWriter, r *http.Request, data interface{}, paging *Paging) {
	write(w, r, http.StatusOK, CodeOK, "success", data, paging)
}

// Err maps a discriminated error to HTTP status and envelope code. Internal
// and unknown failures get a generic message; detail belongs in server logs.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusCodeFor(err)
	message := apperr.MessageOf(err)
	if code == CodeInternalError || code == CodeUnknownFailure {
		message = "internal error"
	}
	write(w, r, status, code, message, nil, nil)
}

func statusCodeFor(err error) (int, string) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, CodeBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound, CodeBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized, CodeUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden, CodeForbidden
	case apperr.KindInvalidState:
		return http.StatusBadRequest, CodeNotPermitted
	case apperr.KindLimitExceeded:
		return http.StatusForbidden, CodeNotPermitted
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests, CodeRateLimited
	case apperr.KindConflict:
		return http.StatusConflict, CodeConflict
	case apperr.KindInternal:
		return http.StatusInternalServerError, CodeInternalError
	}
	return http.StatusInternalServerError, CodeUnknownFailure
}

func write(w http.ResponseWriter, r *http.Request, status int, code, message string, data interface{}, paging *Paging) {
	now := time.Now()
	var elapsed int64
	if start, ok := middleware.StartTimeFromContext(r.Context()); ok {
		elapsed = now.Sub(start).Milliseconds()
	}

	envelope := Envelope{
		TraceID:     middleware.TraceIDFromContext(r.Context()),
		Code:        code,
		Message:     message,
		Data:        data,
		Paging:      paging,
		ResponseAt:  now,
		TimeConsume: elapsed,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
