package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stakepool-custody/internal/authz"
	"stakepool-custody/internal/penalty"
)

// Wire-level kinds not produced by the engine.
const (
	kindBadRequest   = "BAD_REQUEST"
	kindBadSignature = "BAD_SIGNATURE"
	kindRateLimited  = "RATE_LIMITED"
	kindNotFound     = "NOT_FOUND"
	kindInternal     = "INTERNAL"
)

type httpError struct {
	kind      string
	cause     error
	status    int
	retryable bool
}

func (e *httpError) Error() string {
	if e.cause == nil {
		return e.kind
	}
	return e.cause.Error()
}

func badRequest(cause error) error {
	return &httpError{kind: kindBadRequest, cause: cause, status: http.StatusBadRequest}
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable"`
}

// handlerFunc is like http.HandlerFunc but returns an error. Errors are mapped
// to a status code and an errorResponse body.
type handlerFunc func(http.ResponseWriter, *http.Request) error

func wrap(f handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			he := toHTTPError(err)
			if he.retryable {
				w.Header().Set("Retry-After", strconv.Itoa(1))
			}
			msg := ""
			if he.status < http.StatusInternalServerError && he.cause != nil {
				msg = he.cause.Error()
			}
			_ = writeJSON(w, he.status, errorResponse{Error: he.kind, Message: msg, Retryable: he.retryable})
		}
	}
}

// toHTTPError maps engine errors onto HTTP statuses. Internal causes are not
// echoed to the caller.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var aerr *authz.Error
	if errors.As(err, &aerr) {
		status := http.StatusUnprocessableEntity
		switch aerr.Kind {
		case authz.KindUnknownPool:
			status = http.StatusNotFound
		case authz.KindUnauthorized:
			status = http.StatusForbidden
		}
		return &httpError{kind: string(aerr.Kind), cause: err, status: status}
	}

	var xerr *penalty.ExecError
	if errors.As(err, &xerr) {
		switch xerr.Kind {
		case penalty.KindInsufficientForfeitable:
			return &httpError{kind: string(xerr.Kind), cause: err, status: http.StatusConflict}
		case penalty.KindConcurrentUpdate:
			return &httpError{kind: string(xerr.Kind), status: http.StatusConflict, retryable: true}
		case penalty.KindTransferFailed:
			status := http.StatusBadGateway
			if xerr.Retryable() {
				status = http.StatusServiceUnavailable
			}
			return &httpError{kind: string(xerr.Kind), status: status, retryable: xerr.Retryable()}
		default:
			return &httpError{kind: string(xerr.Kind), status: http.StatusInternalServerError}
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &httpError{kind: "CANCELLED", status: http.StatusServiceUnavailable, retryable: true}
	}
	return &httpError{kind: kindInternal, status: http.StatusInternalServerError}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
