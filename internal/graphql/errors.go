package graphql

import (
	"context"
	"errors"
	"log"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/user"
)

// Codes reported under errors[].extensions.code.
const (
	CodeBadUserInput     = "BAD_USER_INPUT"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodeImageUnavailable = "IMAGE_HOST_UNAVAILABLE"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// apiError is a resolver error carrying a machine-readable code.
type apiError struct {
	code    string
	message string
	details []httpx.ErrorDetail
}

func (e *apiError) Error() string { return e.message }

func (e *apiError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.code}
	if len(e.details) > 0 {
		ext["details"] = e.details
	}
	return ext
}

func badInput(details []httpx.ErrorDetail) error {
	return &apiError{code: CodeBadUserInput, message: "Validation failed", details: details}
}

var errUnauthenticated = &apiError{code: CodeUnauthenticated, message: "Authentication required"}

// resolverError classifies a service error. Unknown errors are logged and
// replaced by a generic message.
func resolverError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, book.ErrNotFound):
		return &apiError{code: CodeNotFound, message: err.Error()}
	case errors.Is(err, book.ErrImageHostUnavailable):
		return &apiError{code: CodeImageUnavailable, message: err.Error()}
	case errors.Is(err, user.ErrAlreadyExists):
		return &apiError{code: CodeAlreadyExists, message: user.ErrAlreadyExists.Error()}
	case errors.Is(err, auth.ErrUnauthorized):
		return &apiError{code: CodeUnauthenticated, message: auth.ErrUnauthorized.Error()}
	}
	log.Printf("graphql error: request_id=%s op=%s error=%v", httpx.RequestIDFromContext(ctx), op, err)
	return &apiError{code: CodeInternal, message: "An internal error occurred"}
}
