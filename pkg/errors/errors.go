package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	// Client-side taxonomy surfaced by the sync engine and checkout orchestrator.
	CodeNetwork        Code = "NETWORK_FAILURE"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeServerRejected Code = "SERVER_REJECTED"
	CodeValidation     Code = "VALIDATION_ERROR"

	// Server-side codes emitted by the sandbox commerce API.
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
	CodeInternal Code = "INTERNAL_ERROR"
)

// Presentation tells the UI layer how a failure should be rendered.
type Presentation string

const (
	PresentInline   Presentation = "inline"
	PresentBanner   Presentation = "banner"
	PresentRedirect Presentation = "redirect"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	Presentation   Presentation
}

var metadataByCode = map[Code]Metadata{
	CodeNetwork: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "could not reach the store, please try again",
		Presentation:  PresentBanner,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		Retryable:     false,
		PublicMessage: "authentication required",
		Presentation:  PresentRedirect,
	},
	CodeServerRejected: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "the store rejected the request, please try again",
		DetailsAllowed: true,
		Presentation:   PresentBanner,
	},
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
		Presentation:   PresentInline,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Retryable:     false,
		PublicMessage: "resource not found",
		Presentation:  PresentBanner,
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "conflict detected",
		DetailsAllowed: true,
		Presentation:   PresentBanner,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal error",
		Presentation:  PresentBanner,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the typed code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Validation builds a VALIDATION_ERROR tagged with the checkout section it belongs to.
func Validation(section, message string) *Error {
	return New(CodeValidation, message).WithDetails(map[string]any{"section": section})
}

// Section extracts the section tag from a validation error, if any.
func Section(err error) string {
	typed := As(err)
	if typed == nil {
		return ""
	}
	if details, ok := typed.Details().(map[string]any); ok {
		if section, ok := details["section"].(string); ok {
			return section
		}
	}
	return ""
}

// UserMessage returns the text a UI should show for err.
func UserMessage(err error) string {
	typed := As(err)
	if typed == nil {
		return MetadataFor(CodeInternal).PublicMessage
	}
	switch typed.Code() {
	case CodeValidation, CodeServerRejected, CodeConflict, CodeNotFound:
		if m := typed.Message(); m != "" {
			return m
		}
	}
	return MetadataFor(typed.Code()).PublicMessage
}
