package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindRateLimited         ErrorKind = "rate_limited"
	KindInvalidPhone        ErrorKind = "invalid_phone"
	KindTemplateNotApproved ErrorKind = "template_not_approved"
	KindUserBlocked         ErrorKind = "user_blocked"
	KindOptedOut            ErrorKind = "opted_out"
	KindUnknown             ErrorKind = "unknown"
)

// Cloud API style error codes returned by the mock transport.
const (
	CodeRateLimited         = 130429
	CodeTemplateNotApproved = 132001
	CodeInvalidPhone        = 131026
	CodeUserBlocked         = 131031
	CodeOptedOut            = 131050
)

type SendError struct {
	Kind    ErrorKind
	Code    int
	Message string
}

func (e *SendError) Error() string { return e.Message }

// Retryable reports whether a caller may retry with backoff.
func (e *SendError) Retryable() bool { return e.Kind == KindRateLimited }

func (e *SendError) APIError() *APIError {
	return &APIError{Message: e.Message, Code: e.Code, Kind: e.Kind}
}

func ErrRateLimited() *SendError {
	return &SendError{Kind: KindRateLimited, Code: CodeRateLimited, Message: "Rate limit exceeded. Please try again later."}
}

func ErrTemplateNotApproved(name string) *SendError {
	return &SendError{
		Kind:    KindTemplateNotApproved,
		Code:    CodeTemplateNotApproved,
		Message: fmt.Sprintf("Template %q does not exist or is not approved", name),
	}
}

func ErrInvalidPhone(phone string) *SendError {
	return &SendError{Kind: KindInvalidPhone, Code: CodeInvalidPhone, Message: "Invalid phone number: " + phone}
}

func ErrUserBlocked(phone string) *SendError {
	return &SendError{Kind: KindUserBlocked, Code: CodeUserBlocked, Message: "Recipient " + phone + " has blocked this business"}
}

func ErrOptedOut(phone string) *SendError {
	return &SendError{Kind: KindOptedOut, Code: CodeOptedOut, Message: "Recipient " + phone + " has opted out of marketing messages"}
}

// KindOf classifies err; anything that is not a *SendError is KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func IsRetryable(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Retryable()
}
