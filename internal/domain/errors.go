package domain

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnavailable   = errors.New("dependency unavailable")
	ErrLookupFault   = errors.New("product name lookup fault")
	ErrInternalDb    = errors.New("internal database error")
	ErrInternalCache = errors.New("internal cache error")
)

type ErrorContainer struct {
	inner []error
}

func NewErrorContainer(e ...error) ErrorContainer {
	ec := ErrorContainer{inner: make([]error, 0)}
	ec.inner = append(ec.inner, e...)
	return ec
}

func (c *ErrorContainer) Add(e ...error) {
	c.inner = append(c.inner, e...)
}

func (c ErrorContainer) Error() string {
	errMessage := ""
	for _, err := range c.inner {
		errMessage = fmt.Sprintf("%s%s;\n", errMessage, err.Error())
	}
	return errMessage
}

func (c ErrorContainer) Unwrap() []error {
	return c.inner
}

// ServiceError separates the error that failed a call from errors the call
// degraded around. A nil CriticalError means the result is still usable.
type ServiceError struct {
	CriticalError     error
	NonCriticalErrors []error
}

func NewServiceError(critical error, nonCritical []error) *ServiceError {
	return &ServiceError{CriticalError: critical, NonCriticalErrors: nonCritical}
}

func (se *ServiceError) Error() string {
	var errMessage bytes.Buffer
	errMessage.WriteString("Service error(s):\n")
	for _, err := range se.NonCriticalErrors {
		errMessage.WriteString(fmt.Sprintf("%s\n", err.Error()))
	}
	if se.CriticalError != nil {
		errMessage.WriteString(fmt.Sprintf("%s\n", se.CriticalError.Error()))
	}
	return errMessage.String()
}

func (se *ServiceError) Unwrap() []error {
	errs := make([]error, 0, len(se.NonCriticalErrors)+1)
	if se.CriticalError != nil {
		errs = append(errs, se.CriticalError)
	}
	return append(errs, se.NonCriticalErrors...)
}
