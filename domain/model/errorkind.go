package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a collaborator failure so the rest of the core never
// has to parse free-form error text.
type ErrorKind string

const (
	ErrKindTransient          ErrorKind = "transient"
	ErrKindQuota              ErrorKind = "quota"
	ErrKindAuth               ErrorKind = "auth"
	ErrKindPermanent          ErrorKind = "permanent"
	ErrKindDuplicateExhausted ErrorKind = "duplicate_exhausted"
)

// ClassifiedError wraps a collaborator error with its classification.
// Classification happens at the boundary that produced the error. Quota
// errors also carry the provider whose pool raised the signal; quota pools
// are independent, so the provider identity must travel with the error.
type ClassifiedError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func NewClassifiedError(kind ErrorKind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Err: err}
}

func Transient(err error) *ClassifiedError { return NewClassifiedError(ErrKindTransient, err) }
func AuthErr(err error) *ClassifiedError   { return NewClassifiedError(ErrKindAuth, err) }
func Permanent(err error) *ClassifiedError { return NewClassifiedError(ErrKindPermanent, err) }

// QuotaErr classifies a quota failure for the named provider.
func QuotaErr(provider string, err error) *ClassifiedError {
	return &ClassifiedError{Kind: ErrKindQuota, Provider: provider, Err: err}
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// KindOf extracts the classification from err. Unclassified errors are
// treated as transient: the operational stance is to prefer retrying over
// silently giving up on a channel.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrKindTransient
}

// QuotaProvider returns the provider a quota error was raised for, or ""
// when err is not a quota error.
func QuotaProvider(err error) string {
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce.Kind == ErrKindQuota {
		return ce.Provider
	}
	return ""
}
