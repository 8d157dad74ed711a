package errors

import (
	builtin_errors "errors"

	pkgerrors "github.com/pkg/errors"
)

// With is easy error access
func With(err error, errors ...error) error {
	return builtin_errors.Join(append([]error{err}, errors...)...)
}

// Builtin Methods for Errors Package
func Is(err, target error) bool     { return builtin_errors.Is(err, target) }
func As(err error, target any) bool { return builtin_errors.As(err, target) }
func Join(errors ...error) error    { return builtin_errors.Join(errors...) }
func Unwrap(err error) error        { return builtin_errors.Unwrap(err) }
func New(msg string) error          { return builtin_errors.New(msg) }

// Wrap, Wrapf and Cause delegate straight to github.com/pkg/errors. Since
// v0.9 its wrapped errors also implement Unwrap, so Is/As above still see
// through a Wrap the same way they see through a stdlib %w chain.
func Wrap(err error, msg string) error { return pkgerrors.Wrap(err, msg) }
func Cause(err error) error            { return pkgerrors.Cause(err) }
func Wrapf(err error, fmtstr string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, fmtstr, args...)
}
