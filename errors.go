package pdfexport

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Converter].
	ErrClosed = errors.New("pdfexport: converter is closed")

	// ErrNoElement is returned when [ExportOptions.Element] is nil.
	ErrNoElement = errors.New("pdfexport: source element is required")

	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("pdfexport: source element not found")

	// ErrInvalidMargin is returned when the margin is negative, not finite,
	// or leaves no printable area on the page.
	ErrInvalidMargin = errors.New("pdfexport: margin leaves no printable area")

	ErrUnsupportedFormat  = errors.New("pdfexport: unsupported page format")
	ErrInvalidOrientation = errors.New("pdfexport: invalid page orientation")

	// ErrEmptyRaster is returned when the rasterizer produced a bitmap with
	// no pixels.
	ErrEmptyRaster = errors.New("pdfexport: rasterized image is empty")
)

// ErrorKind classifies export failures.
type ErrorKind string

const (
	KindConfig ErrorKind = "config"
	KindRaster ErrorKind = "raster"
	KindRender ErrorKind = "render"
	KindDecode ErrorKind = "decode"
	KindIO     ErrorKind = "io"
)

// Error wraps a failure of one export step with its kind.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "pdfexport: " + e.Op
	}
	return "pdfexport: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err. Context errors are reported as raster
// failures since the browser is the only blocking collaborator.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNoElement),
		errors.Is(err, ErrInvalidMargin),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrInvalidOrientation),
		errors.Is(err, ErrElementNotFound):
		return KindConfig
	case errors.Is(err, ErrEmptyRaster),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindRaster
	}
	return KindRender
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge
	}

	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.New(msg, goerrors.CategoryOperation).WithTextCode("timeout")
	case errors.Is(err, context.Canceled):
		return goerrors.New(msg, goerrors.CategoryOperation).WithTextCode("canceled")
	case errors.Is(err, ErrElementNotFound):
		return goerrors.New(msg, goerrors.CategoryNotFound).WithTextCode("not_found")
	}

	switch KindOf(err) {
	case KindConfig:
		return goerrors.New(msg, goerrors.CategoryValidation).WithTextCode("validation")
	case KindDecode:
		return goerrors.New(msg, goerrors.CategoryValidation).WithTextCode("decode")
	case KindRaster:
		return goerrors.New(msg, goerrors.CategoryOperation).WithTextCode("raster")
	default:
		return goerrors.New(msg, goerrors.CategoryInternal).WithTextCode("internal")
	}
}

var errMalformedDataURL = errors.New("malformed data URL")
