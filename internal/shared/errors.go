package shared

import (
	"errors"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ErrorKind classifies resolution errors. The kind is the message prefix.
type ErrorKind string

const (
	KindParse             ErrorKind = "parse error"
	KindIndirection       ErrorKind = "indirection error"
	KindBuildBackend      ErrorKind = "build backend error"
	KindUnsupportedSource ErrorKind = "unsupported source"
)

func ParseError(msg string, cause error) error {
	return kindError(KindParse, errbuilder.CodeInvalidArgument, msg, cause)
}

func IndirectionError(msg string, cause error) error {
	return kindError(KindIndirection, errbuilder.CodeFailedPrecondition, msg, cause)
}

func BuildBackendError(msg string, cause error) error {
	return kindError(KindBuildBackend, errbuilder.CodeInternal, msg, cause)
}

func UnsupportedSourceError(msg string) error {
	return kindError(KindUnsupportedSource, errbuilder.CodeInvalidArgument, msg, nil)
}

// IsKind reports whether err, or an error it wraps, was built with the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var builder *errbuilder.ErrBuilder
	if !errors.As(err, &builder) {
		return false
	}
	return strings.HasPrefix(builder.Msg, string(kind)+": ")
}

func kindError(kind ErrorKind, code errbuilder.ErrCode, msg string, cause error) error {
	b := errbuilder.New().
		WithCode(code).
		WithMsg(string(kind) + ": " + msg)
	if cause != nil {
		return b.WithCause(cause)
	}
	return b
}
