package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/MimeLyc/term-injector/internal/inject"
	"github.com/MimeLyc/term-injector/internal/termmap"
	"github.com/MimeLyc/term-injector/pkg/log"
)

type ErrorType int

const (
	ErrFileNotFound ErrorType = iota
	ErrFileRead
	ErrFileWrite
	ErrParse
	ErrValidation
	ErrConfig
	ErrCorpus
	ErrInput
	ErrNoTerms
	ErrStorage
	ErrSchedule
	ErrCanceled
	ErrUnknown
)

// Error is a classified failure carrying key/value context for the operator.
type Error struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrFileRead:
		return "FileRead"
	case ErrFileWrite:
		return "FileWrite"
	case ErrParse:
		return "Parse"
	case ErrValidation:
		return "Validation"
	case ErrConfig:
		return "Config"
	case ErrCorpus:
		return "Corpus"
	case ErrInput:
		return "Input"
	case ErrNoTerms:
		return "NoTerms"
	case ErrStorage:
		return "Storage"
	case ErrSchedule:
		return "Schedule"
	case ErrCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *Error) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

// Handle logs err with advice. It reports false for errors that are not
// classified.
func (h *DefaultErrorHandler) Handle(err error) bool {
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	advice := h.GetAdvice(svcErr)
	log.Error("Error Detail: %v\n advice: %s", err, advice)

	return true
}

// GetAdvice returns error handling advice
func (h *DefaultErrorHandler) GetAdvice(err *Error) string {
	switch err.Type {
	case ErrFileNotFound:
		return "Check the path; the terminology file is looked up as terms.<src>-<trg>.jsonl in the current and parent directories unless -d or --db is given"
	case ErrFileRead:
		return "Check read permissions and that the file is not truncated"
	case ErrFileWrite:
		return "Ensure the output directory exists and is writable; no partial output was kept"
	case ErrParse:
		return "Check the input format: terminology is one JSON record per line, TBX must be well-formed XML"
	case ErrValidation:
		return "Check the command line arguments"
	case ErrConfig:
		return "Check the configuration file and TERM_* environment variables"
	case ErrCorpus:
		return "Add a preferred target language entry to the named record or remove its preferred source entry"
	case ErrInput:
		return "Every input line must hold exactly one source and one target sentence separated by a tab"
	case ErrNoTerms:
		return "No terminology was found in the input; check the language pair and the terminology file"
	case ErrStorage:
		return "Check the database path and that no other process holds a write lock"
	case ErrSchedule:
		return "Check TERM_CRON_EXPR; five fields or a descriptor such as @daily are accepted"
	case ErrCanceled:
		return "The run was interrupted before completion"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *Error {
	return NewErrorWithCause(errorType, message, err)
}

// Classify wraps err with the type matching its cause. An error that is
// already classified keeps its type.
func Classify(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		if error(svcErr) == err {
			return svcErr
		}
		return WrapError(err, svcErr.Type, message)
	}

	var corpusErr *termmap.CorpusError
	switch {
	case errors.As(err, &corpusErr):
		return WrapError(err, ErrCorpus, message).WithContext("word", corpusErr.Word)
	case errors.Is(err, inject.ErrMalformedLine):
		return WrapError(err, ErrInput, message)
	case errors.Is(err, inject.ErrNoTerms):
		return WrapError(err, ErrNoTerms, message)
	case errors.Is(err, os.ErrNotExist):
		return WrapError(err, ErrFileNotFound, message)
	case errors.Is(err, os.ErrPermission):
		return WrapError(err, ErrFileRead, message)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return WrapError(err, ErrCanceled, message)
	default:
		return WrapError(err, ErrUnknown, message)
	}
}

func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
