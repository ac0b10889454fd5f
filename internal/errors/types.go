// Package errors defines the failure taxonomy shared by the rendering
// pipeline, the live-preview service and the CLI.
//
// Every failure surfaced to a caller is a *TatumError carrying a Kind.
// Callers branch on the kind with errors.Is against the exported
// sentinels (ErrDocumentNotFound, ErrTemplateNotFound, ...), or map it to
// an HTTP status with HTTPStatus.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind represents a category of failure.
type Kind string

const (
	KindDocumentNotFound   Kind = "document_not_found"
	KindTemplateNotFound   Kind = "template_not_found"
	KindAssetMissing       Kind = "asset_missing"
	KindConversion         Kind = "conversion"
	KindTemplateRender     Kind = "template_render"
	KindExternalConversion Kind = "external_conversion"
	KindWatchTargetLost    Kind = "watch_target_lost"
	KindConfig             Kind = "config"
	KindValidation         Kind = "validation"
	KindInternal           Kind = "internal"
)

// Common error codes.
const (
	CodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	CodeNotAFile         = "ERR_NOT_A_FILE"
	CodePermissionDenied = "ERR_PERMISSION_DENIED"
	CodeSkeletonMissing  = "ERR_SKELETON_MISSING"
	CodeSkeletonParse    = "ERR_SKELETON_PARSE"
	CodeSkeletonExecute  = "ERR_SKELETON_EXECUTE"
	CodeManifestInvalid  = "ERR_MANIFEST_INVALID"
	CodeMarkdown         = "ERR_MARKDOWN"
	CodeProcessFailed    = "ERR_PROCESS_FAILED"
	CodeFileRemoved      = "ERR_FILE_REMOVED"
	CodeConfigInvalid    = "ERR_CONFIG_INVALID"
	CodeAlreadyExists    = "ERR_ALREADY_EXISTS"
	CodeNotInitialized   = "ERR_NOT_INITIALIZED"
	CodeInvalidName      = "ERR_INVALID_NAME"
	CodeInternal         = "ERR_INTERNAL"
)

// TatumError is a structured error with a kind, an optional code and the
// filesystem path it concerns.
type TatumError struct {
	Kind    Kind
	Code    string
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *TatumError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path+":")
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else {
		parts = append(parts, strings.ReplaceAll(string(e.Kind), "_", " "))
	}

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TatumError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *TatumError of the same kind. A target
// with an empty Code matches every code of its kind, which is how the
// package-level sentinels work.
func (e *TatumError) Is(target error) bool {
	var t *TatumError
	if !errors.As(target, &t) {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}

	return t.Code == "" || t.Code == e.Code
}

// WithPath sets the path the error concerns.
func (e *TatumError) WithPath(path string) *TatumError {
	e.Path = path

	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrDocumentNotFound   = &TatumError{Kind: KindDocumentNotFound}
	ErrTemplateNotFound   = &TatumError{Kind: KindTemplateNotFound}
	ErrAssetMissing       = &TatumError{Kind: KindAssetMissing}
	ErrConversion         = &TatumError{Kind: KindConversion}
	ErrTemplateRender     = &TatumError{Kind: KindTemplateRender}
	ErrExternalConversion = &TatumError{Kind: KindExternalConversion}
	ErrWatchTargetLost    = &TatumError{Kind: KindWatchTargetLost}
	ErrConfig             = &TatumError{Kind: KindConfig}
	ErrValidation         = &TatumError{Kind: KindValidation}
)

// NewDocumentNotFound reports a document that cannot be read.
func NewDocumentNotFound(path string, cause error) *TatumError {
	return &TatumError{
		Kind:    KindDocumentNotFound,
		Code:    codeForIO(cause),
		Message: "document not found",
		Path:    path,
		Cause:   cause,
	}
}

// NewTemplateNotFound reports a template directory or skeleton that
// cannot be read.
func NewTemplateNotFound(path string, cause error) *TatumError {
	return &TatumError{
		Kind:    KindTemplateNotFound,
		Code:    codeForIO(cause),
		Message: "template not found",
		Path:    path,
		Cause:   cause,
	}
}

// NewAssetMissing reports a required template asset that does not exist.
func NewAssetMissing(path, message string) *TatumError {
	return &TatumError{
		Kind:    KindAssetMissing,
		Code:    CodeSkeletonMissing,
		Message: message,
		Path:    path,
	}
}

// NewConversionError wraps a markdown conversion failure.
func NewConversionError(path string, cause error) *TatumError {
	return &TatumError{
		Kind:    KindConversion,
		Code:    CodeMarkdown,
		Message: "markdown conversion failed",
		Path:    path,
		Cause:   cause,
	}
}

// NewTemplateRenderError wraps a skeleton parse or execution failure.
func NewTemplateRenderError(code, path string, cause error) *TatumError {
	return &TatumError{
		Kind:    KindTemplateRender,
		Code:    code,
		Message: "template rendering failed",
		Path:    path,
		Cause:   cause,
	}
}

// NewExternalConversionError reports a converter process that exited
// unsuccessfully.
func NewExternalConversionError(command string, cause error) *TatumError {
	return &TatumError{
		Kind:    KindExternalConversion,
		Code:    CodeProcessFailed,
		Message: command + " failed",
		Cause:   cause,
	}
}

// NewWatchTargetLost reports a watched file that disappeared.
func NewWatchTargetLost(path string) *TatumError {
	return &TatumError{
		Kind:    KindWatchTargetLost,
		Code:    CodeFileRemoved,
		Message: "watched file disappeared",
		Path:    path,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *TatumError {
	return &TatumError{
		Kind:    KindConfig,
		Code:    CodeConfigInvalid,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *TatumError {
	return &TatumError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var te *TatumError
	if errors.As(err, &te) {
		return te.Kind
	}

	return KindInternal
}

// HTTPStatus maps an error to the status code the preview server answers
// with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindDocumentNotFound:
		return http.StatusNotFound
	case KindConversion:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
