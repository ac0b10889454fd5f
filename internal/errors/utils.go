package errors

import (
	"errors"
	"io/fs"
)

// Re-exports of the standard library helpers so callers only need one
// errors import.
var (
	As  = errors.As
	Is  = errors.Is
	New = errors.New
)

// Wrap wraps err as a TatumError of the given kind. An existing TatumError
// keeps its path.
func Wrap(err error, kind Kind, code, message string) *TatumError {
	if err == nil {
		return nil
	}

	wrapped := &TatumError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   err,
	}

	var te *TatumError
	if errors.As(err, &te) {
		wrapped.Path = te.Path
	}

	return wrapped
}

// Hint returns a short suggestion for fixing err, or "" when there is
// nothing useful to say.
func Hint(err error) string {
	if Is(err, &TatumError{Kind: KindValidation, Code: CodeNotInitialized}) {
		return "Run `tatum init` first."
	}

	switch KindOf(err) {
	case KindDocumentNotFound:
		return "Check the document path; relative paths resolve from the working directory."
	case KindTemplateNotFound:
		return "Run `tatum init` or pass --template with a directory containing page.html."
	case KindAssetMissing:
		return "The template is missing a file. `tatum new <name>` creates a complete template and `tatum macros` writes macros.tex."
	case KindTemplateRender:
		return "The template skeleton is malformed; check its {{ }} actions."
	case KindExternalConversion:
		return "Make sure the converter is installed and on PATH."
	default:
		return ""
	}
}

func codeForIO(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fs.ErrNotExist):
		return CodeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return CodePermissionDenied
	default:
		return CodeInternal
	}
}
