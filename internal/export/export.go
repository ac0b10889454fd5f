// Package export converts documents to other formats through pandoc,
// passing the template's LaTeX header and transcribed macros.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/logging"
	"github.com/conneroisu/tatum/internal/macros"
)

// Template files passed to pandoc with -H.
const (
	HeaderFile = "header.tex"
	MacrosFile = macros.OutputFile
)

// DefaultExtension is used when a request names no output file.
const DefaultExtension = ".pdf"

// Request describes one export.
type Request struct {
	Input       string
	Output      string
	TemplateDir string
}

// Pandoc runs the pandoc binary.
type Pandoc struct {
	command string
	logger  logging.Logger
}

// NewPandoc returns an exporter running command, or "pandoc" when empty.
func NewPandoc(command string, logger logging.Logger) *Pandoc {
	if command == "" {
		command = "pandoc"
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Pandoc{
		command: command,
		logger:  logger.WithComponent("export"),
	}
}

// OutputPath returns the file req writes to.
func (req Request) OutputPath() string {
	if req.Output != "" {
		return req.Output
	}
	return strings.TrimSuffix(req.Input, filepath.Ext(req.Input)) + DefaultExtension
}

// Export runs pandoc for req. Missing template files are reported as
// AssetMissing before anything runs; a failing process is reported as
// ExternalConversionError.
func (p *Pandoc) Export(ctx context.Context, req Request) error {
	input, err := filepath.Abs(req.Input)
	if err != nil {
		return terrors.NewDocumentNotFound(req.Input, err)
	}
	info, err := os.Stat(input)
	if err != nil {
		return terrors.NewDocumentNotFound(input, err)
	}
	if info.IsDir() {
		e := terrors.NewDocumentNotFound(input, errors.New("is a directory"))
		e.Code = terrors.CodeNotAFile
		return e
	}

	header, err := requireAsset(req.TemplateDir, HeaderFile, "header.tex does not exist; create an empty one if no header is needed")
	if err != nil {
		return err
	}
	macrosPath, err := requireAsset(req.TemplateDir, MacrosFile, "macros.tex does not exist; run `tatum macros` or write one")
	if err != nil {
		return err
	}

	output, err := filepath.Abs(req.OutputPath())
	if err != nil {
		return fmt.Errorf("invalid output path %q: %w", req.OutputPath(), err)
	}

	args := []string{input, "-H", header, "-H", macrosPath, "-o", output}
	op := logging.StartOperation(p.logger.With("input", input, "output", output), "export")

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Dir = filepath.Dir(input)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			op.EndWithError(ctx, ctx.Err())
			return ctx.Err()
		}
		convErr := terrors.NewExternalConversionError(p.command, fmt.Errorf("%w\nOutput: %s", err, strings.TrimSpace(string(out))))
		convErr.Path = input
		op.EndWithError(ctx, convErr)
		return convErr
	}

	op.End(ctx)
	return nil
}

func requireAsset(dir, name, message string) (string, error) {
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", terrors.NewTemplateNotFound(dir, err)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", terrors.NewAssetMissing(path, message)
		}
		return "", terrors.NewTemplateNotFound(path, err)
	}

	return path, nil
}
