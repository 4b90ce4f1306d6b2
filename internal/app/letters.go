package app

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/offerletter"
	"hireflow/internal/storage"
)

// OfferLetters resolves, generates and stores offer letters under the
// offer-letters area of the upload root.
type OfferLetters struct {
	generator *offerletter.Generator
	files     *storage.Manager
	logger    *slog.Logger
}

func NewOfferLetters(generator *offerletter.Generator, files *storage.Manager, logger *slog.Logger) *OfferLetters {
	return &OfferLetters{generator: generator, files: files, logger: logger}
}

// Generate renders a letter for app and stores it. format is recorded on the
// descriptor; the renderer only produces PDF.
func (l *OfferLetters) Generate(ctx context.Context, app application.Application, overrides offerletter.Overrides, format string) (*application.Letter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" {
		l.logger.Info("offer letter format ignored", slog.String("application_id", app.ID.String()), slog.String("format", format))
	}
	content, err := l.generator.Generate(l.generator.DataFor(app, overrides))
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to generate offer letter", err)
	}
	stored, err := l.files.WriteBytes(ctx, storage.PurposeOfferLetters, "", "offer-letter-"+app.ID.String()+".pdf", content)
	if err != nil {
		return nil, err
	}
	return &application.Letter{Filename: stored.Filename, Path: stored.Path, Format: format, Size: stored.Size}, nil
}

// Existing describes a file already under the root. A missing file reports
// NotFound; a path outside the root reports ValidationFailed.
func (l *OfferLetters) Existing(rel string) (*application.Letter, error) {
	abs, info, err := l.files.Stat(rel)
	if err != nil {
		return nil, err
	}
	clean, err := filepath.Rel(l.files.Root(), abs)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to resolve letter path", err)
	}
	name := info.Name()
	return &application.Letter{
		Filename: name,
		Path:     filepath.ToSlash(clean),
		Format:   strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."),
		Size:     info.Size(),
	}, nil
}

// AbsPath returns the on-disk location of a stored letter.
func (l *OfferLetters) AbsPath(letter application.Letter) (string, error) {
	abs, _, err := l.files.Stat(letter.Path)
	return abs, err
}
