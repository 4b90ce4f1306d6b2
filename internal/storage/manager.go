package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"hireflow/internal/common"
)

type Purpose string

const (
	PurposeDocuments    Purpose = "documents"
	PurposeOfferLetters Purpose = "offer-letters"
)

// Policy limits what may be stored for one purpose.
type Policy struct {
	Extensions []string
	MaxBytes   int64
}

var (
	CandidateDocuments = Policy{Extensions: []string{".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png"}, MaxBytes: 10 << 20}
	StaffOfferLetters  = Policy{Extensions: []string{".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png"}, MaxBytes: 8 << 20}
)

func (p Policy) Allows(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range p.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Stored describes a file written under the managed root.
type Stored struct {
	Filename string
	Path     string
	Size     int64
}

// Manager owns the upload root. Every path handed out is root-relative and
// every path accepted back is re-validated against the root.
type Manager struct {
	root string
}

func NewManager(root string) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	for _, purpose := range []Purpose{PurposeDocuments, PurposeOfferLetters} {
		if err := os.MkdirAll(filepath.Join(abs, string(purpose)), 0o750); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", purpose, err)
		}
	}
	return &Manager{root: abs}, nil
}

func (m *Manager) Root() string {
	return m.root
}

// Save validates and writes r under purpose/scope. The stored name carries a
// random prefix so repeated uploads never collide.
func (m *Manager) Save(ctx context.Context, purpose Purpose, scope, filename string, r io.Reader, policy Policy) (*Stored, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return nil, common.NewValidationError("invalid file", map[string]string{"file": "filename is required"})
	}
	if !policy.Allows(name) {
		return nil, common.NewValidationError("invalid file", map[string]string{"file": "file type " + filepath.Ext(name) + " is not allowed"})
	}
	rel, err := m.newPath(purpose, scope, name)
	if err != nil {
		return nil, err
	}
	size, err := m.write(ctx, rel, r, policy.MaxBytes)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		if _, err := api.PageCountFile(filepath.Join(m.root, rel)); err != nil {
			_ = os.Remove(filepath.Join(m.root, rel))
			return nil, common.NewValidationError("invalid file", map[string]string{"file": "pdf could not be read"})
		}
	}
	return &Stored{Filename: name, Path: filepath.ToSlash(rel), Size: size}, nil
}

// WriteBytes stores generated content without applying an upload policy.
func (m *Manager) WriteBytes(ctx context.Context, purpose Purpose, scope, filename string, content []byte) (*Stored, error) {
	name := sanitizeFilename(filename)
	rel, err := m.newPath(purpose, scope, name)
	if err != nil {
		return nil, err
	}
	size, err := m.write(ctx, rel, bytes.NewReader(content), 0)
	if err != nil {
		return nil, err
	}
	return &Stored{Filename: name, Path: filepath.ToSlash(rel), Size: size}, nil
}

// Resolve maps a root-relative path to an absolute one, refusing anything
// that would land outside the root.
func (m *Manager) Resolve(rel string) (string, error) {
	trimmed := strings.TrimSpace(rel)
	if trimmed == "" || filepath.IsAbs(trimmed) || strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, `\`) {
		return "", common.NewValidationError("invalid path", map[string]string{"path": "path must be relative to the upload root"})
	}
	for _, segment := range strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return "", common.NewValidationError("invalid path", map[string]string{"path": "path escapes the upload root"})
		}
	}
	abs := filepath.Join(m.root, filepath.FromSlash(trimmed))
	within, err := filepath.Rel(m.root, abs)
	if err != nil || within == "." || strings.HasPrefix(within, "..") {
		return "", common.NewValidationError("invalid path", map[string]string{"path": "path escapes the upload root"})
	}
	return abs, nil
}

// Stat resolves rel and confirms it is an existing regular file.
func (m *Manager) Stat(rel string) (string, os.FileInfo, error) {
	abs, err := m.Resolve(rel)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, common.NewError(common.CodeNotFound, "file not found", err)
		}
		return "", nil, common.NewError(common.CodeInternal, "failed to stat file", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, common.NewError(common.CodeNotFound, "file not found", nil)
	}
	return abs, info, nil
}

// Open returns a reader for rel; callers close it.
func (m *Manager) Open(rel string) (*os.File, os.FileInfo, error) {
	abs, info, err := m.Stat(rel)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, nil, common.NewError(common.CodeInternal, "failed to open file", err)
	}
	return f, info, nil
}

// Remove deletes rel; a missing file is not an error.
func (m *Manager) Remove(rel string) error {
	abs, err := m.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return common.NewError(common.CodeInternal, "failed to remove file", err)
	}
	return nil
}

func (m *Manager) newPath(purpose Purpose, scope, name string) (string, error) {
	prefix := make([]byte, 6)
	if _, err := rand.Read(prefix); err != nil {
		return "", common.NewError(common.CodeInternal, "failed to name file", err)
	}
	parts := []string{string(purpose)}
	if scope = sanitizeFilename(scope); scope != "" {
		parts = append(parts, scope)
	}
	parts = append(parts, hex.EncodeToString(prefix)+"-"+name)
	rel := filepath.Join(parts...)
	if _, err := m.Resolve(filepath.ToSlash(rel)); err != nil {
		return "", err
	}
	return rel, nil
}

func (m *Manager) write(ctx context.Context, rel string, r io.Reader, maxBytes int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	abs := filepath.Join(m.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to create directory", err)
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to create file", err)
	}
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil && maxBytes > 0 && n > maxBytes {
		_ = os.Remove(abs)
		return 0, common.NewValidationError("invalid file", map[string]string{"file": fmt.Sprintf("file exceeds %d MB", maxBytes>>20)})
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(abs)
		return 0, common.NewError(common.CodeInternal, "failed to write file", errors.Join(copyErr, closeErr))
	}
	return n, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.TrimLeft(b.String(), ".")
}
