// Package loader extracts per-page text from source files.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
)

// Loader extracts the pages of one file.
type Loader interface {
	Load(path string) ([]domain.Page, error)
	Name() string
}

// Factory picks a loader by file extension.
type Factory struct {
	loaders map[string]Loader
}

// NewFactory returns a factory knowing .txt, .md and .pdf files.
func NewFactory() *Factory {
	text := TextLoader{}
	md := MarkdownLoader{}
	pdf := PDFLoader{}
	return &Factory{loaders: map[string]Loader{
		".txt":      text,
		".text":     text,
		".md":       md,
		".markdown": md,
		".pdf":      pdf,
	}}
}

// Supports reports whether path has a known extension.
func (f *Factory) Supports(path string) bool {
	_, ok := f.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// GetLoader returns the loader for path.
func (f *Factory) GetLoader(path string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := f.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}
	return l, nil
}

// Load extracts the pages of path with the matching loader.
func (f *Factory) Load(path string) ([]domain.Page, error) {
	l, err := f.GetLoader(path)
	if err != nil {
		return nil, err
	}
	pages, err := l.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s loader: %w", l.Name(), err)
	}
	return pages, nil
}
