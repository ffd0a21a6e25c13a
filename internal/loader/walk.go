package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/domain"
)

// File is a supported file found under the documents directory.
type File struct {
	Path    string // path on disk
	Source  string // normalized path relative to the documents directory
	ModTime time.Time
	Size    int64
}

// Scan walks root and returns the supported files sorted by source. Hidden
// files and directories are skipped.
func (f *Factory) Scan(root string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !f.Supports(path) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, File{
			Path:    path,
			Source:  chunker.NormalizeSource(rel),
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Source < files[j].Source })
	return files, nil
}

// LoadDocument loads file into a document keyed by its normalized source.
func (f *Factory) LoadDocument(file File) (domain.Document, error) {
	pages, err := f.Load(file.Path)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{Source: file.Source, Pages: pages}, nil
}
