package loader

import (
	"fmt"
	"os"
	"unicode/utf8"

	"docqa/internal/domain"
)

// TextLoader reads a UTF-8 text file as a single unpaged page.
type TextLoader struct{}

func (TextLoader) Name() string { return "text" }

func (TextLoader) Load(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not valid UTF-8", path)
	}
	return []domain.Page{{Number: 0, Text: string(data)}}, nil
}
