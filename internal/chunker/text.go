package chunker

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// TextChunker cuts each page into fixed windows of MaxChunkSize runes that
// advance by MaxChunkSize-Overlap. Pages are chunked independently, so no
// chunk spans a page boundary.
type TextChunker struct {
	config Config
}

// NewTextChunker validates config and returns a chunker.
func NewTextChunker(config Config) (*TextChunker, error) {
	if config.MaxChunkSize <= 0 || config.Overlap <= 0 || config.Overlap >= config.MaxChunkSize {
		return nil, fmt.Errorf("%w: chunk size %d, overlap %d", domain.ErrInvalidConfig, config.MaxChunkSize, config.Overlap)
	}
	return &TextChunker{config: config}, nil
}

func (s *TextChunker) Name() string {
	return "text"
}

func (s *TextChunker) Chunk(doc domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	index := 0
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, span := range s.Spans(page.Text) {
			chunks = append(chunks, domain.Chunk{
				ID:     ChunkID(doc.Source, page.Number, index),
				Text:   span.Text,
				Source: doc.Source,
				Page:   page.Number,
				Index:  index,
				Offset: span.Start,
			})
			index++
		}
	}
	return chunks
}

// Span is one window of a text, with its rune range [Start, End).
type Span struct {
	Start int
	End   int
	Text  string
}

// Spans returns the windows covering text. Window i starts at i*Stride; the
// last window ends at the end of the text and may be shorter.
func (s *TextChunker) Spans(text string) []Span {
	runes := []rune(text)
	var spans []Span

	for i := 0; i < len(runes); i += s.config.Stride() {
		end := i + s.config.MaxChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		spans = append(spans, Span{Start: i, End: end, Text: string(runes[i:end])})

		if end >= len(runes) {
			break
		}
	}

	return spans
}
