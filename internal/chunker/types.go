package chunker

import "docqa/internal/domain"

// Chunker splits a document into ordered, overlapping chunks.
type Chunker interface {
	// Chunk returns the chunks of doc in document order. A document with no
	// extractable text yields no chunks.
	Chunk(doc domain.Document) []domain.Chunk

	// Name returns the chunker name for logging.
	Name() string
}

// Config holds the size parameters, in runes.
type Config struct {
	MaxChunkSize int // upper bound on chunk length
	Overlap      int // shared runes between consecutive chunks of a page
}

// Stride is the distance between the starts of consecutive chunks.
func (c Config) Stride() int {
	return c.MaxChunkSize - c.Overlap
}
