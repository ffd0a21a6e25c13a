// Package domain holds the types shared by the ingestion and query pipelines.
package domain

// Page is one extractable unit of a document. Number is 1-based for paged
// formats (PDF) and 0 when the format has no pages.
type Page struct {
	Number int
	Text   string
}

// Document is a loaded source file. It is immutable once loaded.
type Document struct {
	Source string // normalized source path
	Pages  []Page
}

// Chunk is a contiguous text span of a document page.
type Chunk struct {
	ID     string
	Text   string
	Source string
	Page   int
	Index  int // sequential within the document
	Offset int // rune offset of the span within its page
}

// Candidate is a chunk scored by one ranking stage.
type Candidate struct {
	Chunk  Chunk
	Score  float64
	Ranker string

	// Normalized per-ranker components, set by hybrid fusion.
	VectorScore  float64
	LexicalScore float64
}

// Ranked is an ordered result set; order is significant.
type Ranked []Candidate

// IDs returns the chunk identifiers in rank order.
func (r Ranked) IDs() []string {
	ids := make([]string, len(r))
	for i, c := range r {
		ids[i] = c.Chunk.ID
	}
	return ids
}

// Chunks returns the chunks in rank order.
func (r Ranked) Chunks() []Chunk {
	chunks := make([]Chunk, len(r))
	for i, c := range r {
		chunks[i] = c.Chunk
	}
	return chunks
}

// Source attributes part of an answer to one context chunk.
type Source struct {
	Content string `json:"content" yaml:"content"`
	Source  string `json:"source" yaml:"source"`
	Page    *int   `json:"page,omitempty" yaml:"page,omitempty"`
}

// Answer is the generated answer plus the attributions of the context used.
type Answer struct {
	Text      string
	Sources   []Source
	NoContext bool
}

// QueryRequest is the boundary request.
type QueryRequest struct {
	Question string `json:"question" yaml:"question"`
}

// QueryResponse is the boundary response.
type QueryResponse struct {
	Answer  string   `json:"answer" yaml:"answer"`
	Sources []Source `json:"sources" yaml:"sources"`
}
