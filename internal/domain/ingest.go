package domain

// Outcome classifies an ingestion run.
type Outcome string

const (
	OutcomeIndexed     Outcome = "indexed"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeEmptyCorpus Outcome = "empty_corpus"
)

// FileFailure records a document skipped because it could not be read or
// parsed.
type FileFailure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	RunID           string        `json:"run_id" yaml:"run_id"`
	Outcome         Outcome       `json:"outcome" yaml:"outcome"`
	FilesSeen       int           `json:"files_seen" yaml:"files_seen"`
	FilesIndexed    int           `json:"files_indexed" yaml:"files_indexed"`
	FilesUnchanged  int           `json:"files_unchanged" yaml:"files_unchanged"`
	FilesPruned     int           `json:"files_pruned" yaml:"files_pruned"`
	ChunksProcessed int           `json:"chunks_processed" yaml:"chunks_processed"`
	ChunksRemoved   int           `json:"chunks_removed" yaml:"chunks_removed"`
	IndexSize       int           `json:"index_size" yaml:"index_size"`
	Failures        []FileFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}
