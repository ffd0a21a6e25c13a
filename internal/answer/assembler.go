// Package answer turns the final context into a bounded prompt, calls the
// generator and attributes the answer to the context it was given.
package answer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/llm"
)

// NoInformation is the answer given when the index holds nothing to
// answer from. The generator is not called in that case.
const NoInformation = "I don't have any indexed documents to answer this question from."

// TruncationMarker ends an excerpt that was cut.
const TruncationMarker = "..."

// minContextChars is the smallest useful remainder of a truncated chunk.
const minContextChars = 200

const (
	promptHeader = "Answer using only the provided context. Cite sources.\n\nContext:\n"
	promptFooter = "\nQuestion: "
)

// Config bounds the prompt and the attribution excerpts, in characters.
type Config struct {
	MaxPromptChars int
	ExcerptChars   int
}

// Assembler builds the prompt and the attributions.
type Assembler struct {
	gen llm.Generator
	cfg Config
}

func New(gen llm.Generator, cfg Config) (*Assembler, error) {
	if cfg.MaxPromptChars <= 0 || cfg.ExcerptChars <= 0 {
		return nil, fmt.Errorf("%w: prompt and excerpt bounds must be positive", domain.ErrInvalidConfig)
	}
	return &Assembler{gen: gen, cfg: cfg}, nil
}

// Answer generates an answer to question from ranked. Sources hold one
// entry per chunk that made it into the prompt, in rank order.
func (a *Assembler) Answer(ctx context.Context, question string, ranked domain.Ranked) (domain.Answer, error) {
	if len(ranked) == 0 {
		return domain.Answer{Text: NoInformation, Sources: []domain.Source{}, NoContext: true}, nil
	}

	prompt, used := BuildPrompt(question, ranked.Chunks(), a.cfg.MaxPromptChars)
	if used == 0 {
		return domain.Answer{}, fmt.Errorf("%w: %d characters", domain.ErrQuestionTooLong, utf8.RuneCountInString(question))
	}

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return domain.Answer{}, err
	}

	sources := make([]domain.Source, used)
	for i, ch := range ranked[:used].Chunks() {
		sources[i] = a.Attribute(ch)
	}
	return domain.Answer{Text: strings.TrimSpace(text), Sources: sources}, nil
}

// Attribute describes ch as an answer source.
func (a *Assembler) Attribute(ch domain.Chunk) domain.Source {
	src := domain.Source{
		Content: Excerpt(ch.Text, a.cfg.ExcerptChars),
		Source:  SourceLabel(ch.Source),
	}
	if ch.Page > 0 {
		page := ch.Page
		src.Page = &page
	}
	return src
}

// BuildPrompt lays out chunks in rank order between the instructions and
// the question, keeping the prompt within maxChars characters. Chunks are
// added whole while they fit; the first that does not fit is cut to the
// remaining room if at least a short passage fits, and the rest are
// dropped. It returns the prompt and the number of chunks it holds.
func BuildPrompt(question string, chunks []domain.Chunk, maxChars int) (string, int) {
	var buf strings.Builder
	buf.WriteString(promptHeader)

	fixed := utf8.RuneCountInString(promptHeader) + utf8.RuneCountInString(promptFooter) + utf8.RuneCountInString(question)
	room := maxChars - fixed

	used := 0
	for i, ch := range chunks {
		head := blockHeader(i+1, ch)
		need := utf8.RuneCountInString(head) + utf8.RuneCountInString(ch.Text) + 2
		if need <= room {
			buf.WriteString(head)
			buf.WriteString(ch.Text)
			buf.WriteString("\n\n")
			room -= need
			used++
			continue
		}

		textRoom := room - utf8.RuneCountInString(head) - 2 - len(TruncationMarker)
		if textRoom >= minContextChars || (used == 0 && textRoom > 0) {
			buf.WriteString(head)
			buf.WriteString(string([]rune(ch.Text)[:textRoom]))
			buf.WriteString(TruncationMarker)
			buf.WriteString("\n\n")
			used++
		}
		break
	}

	buf.WriteString(promptFooter)
	buf.WriteString(question)
	return buf.String(), used
}

func blockHeader(n int, ch domain.Chunk) string {
	if ch.Page > 0 {
		return fmt.Sprintf("[%d] %s, page %d:\n", n, SourceLabel(ch.Source), ch.Page)
	}
	return fmt.Sprintf("[%d] %s:\n", n, SourceLabel(ch.Source))
}

// Excerpt returns text cut to n characters, with TruncationMarker appended
// when it was cut.
func Excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + TruncationMarker
}

// SourceLabel is the base name of a source path.
func SourceLabel(source string) string {
	if source == "" {
		return "unknown"
	}
	return path.Base(strings.ReplaceAll(source, "\\", "/"))
}
