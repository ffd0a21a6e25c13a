package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	prompts []string
	reply   string
	err     error
}

func (r *recorder) Generate(_ context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	return r.reply, r.err
}

func newAssembler(t *testing.T, gen llm.Generator, maxPrompt int) *Assembler {
	t.Helper()
	a, err := New(gen, Config{MaxPromptChars: maxPrompt, ExcerptChars: 500})
	require.NoError(t, err)
	return a
}

func ranked(chunks ...domain.Chunk) domain.Ranked {
	r := make(domain.Ranked, len(chunks))
	for i, ch := range chunks {
		r[i] = domain.Candidate{Chunk: ch, Score: float64(len(chunks) - i)}
	}
	return r
}

func TestAnswer_NoContext(t *testing.T) {
	gen := &recorder{reply: "should not be used"}
	a := newAssembler(t, gen, 12000)

	ans, err := a.Answer(context.Background(), "How many years of experience?", nil)
	require.NoError(t, err)

	assert.True(t, ans.NoContext)
	assert.Equal(t, NoInformation, ans.Text)
	assert.Empty(t, ans.Sources)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, gen.prompts, "generator must not be called")
}

func TestAnswer_Attributions(t *testing.T) {
	gen := &recorder{reply: "  John Doe has 10 years of experience [1].  "}
	a := newAssembler(t, gen, 12000)
	ch := domain.Chunk{ID: "c1", Text: "John Doe has 10 years in software engineering.", Source: "docs/cv/john_doe.pdf", Page: 1}

	ans, err := a.Answer(context.Background(), "How many years of experience?", ranked(ch))
	require.NoError(t, err)

	assert.Equal(t, "John Doe has 10 years of experience [1].", ans.Text)
	assert.False(t, ans.NoContext)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "john_doe.pdf", ans.Sources[0].Source)
	require.NotNil(t, ans.Sources[0].Page)
	assert.Equal(t, 1, *ans.Sources[0].Page)
	assert.Equal(t, ch.Text, ans.Sources[0].Content)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.True(t, strings.HasPrefix(p, "Answer using only the provided context. Cite sources."))
	assert.Contains(t, p, "[1] john_doe.pdf, page 1:\nJohn Doe has 10 years in software engineering.")
	assert.True(t, strings.HasSuffix(p, "Question: How many years of experience?"))
}

func TestAnswer_UnpagedSourceHasNoPage(t *testing.T) {
	a := newAssembler(t, &recorder{reply: "ok"}, 12000)

	ans, err := a.Answer(context.Background(), "q", ranked(domain.Chunk{Text: "t", Source: "notes.md"}))
	require.NoError(t, err)
	require.Len(t, ans.Sources, 1)
	assert.Nil(t, ans.Sources[0].Page)
}

func TestAnswer_SourcesMatchPromptedChunks(t *testing.T) {
	gen := &recorder{reply: "ok"}
	// Room for two 300-char chunks but not three.
	a := newAssembler(t, gen, 800)

	var chunks []domain.Chunk
	for _, s := range []string{"a.txt", "b.txt", "c.txt", "d.txt"} {
		chunks = append(chunks, domain.Chunk{Text: strings.Repeat("x", 300), Source: s})
	}

	ans, err := a.Answer(context.Background(), "q", ranked(chunks...))
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(gen.prompts[0]), 800)
	assert.Len(t, ans.Sources, 2)
	assert.Equal(t, []string{"a.txt", "b.txt"}, []string{ans.Sources[0].Source, ans.Sources[1].Source})
	assert.NotContains(t, gen.prompts[0], "c.txt")
}

func TestAnswer_GeneratorError(t *testing.T) {
	boom := errors.New("llm down")
	a := newAssembler(t, &recorder{err: boom}, 12000)

	_, err := a.Answer(context.Background(), "q", ranked(domain.Chunk{Text: "t", Source: "a.txt"}))
	assert.ErrorIs(t, err, boom)
}

func TestAnswer_QuestionTooLong(t *testing.T) {
	gen := &recorder{reply: "ok"}
	a := newAssembler(t, gen, 100)

	_, err := a.Answer(context.Background(), strings.Repeat("why ", 50), ranked(domain.Chunk{Text: "t", Source: "a.txt"}))
	assert.ErrorIs(t, err, domain.ErrQuestionTooLong)
	assert.Empty(t, gen.prompts)
}

func TestBuildPrompt_TruncatesFirstChunkToFit(t *testing.T) {
	long := domain.Chunk{Text: strings.Repeat("y", 5000), Source: "big.txt"}

	p, used := BuildPrompt("q?", []domain.Chunk{long}, 1000)

	assert.Equal(t, 1, used)
	assert.Equal(t, 1000, utf8.RuneCountInString(p))
	assert.Contains(t, p, "y"+TruncationMarker)
}

func TestBuildPrompt_CutsLaterChunkOnlyIfUseful(t *testing.T) {
	first := domain.Chunk{Text: strings.Repeat("a", 500), Source: "a.txt"}
	second := domain.Chunk{Text: strings.Repeat("b", 5000), Source: "b.txt"}

	_, used := BuildPrompt("q", []domain.Chunk{first, second}, 700)
	assert.Equal(t, 1, used, "the remainder is too short to be useful")

	p, used := BuildPrompt("q", []domain.Chunk{first, second}, 2000)
	assert.Equal(t, 2, used)
	assert.LessOrEqual(t, utf8.RuneCountInString(p), 2000)
}

func TestExcerpt(t *testing.T) {
	short := strings.Repeat("s", 500)
	assert.Equal(t, short, Excerpt(short, 500))

	long := strings.Repeat("l", 501)
	got := Excerpt(long, 500)
	assert.Equal(t, strings.Repeat("l", 500)+TruncationMarker, got)

	cyr := strings.Repeat("ж", 600)
	assert.Equal(t, 500+len(TruncationMarker), utf8.RuneCountInString(Excerpt(cyr, 500)))
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "cv.pdf", SourceLabel("docs/team/cv.pdf"))
	assert.Equal(t, "cv.pdf", SourceLabel(`docs\team\cv.pdf`))
	assert.Equal(t, "cv.pdf", SourceLabel("cv.pdf"))
	assert.Equal(t, "unknown", SourceLabel(""))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&recorder{}, Config{MaxPromptChars: 0, ExcerptChars: 500})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
