package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"docqa/internal/domain"
)

// Run reads questions from in, one per line, and writes each answer with
// its sources to out. It returns when in is exhausted or ctx is done.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("ready, enter a question per line (Ctrl+C to exit)")

	scanner := bufio.NewScanner(in)

	// Questions may be pasted with long context.
	const maxLineSize = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return nil
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("stdin error: %w", err)
				}
				slog.Debug("stdin closed")
				return nil
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			a.handleQuestion(ctx, line, out)
		}
	}
}

func (a *App) handleQuestion(ctx context.Context, question string, out io.Writer) {
	resp, err := a.Ask(ctx, domain.QueryRequest{Question: question})
	if err != nil {
		if errors.Is(err, domain.ErrQueryFailed) {
			fmt.Fprintln(out, "Sorry, the question could not be answered right now.")
			return
		}
		fmt.Fprintf(out, "Invalid question: %v\n", err)
		return
	}
	WriteAnswer(out, resp)
}

// WriteAnswer prints resp in a human-readable form.
func WriteAnswer(out io.Writer, resp domain.QueryResponse) {
	fmt.Fprintf(out, "\n%s\n", resp.Answer)
	if len(resp.Sources) == 0 {
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintln(out, "\nSources:")
	for i, s := range resp.Sources {
		if s.Page != nil {
			fmt.Fprintf(out, "  [%d] %s, page %d\n", i+1, s.Source, *s.Page)
		} else {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, s.Source)
		}
	}
	fmt.Fprintln(out)
}
