package main

import (
	"fmt"
	"io"
	"time"

	"docqa/internal/domain"
	"docqa/internal/ingest"

	"github.com/spf13/cobra"
)

var ingestFlags struct {
	force      bool
	prune      bool
	watch      bool
	allowEmpty bool
	debounce   time.Duration
	output     string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the documents directory",
	Long: `Loads, chunks and embeds every supported file under the documents
directory. Files unchanged since the last run are skipped unless --force is
given. With --watch, ingestion runs again whenever files change.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.BoolVar(&ingestFlags.force, "force", false, "reprocess files even when unchanged")
	f.BoolVar(&ingestFlags.prune, "prune", true, "remove sources that no longer exist from the index")
	f.BoolVar(&ingestFlags.watch, "watch", false, "keep running and re-ingest on file changes")
	f.BoolVar(&ingestFlags.allowEmpty, "allow-empty", false, "do not fail when no text could be extracted")
	f.DurationVar(&ingestFlags.debounce, "debounce", ingest.DefaultDebounce, "quiet period before a watch-triggered run")
	f.StringVarP(&ingestFlags.output, "output", "o", outputText, "output format: text, json or yaml")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := ingest.Options{Force: ingestFlags.force, Prune: ingestFlags.prune}
	if ingestFlags.watch {
		return a.Watch(cmd.Context(), opts, ingestFlags.debounce)
	}

	report, err := a.Ingest(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if err := render(cmd.OutOrStdout(), ingestFlags.output, report, func(w io.Writer) { writeReport(w, report) }); err != nil {
		return err
	}
	if report.Outcome == domain.OutcomeEmptyCorpus && !ingestFlags.allowEmpty {
		return fmt.Errorf("%w in %s", domain.ErrEmptyCorpus, cfg.DocsDir)
	}
	return nil
}

func writeReport(w io.Writer, r domain.IngestReport) {
	fmt.Fprintf(w, "Outcome:          %s\n", r.Outcome)
	fmt.Fprintf(w, "Files seen:       %d\n", r.FilesSeen)
	fmt.Fprintf(w, "Files indexed:    %d\n", r.FilesIndexed)
	fmt.Fprintf(w, "Files unchanged:  %d\n", r.FilesUnchanged)
	fmt.Fprintf(w, "Files pruned:     %d\n", r.FilesPruned)
	fmt.Fprintf(w, "Chunks processed: %d\n", r.ChunksProcessed)
	fmt.Fprintf(w, "Chunks removed:   %d\n", r.ChunksRemoved)
	fmt.Fprintf(w, "Index size:       %d\n", r.IndexSize)
	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "Failed files:     %d\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
		}
	}
}
