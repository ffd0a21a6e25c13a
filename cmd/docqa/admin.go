package main

import (
	"fmt"
	"io"
	"time"

	"docqa/internal/app"

	"github.com/spf13/cobra"
)

var statsOutput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index size and the configured models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), statsOutput, s, func(w io.Writer) { writeStats(w, s) })
	},
}

func writeStats(w io.Writer, s app.Stats) {
	fmt.Fprintf(w, "Collection:  %s\n", s.Collection)
	fmt.Fprintf(w, "Chunks:      %d\n", s.Chunks)
	fmt.Fprintf(w, "Files:       %d\n", s.Files)
	fmt.Fprintf(w, "Embed model: %s\n", s.EmbedModel)
	fmt.Fprintf(w, "LLM model:   %s\n", s.LLMModel)
	fmt.Fprintf(w, "Reranker:    %s\n", s.Reranker)
	if s.LastRun != nil {
		fmt.Fprintf(w, "Last run:    %s (%s, %s)\n", s.LastRun.ID, s.LastRun.Outcome, s.LastRun.FinishedAt.Format(time.RFC3339))
	}
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Back up the index to a file (gzip-compressed when it ends in .gz)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Export(cmd.Context(), args[0])
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the index with a backup made by export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Import(cmd.Context(), args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify Ollama is reachable and pull missing models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Check(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("All models are available.")
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", outputText, "output format: text, json or yaml")
	rootCmd.AddCommand(statsCmd, exportCmd, importCmd, checkCmd)
}
