package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"docqa/internal/answer"
	"docqa/internal/app"
	"docqa/internal/domain"

	"github.com/spf13/cobra"
)

var askOutput string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Ask(cmd.Context(), domain.QueryRequest{Question: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), askOutput, resp, func(w io.Writer) { app.WriteAnswer(w, resp) })
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the context chunks a question would be answered from",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ranked, err := a.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		hits := make([]searchHit, len(ranked))
		for i, c := range ranked {
			hits[i] = searchHit{
				ID:      c.Chunk.ID,
				Source:  c.Chunk.Source,
				Page:    c.Chunk.Page,
				Score:   c.Score,
				Ranker:  c.Ranker,
				Excerpt: answer.Excerpt(c.Chunk.Text, cfg.SourceExcerptChars),
			}
		}
		return render(cmd.OutOrStdout(), askOutput, hits, func(w io.Writer) {
			for i, h := range hits {
				fmt.Fprintf(w, "%d. %s (page %d, %s %.4f)\n   %s\n", i+1, h.Source, h.Page, h.Ranker, h.Score, h.Excerpt)
			}
		})
	},
}

type searchHit struct {
	ID      string  `json:"id" yaml:"id"`
	Source  string  `json:"source" yaml:"source"`
	Page    int     `json:"page" yaml:"page"`
	Score   float64 `json:"score" yaml:"score"`
	Ranker  string  `json:"ranker" yaml:"ranker"`
	Excerpt string  `json:"excerpt" yaml:"excerpt"`
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Answer questions read from stdin, one per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Run(cmd.Context(), os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{askCmd, searchCmd} {
		c.Flags().StringVarP(&askOutput, "output", "o", outputText, "output format: text, json or yaml")
	}
	rootCmd.AddCommand(askCmd, searchCmd, replCmd)
}
