package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"textlab/internal/readability"
	"textlab/internal/watcher"
)

var (
	analyzeSentences bool
	analyzePattern   string
)

type analysis struct {
	readability.Report
	Sentences []readability.SentenceResult `json:"sentences,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|dir|->",
	Short: "Print the readability report of a document",
	Long: `Print the readability report of a document, or of stdin when the argument is "-".
Given a directory, a report is written next to every matching document instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		classifier, err := readability.NewDefaultClassifier()
		if err != nil {
			return err
		}

		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			pattern := analyzePattern
			if pattern == "" {
				pattern = cfg.Watch.Pattern
			}
			w, err := watcher.New(args[0], pattern, classifier)
			if err != nil {
				return err
			}
			n, err := w.Scan(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d reports\n", n)
			return nil
		}

		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		out := analysis{Report: classifier.Report(text)}
		if analyzeSentences {
			out.Sentences = classifier.Audit(text).Sentences
		}
		return printJSON(cmd, out)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeSentences, "sentences", false, "Include the per-sentence grades and skip reasons")
	analyzeCmd.Flags().StringVar(&analyzePattern, "pattern", "", "Glob for documents when analyzing a directory (default from config)")
}
