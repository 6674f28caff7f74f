package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"textlab/internal/readability"
	"textlab/internal/watcher"
)

var (
	watchPattern string
	watchScan    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Write a readability report next to every new or changed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		classifier, err := readability.NewDefaultClassifier()
		if err != nil {
			return err
		}
		pattern := watchPattern
		if pattern == "" {
			pattern = cfg.Watch.Pattern
		}
		w, err := watcher.New(args[0], pattern, classifier)
		if err != nil {
			return err
		}
		if watchScan {
			if _, err := w.Scan(ctx); err != nil {
				return err
			}
		}
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchPattern, "pattern", "p", "", "Glob for documents to analyze (default from config)")
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "Analyze existing documents before watching")
}
