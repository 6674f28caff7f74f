package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"textlab/internal/config"
	"textlab/internal/helper"
	"textlab/internal/models"
	"textlab/internal/parser"
)

const defaultConfigPath = "./configs/config.yaml"

var (
	configPath string
	verbose    bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "textlab",
	Short: "Readability analysis, summarization and paraphrasing",
	Long: `textlab measures how hard a text is to read, and uses language models to
summarize or paraphrase it while reporting how the result compares.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

		var err error
		cfg, err = config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}

		level, err := zerolog.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Debug().Str("config", configPath).Msg("Loaded config")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("textlab failed")
	}
}

// readInput returns the text of a document path, or of stdin for "-".
func readInput(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	doc, err := parser.ExtractText(arg)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedFormat) {
			return "", fmt.Errorf("%w (supported: %s)", err, strings.Join(parser.SupportedFormats, ", "))
		}
		return "", err
	}
	return doc.Text, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	return helper.PrettyPrint(cmd.OutOrStdout(), v)
}
