package main

import (
	"github.com/spf13/cobra"

	"textlab/internal/orchestrator"
)

var (
	genModel      string
	genLength     string
	genOwner      string
	genCreativity float64
	sentimentDeep bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file|->",
	Short: "Summarize a document and compare its complexity with the source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, genOwner != "")
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.svc.Summarize(cmd.Context(), orchestrator.SummarizeRequest{
			Text:   text,
			Model:  genModel,
			Length: genLength,
			Owner:  genOwner,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

var paraphraseCmd = &cobra.Command{
	Use:   "paraphrase <file|->",
	Short: "Generate paraphrase candidates with their complexity and ROUGE scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, genOwner != "")
		if err != nil {
			return err
		}
		defer a.Close()

		creativity := genCreativity
		resp, err := a.svc.Paraphrase(cmd.Context(), orchestrator.ParaphraseRequest{
			Text:       text,
			Model:      genModel,
			Length:     genLength,
			Creativity: &creativity,
			Owner:      genOwner,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

var sentimentCmd = &cobra.Command{
	Use:   "sentiment <file|->",
	Short: "Score the sentiment of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.svc.Sentiment(cmd.Context(), orchestrator.SentimentRequest{Text: text, InDepth: sentimentDeep, Model: genModel})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

var insightCmd = &cobra.Command{
	Use:   "insight <file|->",
	Short: "Ask the model for an analysis of a document and suggestions to improve it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.svc.Insight(cmd.Context(), orchestrator.InsightRequest{Text: text, Model: genModel})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

func init() {
	for _, c := range []*cobra.Command{summarizeCmd, paraphraseCmd, sentimentCmd, insightCmd} {
		c.Flags().StringVarP(&genModel, "model", "m", "", "Model identifier (default from config)")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{summarizeCmd, paraphraseCmd} {
		c.Flags().StringVarP(&genLength, "length", "l", "medium", "Length selector: short, medium or long")
		c.Flags().StringVar(&genOwner, "owner", "", "Save the result to this owner's history")
	}
	paraphraseCmd.Flags().Float64Var(&genCreativity, "creativity", orchestrator.DefaultCreativity, "Sampling creativity in [0, 1.5]")
	sentimentCmd.Flags().BoolVar(&sentimentDeep, "in-depth", false, "Also ask the model for a label")
}
