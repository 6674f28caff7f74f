package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"textlab/internal/db"
)

var (
	ownerUsername string
	historySearch string
	historyLimit  int
)

var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Manage history owners",
}

var ownerAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Register an owner so operations can be saved to their history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		exists, err := store.OwnerExists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("owner %s already exists", args[0])
		}

		owner, err := store.CreateOwner(cmd.Context(), args[0], ownerUsername)
		if err != nil {
			return err
		}
		return printJSON(cmd, owner)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <owner>",
	Short: "List an owner's saved operations, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if historySearch == "" {
			store, err := db.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		}

		if !cfg.HistoryIndex.Enabled {
			return fmt.Errorf("history search needs history_index.enabled in %s", configPath)
		}
		index, err := openIndex(cfg)
		if err != nil {
			return err
		}
		hits, err := index.Search(cmd.Context(), args[0], historySearch, historyLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd, hits)
	},
}

func init() {
	ownerAddCmd.Flags().StringVarP(&ownerUsername, "username", "u", "", "Display name")
	ownerCmd.AddCommand(ownerAddCmd)
	rootCmd.AddCommand(ownerCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "Semantic search query instead of a full listing")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 5, "Maximum number of search hits")
}
