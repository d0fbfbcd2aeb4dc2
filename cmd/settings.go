package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"document-embed/internal/helper"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the persisted settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print every setting as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helper.PrettyPrint(cmd.OutOrStdout(), a.settings.All())
		},
	}, &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.settings.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}, &cobra.Command{
		Use:     "import <json>",
		Short:   "Set every key of a JSON object",
		Example: `  document-embed settings import '{"collection_name": "books", "chunk_size": 800}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.settings.UpdateFromJSON(cmd.Context(), []byte(args[0])); err != nil {
				return err
			}
			return helper.PrettyPrint(cmd.OutOrStdout(), a.settings.All())
		},
	}, &cobra.Command{
		Use:   "prompt",
		Short: "Interactively ask for every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.settings.Prompt(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	})
	return cmd
}
