package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"document-embed/internal/helper"
	"document-embed/internal/models"
	"document-embed/internal/settings"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		dir      string
		query    string
		noPrompt bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Prompt for missing settings, ingest a directory and run one query",
		Long: `Run the whole flow in one go:

  1. prompt for settings when a required one is empty
  2. read one line of JSON with setting overrides (empty to skip)
  3. ingest the documents directory
  4. query the collection and print a JSON summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if !noPrompt {
				if missing := a.settings.Missing(); len(missing) > 0 {
					a.log.Info().Strs("missing", missing).Msg("Settings need to be prompted")
					if err := a.settings.Prompt(ctx, in, out); err != nil {
						return err
					}
				}

				fmt.Fprint(out, "Enter JSON for updating settings (or leave empty to skip): ")
				line, err := settings.ReadLine(in)
				if err != nil {
					return err
				}
				if line != "" {
					if err := a.settings.UpdateFromJSON(ctx, []byte(line)); err != nil {
						return err
					}
				}
			}
			if missing := a.settings.Missing(); len(missing) > 0 {
				return fmt.Errorf("required settings are empty: %v", missing)
			}

			if dir == "" {
				dir = a.cfg.DocumentsDir
			}
			p, err := a.pipeline(ctx)
			if err != nil {
				return err
			}
			if _, err := p.Ingest(ctx, dir); err != nil {
				return err
			}

			summary := map[string]any{}
			for _, k := range []string{
				settings.KeyOllamaURL,
				settings.KeyCollectionName,
				settings.KeyEmbeddingModel,
				settings.KeyPort,
				settings.KeySQLiteWebPort,
				settings.KeyFlaskHost,
			} {
				summary[k] = a.settings.Get(k, "")
			}
			summary["query_result"] = nil
			if query != "" {
				res, err := p.Query(ctx, query, 1)
				if err != nil {
					return err
				}
				summary["query_result"] = bestMatch(res.Best())
			}
			return helper.PrettyPrint(out, summary)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of documents (default: documents_dir from config)")
	cmd.Flags().StringVar(&query, "query", "", "text to look up after ingesting")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never read settings from stdin")
	return cmd
}

// bestMatch is the query_result entry of the run summary: the identifier
// and vector of the closest record, or null.
func bestMatch(m models.Match, ok bool) any {
	if !ok {
		return nil
	}
	return []any{m.ID, m.Vector}
}
