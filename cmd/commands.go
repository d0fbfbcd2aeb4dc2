package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"document-embed/internal/chromemdb"
	"document-embed/internal/helper"
	"document-embed/internal/llmservice"
	"document-embed/internal/logging"
	"document-embed/internal/models"
	"document-embed/internal/settings"
)

func newIngestCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed and store every document of a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.DocumentsDir
			}
			p, err := a.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.Ingest(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return helper.PrettyPrint(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of documents (default: documents_dir from config)")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Find the stored chunks closest to a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.Query(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			return helper.PrettyPrint(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 1, "number of matches to return")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question using the closest stored chunks as context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.agent()
			if err != nil {
				return err
			}
			p, err := a.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.Query(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			passages := make([]string, 0, len(res.Records))
			for _, r := range res.Records {
				passages = append(passages, r.Text)
			}
			if len(passages) == 0 {
				a.log.Warn().Msg("No stored chunks, asking without context")
			}
			answer, err := agent.Ask(cmd.Context(), args[0], llmservice.JoinContext(passages))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 3, "number of chunks used as context")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var withVectors bool
	cmd := &cobra.Command{
		Use:   "search <document name>",
		Short: "List stored chunks whose document name contains a substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.documents(cmd.Context())
			if err != nil {
				return err
			}
			records, err := store.SearchByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !withVectors {
				for i := range records {
					records[i].Vector = nil
				}
			}
			return helper.PrettyPrint(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().BoolVar(&withVectors, "vectors", false, "include vectors in the output")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.documents(cmd.Context())
			if err != nil {
				return err
			}
			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored chunk of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.documents(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared collection %s\n", a.settings.Get(settings.KeyCollectionName, ""))
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection to a chromem-go database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := a.settings.Get(settings.KeyCollectionName, "")
			if out == "" {
				out = filepath.Join(a.cfg.Export.Dir, collection+".gob")
			}
			store, err := a.documents(cmd.Context())
			if err != nil {
				return err
			}
			records, err := store.Records(cmd.Context())
			if err != nil {
				return err
			}
			opts := chromemdb.ExportOptions{
				Path:          out,
				Collection:    collection,
				EncryptionKey: a.cfg.Export.EncryptionKey,
				Compress:      a.cfg.Export.Compress,
			}
			log := logging.Component(a.log, "export")
			n, err := chromemdb.Export(cmd.Context(), records, opts, log)
			if err != nil {
				return err
			}
			summary := map[string]any{
				"file":       out,
				"collection": collection,
				"documents":  n,
			}
			if verify {
				var probe models.EmbeddingRecord
				for _, r := range records {
					if len(r.Vector) > 0 {
						probe = r
						break
					}
				}
				imported, err := chromemdb.Verify(cmd.Context(), opts, probe, log)
				if err != nil {
					return err
				}
				if imported != n {
					return fmt.Errorf("%w: exported %d documents, file holds %d", models.ErrMalformed, n, imported)
				}
				summary["verified"] = true
			}
			return helper.PrettyPrint(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default: <export.dir>/<collection>.gob)")
	cmd.Flags().BoolVar(&verify, "verify", false, "re-import the file and check it answers a query")
	return cmd
}
