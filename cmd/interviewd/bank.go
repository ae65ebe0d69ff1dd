package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/interviewd/internal/retrieval"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import users, modules and questions from a TOML bank",
		Long: `Import a question bank into the store. Existing entries with the same
ids are replaced.

Examples:
  interviewd seed --file bank.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bank, err := store.LoadBank(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			if err := rt.store.Import(ctx, bank); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users, %d modules, %d questions\n",
				len(bank.Users), len(bank.Modules), len(bank.Questions))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "bank.toml", "question bank file")
	return cmd
}

func newIndexCmd() *cobra.Command {
	var (
		module    string
		file      string
		chunkSize int
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index topic notes for context retrieval",
		Long: `Split a markdown or text document into chunks and store them in the
configured retrieval backend under a module code. Re-indexing the same
text is idempotent.

Examples:
  interviewd index --module DSA --file notes/dsa.md
  INTERVIEWD_RETRIEVAL_BACKEND=qdrant interviewd index -m OS -f notes/os.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if module == "" {
				return fmt.Errorf("--module is required")
			}
			doc, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", file, err)
			}
			chunks := retrieval.Chunk(string(doc), chunkSize)
			if len(chunks) == 0 {
				return fmt.Errorf("%s: %w", file, retrieval.ErrEmptyChunks)
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, configPath)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			backend, err := retrieval.New(ctx, rt.cfg.Retrieval, rt.logger)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			n, err := backend.Index(ctx, module, chunks)
			if err != nil {
				return fmt.Errorf("index %s: %w", module, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks for %s into %s\n", n, module, rt.cfg.Retrieval.Backend)
			return nil
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "module code the chunks belong to")
	cmd.Flags().StringVarP(&file, "file", "f", "", "document to index")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", retrieval.DefaultChunkSize, "maximum characters per chunk")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
