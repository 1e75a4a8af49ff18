// Package ingestcmder provides the ingest command that embeds and stores
// chunks from a JSON file.
package ingestcmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragchat/api"
	"github.com/papercomputeco/ragchat/cmd/ragchat/services"
	"github.com/papercomputeco/ragchat/pkg/cliui"
	"github.com/papercomputeco/ragchat/pkg/config"
	"github.com/papercomputeco/ragchat/pkg/retrieval"
)

type ingestCommander struct {
	file string

	cfg    *config.Config
	logger *slog.Logger
}

const ingestLongDesc string = `Embed chunks and upsert them into the vector store.

The input is a JSON array of chunks:

  [{"id": "optional", "text": "...", "documentId": "doc-1", "url": "https://..."}]

Chunks without an id get a random UUID. Saved ids are printed one per line
in input order. Re-ingesting chunks with the same ids overwrites them.

Examples:
  ragchat ingest --file chunks.json
  cat chunks.json | ragchat ingest --file -`

const ingestShortDesc string = "Embed and store chunks"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = services.Load(cmd, services.RetrievalFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.logger, err = services.Logger(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "JSON file of chunks, or - for stdin")
	cmd.Flags().String("api-key", "", "Embedding provider API key (default: $OPENAI_API_KEY)")
	_ = cmd.MarkFlagRequired("file")
	services.AddFlags(cmd, services.RetrievalFlagKeys)

	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command) error {
	docs, err := c.readDocuments(cmd.InOrStdin())
	if err != nil {
		return err
	}

	apiKey, err := services.APIKey(cmd, c.cfg.Embedding.Provider)
	if err != nil {
		return err
	}

	svc, err := services.New(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	var ids []string
	msg := fmt.Sprintf("Embedding and saving %d chunks", len(docs))
	err = cliui.Step(cmd.ErrOrStderr(), msg, func() error {
		var ingestErr error
		ids, ingestErr = svc.Retriever.Ingest(cmd.Context(), apiKey, docs)
		return ingestErr
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func (c *ingestCommander) readDocuments(stdin io.Reader) ([]retrieval.Document, error) {
	var r io.Reader
	if c.file == "-" {
		r = stdin
	} else {
		f, err := os.Open(c.file)
		if err != nil {
			return nil, fmt.Errorf("opening chunks file: %w", err)
		}
		defer f.Close()
		r = f
	}

	return DecodeDocuments(r)
}

// DecodeDocuments reads a JSON array of chunks.
func DecodeDocuments(r io.Reader) ([]retrieval.Document, error) {
	var chunks []api.IngestChunk
	if err := json.NewDecoder(r).Decode(&chunks); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("chunks file is empty")
		}
		return nil, fmt.Errorf("decoding chunks: %w", err)
	}

	docs := make([]retrieval.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = retrieval.Document{
			ID:         chunk.ID,
			Text:       chunk.Text,
			DocumentID: chunk.DocumentID,
			URL:        chunk.URL,
		}
	}
	return docs, nil
}
