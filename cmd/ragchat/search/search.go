// Package searchcmder provides the search command that prints the chunks
// retrieved for a question.
package searchcmder

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragchat/cmd/ragchat/services"
	"github.com/papercomputeco/ragchat/pkg/cliui"
	"github.com/papercomputeco/ragchat/pkg/config"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

type searchCommander struct {
	question string
	quiet    bool
	raw      bool

	cfg    *config.Config
	logger *slog.Logger
}

const searchLongDesc string = `Search the vector store for the chunks most similar to a question.

The question is embedded with the configured embedding provider and the top-k
nearest chunks are printed in rank order.

Use --quiet to print only chunk ids, one per line.

Examples:
  ragchat search "what is retrieval augmented generation"
  ragchat search "how are chunks stored" --top-k 10
  ragchat search "pricing" --quiet --api-key sk-...`

const searchShortDesc string = "Search stored chunks"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = services.Load(cmd, services.RetrievalFlagKeys)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.logger, err = services.Logger(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]
			return cmder.run(cmd)
		},
	}

	cmd.Flags().String("api-key", "", "Embedding provider API key (default: $OPENAI_API_KEY)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only chunk ids, one per line")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal rendering")
	services.AddFlags(cmd, services.RetrievalFlagKeys)

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command) error {
	apiKey, err := services.APIKey(cmd, c.cfg.Embedding.Provider)
	if err != nil {
		return err
	}

	svc, err := services.New(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	chunks, err := svc.Retriever.Retrieve(cmd.Context(), apiKey, c.question, int(c.cfg.VectorStore.TopK))
	if err != nil {
		return err
	}

	return c.print(cmd.OutOrStdout(), chunks)
}

func (c *searchCommander) print(w io.Writer, chunks []vector.Chunk) error {
	if c.quiet {
		for _, chunk := range chunks {
			fmt.Fprintln(w, chunk.ID)
		}
		return nil
	}

	return cliui.WriteResults(w, c.question, chunks, c.raw)
}
