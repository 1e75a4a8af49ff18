// Package ragchatcmder is the root ragchat command.
package ragchatcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/ragchat/cmd/ragchat/config"
	ingestcmder "github.com/papercomputeco/ragchat/cmd/ragchat/ingest"
	searchcmder "github.com/papercomputeco/ragchat/cmd/ragchat/search"
	servecmder "github.com/papercomputeco/ragchat/cmd/ragchat/serve"
	versioncmder "github.com/papercomputeco/ragchat/cmd/version"
)

const ragchatLongDesc string = `ragchat is the retrieval backend of a RAG chatbot.

It embeds questions and chunks through an embedding provider and stores and
searches them in a vector store.

  ragchat serve                 Run the chat and ingestion API
  ragchat search "question"     Print the chunks retrieved for a question
  ragchat ingest --file f.json  Embed and store chunks
  ragchat config list           Show the resolved configuration`

const ragchatShortDesc string = "ragchat - RAG retrieval backend"

func NewRagchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ragchat",
		Short:         ragchatShortDesc,
		Long:          ragchatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json, pretty)")
	cmd.PersistentFlags().String("config-dir", "", "Override the .ragchat/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
