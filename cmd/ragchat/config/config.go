// Package configcmder provides the config command for managing persistent
// ragchat configuration stored in the .ragchat/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragchat/pkg/config"
)

const configLongDesc string = `Manage persistent ragchat configuration.

Configuration is stored as config.toml in the .ragchat/ directory and provides
default values for command flags. CLI flags and RAGCHAT_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, api.request_timeout,
  embedding.provider, embedding.target, embedding.model, embedding.timeout,
  vector_store.provider, vector_store.target, vector_store.collection,
  vector_store.dimensions, vector_store.top_k, vector_store.timeout,
  events.provider, events.brokers, events.topic

Use subcommands to initialize, get, set, or list configuration values:
  ragchat config init --preset local   Write a preset config.toml
  ragchat config set <key> <value>     Set a configuration value
  ragchat config get <key>             Get a configuration value
  ragchat config list                  List all configuration values`

const configShortDesc string = "Manage persistent ragchat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}
