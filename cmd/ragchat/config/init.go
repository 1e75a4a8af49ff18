package configcmder

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragchat/pkg/cliui"
	"github.com/papercomputeco/ragchat/pkg/config"
)

const initLongDesc string = `Write a config.toml for a preset.

Presets:
  openai   OpenAI embeddings into Qdrant at localhost:6333 (the defaults)
  ollama   Ollama embeddings into Qdrant at localhost:6333
  local    Ollama embeddings into an embedded sqlite-vec database

An existing config.toml is kept unless --force is given.

Examples:
  ragchat config init
  ragchat config init --preset local --force`

const initShortDesc string = "Write a preset config.toml"

func newInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(cmd, configDir, preset, force)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "openai", "Preset name (openai, ollama, local)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.toml")

	return cmd
}

func runInit(cmd *cobra.Command, configDir, preset string, force bool) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", target)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Wrote %s preset to %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(preset),
		cliui.DimStyle.Render(target),
	)
	return nil
}
