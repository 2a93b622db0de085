package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/modelchat/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configCmd groups the settings subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or write modelchat settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings",
	Long:  `Print the settings after the config file, MODELCHAT_* variables and flags are applied.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.SessionCookie != "" {
			shown.SessionCookie = "(set)"
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(&shown); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the resolved settings to a config file",
	Long: `Write the resolved settings to a config file, ~/.modelchat/config.yaml by
default. A path ending in .toml is written as TOML. An existing file is only
replaced with --force.`,
	Example: `  modelchat config init --server https://chat.example.com
  modelchat config init ./modelchat.toml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "config.yaml")
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓")+" Wrote "+path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Replace an existing file")
}
