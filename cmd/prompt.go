package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// promptCmd shows the backend's system prompt
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Show or change the backend's system prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		prompt, err := client.SystemPrompt(cmd.Context())
		if err != nil {
			return requestError(client, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	},
}

var promptSetCmd = &cobra.Command{
	Use:   "set <text>",
	Short: "Replace the backend's system prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			return fmt.Errorf("prompt is empty")
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.SetSystemPrompt(cmd.Context(), prompt); err != nil {
			return requestError(client, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓")+" System prompt updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.AddCommand(promptSetCmd)
}
