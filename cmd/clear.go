package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// clearCmd clears a session's history on the backend
var clearCmd = &cobra.Command{
	Use:   "clear <user-id>",
	Short: "Clear a session's history on the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.ClearHistory(cmd.Context(), userID); err != nil {
			return requestError(client, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓")+" Cleared history for user "+strconv.Itoa(userID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
