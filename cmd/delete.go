package cmd

import (
	"fmt"
	"strconv"

	"github.com/iksnae/modelchat/internal"
	"github.com/spf13/cobra"
)

// deleteCmd deletes a session on the backend
var deleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a session on the backend",
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
		if err := client.DeleteSession(cmd.Context(), userID); err != nil {
			return requestError(client, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓")+" Deleted session for user "+strconv.Itoa(userID))
		internal.LogInfo("deleted backend session for user %d", userID)
		return nil
	},
}

func parseUserID(arg string) (int, error) {
	userID, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: must be a number", arg)
	}
	return userID, checkUserID(userID)
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
