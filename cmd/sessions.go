package cmd

import (
	"github.com/spf13/cobra"
)

// sessionsCmd lists the sessions the backend knows about
var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "List sessions on the backend",
	Long: `List the conversation sessions stored on the backend, most recent first.

The User column is the backend identity used by send, delete, clear and history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		sessions, err := client.ListSessions(cmd.Context())
		if err != nil {
			return requestError(client, err)
		}
		printSessionTable(cmd.OutOrStdout(), sessions, "")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
