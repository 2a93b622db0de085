package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyJSON bool

// historyCmd prints the model memory the backend keeps for a user
var historyCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Show the backend's conversation memory for a user",
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
		history, err := client.History(cmd.Context(), userID)
		if err != nil {
			return requestError(client, err)
		}

		w := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(history)
		}
		if len(history) == 0 {
			fmt.Fprintln(w, headerStyle.Render("No history"))
			return nil
		}
		for _, entry := range history {
			style := assistantStyle
			if entry.Role == "user" {
				style = userStyle
			}
			fmt.Fprintf(w, "%s\n%s\n\n", style.Render(entry.Role+":"), entry.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print as JSON")
}
