package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/render"
	"github.com/spf13/cobra"
)

var (
	sendUser int
	sendHTML bool
)

// sendCmd sends a single message outside an interactive session
var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send one message and print the reply",
	Long: `Send one message on behalf of a backend user and print the reply.

The message is taken from the arguments, joined with spaces.`,
	Example: `  modelchat send --user 10000 "What is a goroutine?"
  modelchat send --user 10001 --html "Show me a code block"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.TrimSpace(strings.Join(args, " "))
		if message == "" {
			return fmt.Errorf("message is empty")
		}
		if err := checkUserID(sendUser); err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		reply, err := client.SendMessage(cmd.Context(), sendUser, message)
		if err != nil {
			return requestError(client, err)
		}

		if sendHTML {
			reply = render.Render(reply)
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

// checkUserID rejects identities outside the client's pool
func checkUserID(userID int) error {
	pool := internal.DefaultAllocator()
	if !pool.Contains(userID) {
		lo, hi := pool.Range()
		return fmt.Errorf("user id %d is outside the session range [%d, %d]", userID, lo, hi)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().IntVarP(&sendUser, "user", "u", internal.DefaultIdentityLow, "Backend user id of the session")
	sendCmd.Flags().BoolVar(&sendHTML, "html", false, "Print the reply rendered as safe HTML")
}
