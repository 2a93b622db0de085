package cmd

import (
	"fmt"

	"github.com/iksnae/modelchat/internal"
	"github.com/spf13/cobra"
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the backend and the local archive are usable",
	Long: `Check the health of modelchat by verifying:
  • Configuration
  • Backend reachability and authentication
  • Session listing
  • Local archive access

Use --verbose for detailed diagnostic information.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, sectionStyle.Render("modelchat health check"))
		fmt.Fprintln(w)

		// Step 1: configuration
		fmt.Fprintln(w, infoStyle.Render("Step 1: Resolving configuration..."))
		fmt.Fprintln(w, successStyle.Render("✅ Configuration loaded"))
		if verbose {
			fmt.Fprintf(w, "   Server: %s\n", cfg.Server)
			fmt.Fprintf(w, "   Timeout: %v\n", cfg.Timeout.Duration)
			fmt.Fprintf(w, "   Cookie set: %t\n", cfg.SessionCookie != "")
		}
		fmt.Fprintln(w)

		client, err := newClient()
		if err != nil {
			fmt.Fprintln(w, errorStyle.Render("❌ Invalid server address:"), err)
			return err
		}

		// Step 2: authentication
		fmt.Fprintln(w, infoStyle.Render("Step 2: Checking backend authentication..."))
		user, err := client.CurrentUser(cmd.Context())
		if err != nil {
			err = requestError(client, err)
			fmt.Fprintln(w, errorStyle.Render("❌ Backend check failed:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(w, successStyle.Render("✅ Logged in as "+user))
		fmt.Fprintln(w)

		// Step 3: sessions
		fmt.Fprintln(w, infoStyle.Render("Step 3: Listing sessions..."))
		sessions, err := client.ListSessions(cmd.Context())
		if err != nil {
			err = requestError(client, err)
			fmt.Fprintln(w, errorStyle.Render("❌ Failed to list sessions:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Found %d session(s)", len(sessions))))
		if verbose {
			for i, session := range sessions {
				if i == 5 {
					fmt.Fprintf(w, "   ... and %d more\n", len(sessions)-5)
					break
				}
				fmt.Fprintf(w, "   [%d] %s (user %d)\n", i+1, session.Name, session.UserID)
			}
		}
		fmt.Fprintln(w)

		// Step 4: archive
		fmt.Fprintln(w, infoStyle.Render("Step 4: Opening local archive..."))
		archive, err := openArchive()
		if err == nil {
			var archived []*internal.Session
			archived, err = archive.LoadSessions()
			_ = archive.Close()
			if err == nil {
				fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Archive holds %d session(s)", len(archived))))
			}
		}
		if err != nil {
			fmt.Fprintln(w, warningStyle.Render("⚠️  Archive unavailable:"), err)
		}
		if verbose {
			if path, pathErr := archivePath(); pathErr == nil {
				fmt.Fprintf(w, "   Path: %s\n", path)
			}
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, sectionStyle.Render("Summary"))
		fmt.Fprintln(w)
		fmt.Fprintln(w, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
