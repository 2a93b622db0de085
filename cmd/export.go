package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format       string
	outputDir    string
	sessionID    string
	exportSource string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to files",
	Long: `Export chat sessions to various formats (` + strings.Join(export.Formats, ", ") + `).

Sessions come from the local archive written by 'modelchat chat --archive',
or straight from the backend with --source server. A single session picked
with --session is written to stdout unless --out is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		sessions, err := loadExportSessions(cmd.Context())
		if err != nil {
			return err
		}

		if sessionID != "" {
			filtered := make([]*internal.Session, 0, 1)
			for _, session := range sessions {
				if session.ID == sessionID {
					filtered = append(filtered, session)
					break
				}
			}
			if len(filtered) == 0 {
				return fmt.Errorf("session not found: %s (use 'modelchat sessions' to see available sessions)", sessionID)
			}
			sessions = filtered

			if !cmd.Flags().Changed("out") {
				return exporter.Export(sessions[0], cmd.OutOrStdout())
			}
		}

		if len(sessions) == 0 {
			internal.PrintWarning("No sessions to export")
			return nil
		}

		dir := outputDir
		if !cmd.Flags().Changed("out") && cfg.ExportDir != "" {
			dir = cfg.ExportDir
		}

		var paths []string
		err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Exporting %d session(s) to %s", len(sessions), dir), func() error {
			var exportErr error
			paths, exportErr = export.ExportAll(cmd.Context(), exporter, sessions, dir)
			return exportErr
		})
		if err != nil {
			return err
		}

		for _, path := range paths {
			internal.LogInfo("wrote %s", path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Export complete: %d session(s) exported to %s\n", len(paths), dir)
		return nil
	},
}

func loadExportSessions(ctx context.Context) ([]*internal.Session, error) {
	switch exportSource {
	case "archive":
		archive, err := openArchive()
		if err != nil {
			return nil, err
		}
		defer archive.Close()
		return archive.LoadSessions()
	case "server":
		client, err := newClient()
		if err != nil {
			return nil, err
		}
		sessions, err := client.ListSessions(ctx)
		if err != nil {
			return nil, requestError(client, err)
		}
		return sessions, nil
	default:
		return nil, fmt.Errorf("unsupported source: %s (supported: archive, server)", exportSource)
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format ("+strings.Join(export.Formats, ", ")+")")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session", "", "Export a specific session by ID")
	exportCmd.Flags().StringVar(&exportSource, "source", "archive", "Where to read sessions from (archive, server)")
}
