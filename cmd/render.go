package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/iksnae/modelchat/internal/render"
	"github.com/spf13/cobra"
)

// renderCmd runs the message renderer on a file or stdin
var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render chat text to safe HTML",
	Long: `Render chat text the way message bodies are rendered in HTML exports.

Reads the named file, or stdin when no file is given or the file is "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Render(string(data)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
