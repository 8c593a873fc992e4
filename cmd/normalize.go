package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var normalizeHTML bool

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Convert assistant HTML to plain markup",
	Long: `Read an assistant reply from a file or stdin and print it the way the
chat displays it: HTML tags become **bold**, *italic*, list bullets and line
breaks, entities are decoded and whitespace is tidied.

With --html the markup is converted back to inline HTML instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		out := internal.ToMarkup(string(data))
		if normalizeHTML {
			out = internal.FormatMessageContent(out)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().BoolVar(&normalizeHTML, "html", false, "Render the markup as inline HTML")
}
