package cmd

import (
	"time"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/iksnae/jonas-chat/internal/mockserver"
	"github.com/spf13/cobra"
)

var (
	mockAddr    string
	mockLatency time.Duration
)

var serveMockCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Run a local stand-in for the Jonas backend",
	Long: `Serve the Jonas HTTP API from memory. Replies echo the question back and
mark user stories, test cases and tasks the way the real agent does.

Point the client at it with --api-url http://localhost:8000.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := mockserver.New(mockserver.Config{
			Endpoints: internal.DefaultEndpoints(),
			Latency:   mockLatency,
		})
		internal.LogInfo("Mock backend listening on %s", mockAddr)
		return mockserver.Serve(cmd.Context(), mockAddr, s)
	},
}

func init() {
	rootCmd.AddCommand(serveMockCmd)
	serveMockCmd.Flags().StringVar(&mockAddr, "addr", ":8000", "Listen address")
	serveMockCmd.Flags().DurationVar(&mockLatency, "latency", 0, "Delay every chat reply, e.g. 2s")
}
