package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
	probeChat          bool
	probeQuery         string
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the backend and local state are reachable",
	Long: `Check the health of jonas-chat by verifying:
  • Configuration and data directory
  • The local state database
  • The backend /health endpoint
  • The session list

With --probe-chat a test message is also sent to the active session, retrying
connectivity failures and 5xx replies with exponential backoff. The probe
message and its reply are stored in that session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, sectionStyle.Render("Jonas Chat Health Check"))
		_, _ = fmt.Fprintln(out)

		// Step 1: Configuration
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		a, err := newApp()
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("✗ Configuration failed:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer func() { _ = a.Close() }()
		_, _ = fmt.Fprintln(out, successStyle.Render("✓ Configuration loaded"))
		if healthcheckDetails {
			_, _ = fmt.Fprintf(out, "   Backend: %s\n", a.cfg.API.BaseURL)
			_, _ = fmt.Fprintf(out, "   Timeout: %s\n", a.cfg.API.Timeout)
			_, _ = fmt.Fprintf(out, "   Data dir: %s\n", a.cfg.DataDir)
			_, _ = fmt.Fprintf(out, "   Cache dir: %s\n", a.cache.GetCacheDir())
		}
		_, _ = fmt.Fprintln(out)

		// Step 2: State database
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 2: Checking local state..."))
		keys, err := a.store.Keys("%")
		if err != nil {
			_, _ = fmt.Fprintln(out, warningStyle.Render("! State database unreadable:"), err)
		} else {
			_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ State database has %d entr(ies)", len(keys))))
			if healthcheckDetails {
				_, _ = fmt.Fprintf(out, "   Database: %s\n", a.cfg.StateDBPath())
				_, _ = fmt.Fprintf(out, "   Theme: %s\n", a.theme.Name())
			}
		}
		_, _ = fmt.Fprintln(out)

		ctx := cmd.Context()

		// Step 3: Backend health
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting backend..."))
		health, err := a.client.Health(ctx)
		if err != nil {
			if apiErr, ok := internal.AsAPIError(err); ok && apiErr.IsServerError() {
				_, _ = fmt.Fprintln(out, warningStyle.Render("! Backend reachable but degraded:"), err)
				return fmt.Errorf("health check failed: backend degraded: %w", err)
			}
			_, _ = fmt.Fprintln(out, errorStyle.Render("✗ Backend unreachable:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		if !health.Healthy() {
			_, _ = fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("✗ Backend reports status %q", health.Status)))
			return fmt.Errorf("health check failed: backend status %q", health.Status)
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("✓ Backend healthy"))
		if !health.AgentInitialized {
			_, _ = fmt.Fprintln(out, warningStyle.Render("! Agent not initialized yet, replies may fail"))
		}
		_, _ = fmt.Fprintln(out)

		// Step 4: Sessions
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 4: Listing sessions..."))
		list, err := a.client.ListSessions(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("✗ Failed to list sessions:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		if len(list.Sessions) > 0 {
			_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Found %d session(s)", len(list.Sessions))))
			if healthcheckDetails {
				printSessionSample(out, internal.NewReconciler(a.client).Reconcile(ctx, list.Sessions, nil))
			}
		} else {
			_, _ = fmt.Fprintln(out, warningStyle.Render("! No sessions found"))
		}
		_, _ = fmt.Fprintln(out)

		// Step 5: Chat probe
		if probeChat {
			_, _ = fmt.Fprintln(out, infoStyle.Render("Step 5: Probing chat endpoint..."))
			attempts := 0
			var resp *internal.ChatResponse
			err := internal.ShowProgress(ctx, "Waiting for a reply", func(ctx context.Context) error {
				var err error
				resp, err = a.client.SendMessageWithRetry(ctx, probeQuery, internal.DefaultRetryPolicy(), func(attempt int) {
					attempts = attempt
					if attempt > 1 {
						internal.LogInfo("Retrying chat probe (attempt %d)", attempt)
					}
				})
				return err
			})
			if err != nil {
				_, _ = fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("✗ Chat probe failed after %d attempt(s):", attempts)), err)
				return fmt.Errorf("health check failed: %w", err)
			}
			_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Chat replied after %d attempt(s)", attempts)))
			if healthcheckDetails {
				_, _ = fmt.Fprintf(out, "   Reply: %s\n", internal.ToMarkup(resp.Content))
			}
			_, _ = fmt.Fprintln(out)
		}

		_, _ = fmt.Fprintln(out, successStyle.Render("✓ Health check passed!"))
		return nil
	},
}

func printSessionSample(out io.Writer, sessions []internal.Session) {
	for i, s := range sessions {
		if i == 5 {
			_, _ = fmt.Fprintf(out, "   ... and %d more\n", len(sessions)-5)
			break
		}
		_, _ = fmt.Fprintf(out, "   [%d] %s\n", i+1, internal.Title(s))
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
	healthcheckCmd.Flags().BoolVar(&probeChat, "probe-chat", false, "Also send a test message with retries")
	healthcheckCmd.Flags().StringVar(&probeQuery, "probe-query", "ping", "Message sent by --probe-chat")
}
