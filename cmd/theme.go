package cmd

import (
	"fmt"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light|toggle]",
	Short:     "Show or change the color theme",
	Long:      `Show the stored color theme, or set it. The choice is kept in the state database and used by chat, send and show.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"dark", "light", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := internal.EnsureDir(cfg.DataDir); err != nil {
			return err
		}
		store, err := internal.OpenStorage(cfg.StateDBPath())
		if err != nil {
			return fmt.Errorf("failed to open state database: %w", err)
		}
		defer func() { _ = store.Close() }()

		theme := internal.NewThemeStore(store)
		if len(args) == 1 {
			switch args[0] {
			case "dark":
				theme.Set(true)
			case "light":
				theme.Set(false)
			case "toggle":
				theme.Toggle()
			}
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
