package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/iksnae/jonas-chat/internal"
)

// Run starts the chat screen in alt-screen mode and blocks until the user
// quits or ctx is cancelled. Controller and theme changes reach the program
// through their subscriptions.
func Run(ctx context.Context, chat Chat, theme *internal.ThemeStore) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(ctx, chat, theme)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := chat.Subscribe(func(state internal.State) {
		p.Send(stateMsg{state: state})
	})
	defer unsubscribe()

	if theme != nil {
		// Subscribe replays the current value, which must not block Run
		go func() {
			stop := theme.Subscribe(func(dark bool) {
				p.Send(themeMsg{dark: dark})
			})
			<-ctx.Done()
			stop()
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
