package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/iksnae/jonas-chat/internal"
)

// Chat is the controller surface the TUI drives
type Chat interface {
	Snapshot() internal.State
	Subscribe(fn func(internal.State)) func()
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	Send(ctx context.Context, text string) (internal.Message, error)
	SendPreferences(ctx context.Context, messageID string) (internal.Message, error)
	SetMetadataFlag(messageID, key string, value bool) error
	SubmitEditedResponse(ctx context.Context, text string) (internal.Message, error)
	NewChat(ctx context.Context) (internal.Session, error)
	Switch(ctx context.Context, session internal.Session) error
	Delete(ctx context.Context, session internal.Session) error
	ClearHistory(ctx context.Context) error
	DeleteAll(ctx context.Context) (*internal.BulkDeleteResult, error)
	ClearError()
}

// ---------- messages ----------

type stateMsg struct{ state internal.State }
type themeMsg struct{ dark bool }

// opDoneMsg reports a finished controller call. Controller calls always run
// inside commands since they publish to subscribers that send back into the
// program.
type opDoneMsg struct {
	op  string
	err error
}

type mode int

const (
	modeChat mode = iota
	modeSessions
	modePreferences
	modeEdit
)

const (
	headerHeight = 1
	footerHeight = 3 // banner, status bar, input
)

// Model is the bubbletea model of the chat screen
type Model struct {
	ctx   context.Context
	chat  Chat
	theme *internal.ThemeStore
	now   func() time.Time

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	width    int
	height   int

	state  internal.State
	dark   bool
	styles styles
	mode   mode
	notice string

	cursor        int
	prefMessageID string
	confirmWipe   bool

	renderer    *glamour.TermRenderer
	rendered    map[string]string
	lastContent string

	quitting bool
}

// NewModel creates the chat screen for chat. theme may be nil.
func NewModel(ctx context.Context, chat Chat, theme *internal.ThemeStore) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask Jonas anything..."
	ti.CharLimit = 4096
	ti.Focus()

	dark := internal.DefaultDarkTheme
	if theme != nil {
		dark = theme.IsDark()
	}
	st := newStyles(dark)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.spinner

	m := Model{
		ctx:      ctx,
		chat:     chat,
		theme:    theme,
		now:      time.Now,
		viewport: viewport.New(80, 20),
		input:    ti,
		spinner:  sp,
		width:    80,
		height:   24,
		state:    chat.Snapshot(),
		dark:     dark,
		styles:   st,
		rendered: make(map[string]string),
	}
	m.layout()
	m.refreshContent()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.run("load", m.chat.Load))
}

// run wraps a controller call in a command
func (m *Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.resetRenderer()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.refreshContent()
		}
		return m, cmd

	case stateMsg:
		m.setState(msg.state)

	case themeMsg:
		m.setTheme(msg.dark)

	case opDoneMsg:
		m.setState(m.chat.Snapshot())
		if msg.err != nil {
			m.noteError(msg.op, msg.err)
		}

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			m.refreshContent()
			return m, cmd
		}
		if m.mode == modeChat || m.mode == modeEdit {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	m.refreshContent()
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := m.styles.header.Width(m.width).MaxHeight(1).Render(m.headerText())

	var banner string
	switch {
	case m.state.Error != "":
		banner = m.styles.errorBar.Render("✗ " + m.state.Error + " (esc to dismiss)")
	case m.notice != "":
		banner = m.styles.notice.Render(m.notice)
	}

	status := m.styles.statusBar.Width(m.width).MaxHeight(1).Render(m.statusText())

	var input string
	if m.mode == modeChat || m.mode == modeEdit {
		input = m.input.View()
	}

	return header + "\n" + m.viewport.View() + "\n" + banner + "\n" + status + "\n" + input
}

// ---------- keys ----------

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return tea.Quit, true
	case "pgup":
		m.viewport.PageUp()
		return nil, true
	case "pgdown":
		m.viewport.PageDown()
		return nil, true
	case "ctrl+t":
		return m.toggleThemeCmd(), true
	}

	switch m.mode {
	case modeSessions:
		return m.handleSessionKey(msg)
	case modePreferences:
		return m.handlePreferenceKey(msg)
	case modeEdit:
		return m.handleEditKey(msg)
	default:
		return m.handleChatKey(msg)
	}
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	chat := m.chat
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.state.Loading {
			return nil, true
		}
		m.input.SetValue("")
		m.notice = ""
		return m.sendCmd(text), true
	case "esc":
		m.notice = ""
		if m.state.Error != "" {
			return m.run("dismiss", func(context.Context) error {
				chat.ClearError()
				return nil
			}), true
		}
		return nil, true
	case "ctrl+n":
		return m.newChatCmd(), true
	case "ctrl+l":
		return m.run("clear history", chat.ClearHistory), true
	case "ctrl+r":
		return m.run("refresh", chat.Refresh), true
	case "tab", "ctrl+o":
		m.enterSessions()
		return nil, true
	case "ctrl+p":
		m.enterPreferences()
		return nil, true
	case "ctrl+e":
		m.enterEdit()
		return nil, true
	case "1", "2", "3", "4":
		// starter prompts only while the chat and the input are empty
		if len(m.state.Messages) > 0 || m.state.Loading || m.input.Value() != "" {
			return nil, false
		}
		m.input.SetValue(exampleQueries[msg.String()[0]-'1'])
		m.input.CursorEnd()
		return nil, true
	}
	return nil, false
}

// exampleQueries are offered on an empty chat, picked with keys 1-4
var exampleQueries = []string{
	"Create user story for login feature",
	"Generate test cases for user registration",
	"Write acceptance criteria for payment process",
	"Create user story for dashboard analytics",
}

func (m *Model) handleSessionKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	chat := m.chat
	sessions := m.state.Sessions
	wipe := m.confirmWipe
	m.confirmWipe = false

	switch msg.String() {
	case "esc", "tab", "ctrl+o":
		m.leaveMode()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(sessions)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(sessions) {
			return nil, true
		}
		target := sessions[m.cursor]
		m.leaveMode()
		return m.run("switch", func(ctx context.Context) error {
			return chat.Switch(ctx, target)
		}), true
	case "n":
		m.leaveMode()
		return m.newChatCmd(), true
	case "d", "delete":
		if m.cursor >= len(sessions) {
			return nil, true
		}
		target := sessions[m.cursor]
		return m.run("delete", func(ctx context.Context) error {
			return chat.Delete(ctx, target)
		}), true
	case "D":
		if !wipe {
			m.confirmWipe = true
			m.notice = "Press D again to delete every chat"
			return nil, true
		}
		m.notice = ""
		return m.run("delete all", func(ctx context.Context) error {
			_, err := chat.DeleteAll(ctx)
			return err
		}), true
	}
	return nil, true
}

func (m *Model) handlePreferenceKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	chat := m.chat
	target, ok := m.prefMessage()
	if !ok {
		m.leaveMode()
		return nil, true
	}
	keys := target.Metadata.EditableKeys()

	switch msg.String() {
	case "esc":
		m.leaveMode()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(keys)-1 {
			m.cursor++
		}
	case " ", "x":
		if m.cursor >= len(keys) {
			return nil, true
		}
		id, key := target.ID, keys[m.cursor]
		value := !target.Metadata[key].Bool
		return m.run("toggle preference", func(context.Context) error {
			return chat.SetMetadataFlag(id, key, value)
		}), true
	case "enter":
		id := target.ID
		m.leaveMode()
		return m.run("send preferences", func(ctx context.Context) error {
			_, err := chat.SendPreferences(ctx, id)
			return err
		}), true
	}
	return nil, true
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	chat := m.chat
	switch msg.String() {
	case "esc":
		m.input.SetValue("")
		m.leaveMode()
		return nil, true
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.leaveMode()
		if text == "" {
			return nil, true
		}
		return m.run("submit edit", func(ctx context.Context) error {
			_, err := chat.SubmitEditedResponse(ctx, text)
			return err
		}), true
	}
	return nil, false
}

// sendCmd sends text, creating a chat first when there is none
func (m *Model) sendCmd(text string) tea.Cmd {
	chat := m.chat
	needsSession := m.state.Phase == internal.StateNoSession
	return m.run("send", func(ctx context.Context) error {
		if needsSession {
			if _, err := chat.NewChat(ctx); err != nil {
				return err
			}
		}
		_, err := chat.Send(ctx, text)
		return err
	})
}

func (m *Model) newChatCmd() tea.Cmd {
	chat := m.chat
	return m.run("new chat", func(ctx context.Context) error {
		_, err := chat.NewChat(ctx)
		return err
	})
}

func (m *Model) toggleThemeCmd() tea.Cmd {
	theme := m.theme
	dark := !m.dark
	return func() tea.Msg {
		if theme != nil {
			theme.Set(dark)
		}
		return themeMsg{dark: dark}
	}
}

// ---------- modes ----------

func (m *Model) enterSessions() {
	m.mode = modeSessions
	m.cursor = 0
	for i, s := range m.state.Sessions {
		if s.MatchesCurrent(m.state.CurrentSessionID) {
			m.cursor = i
			break
		}
	}
	m.input.Blur()
}

func (m *Model) enterPreferences() {
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		msg := m.state.Messages[i]
		if !msg.IsUser() && msg.Metadata.HasEditable() {
			m.mode = modePreferences
			m.prefMessageID = msg.ID
			m.cursor = 0
			m.input.Blur()
			return
		}
	}
	m.notice = "No response with preferences to edit"
}

func (m *Model) enterEdit() {
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		msg := m.state.Messages[i]
		if !msg.IsUser() {
			m.mode = modeEdit
			m.input.SetValue(internal.ToMarkup(msg.Content))
			m.input.CursorEnd()
			return
		}
	}
	m.notice = "No response to edit"
}

func (m *Model) leaveMode() {
	m.mode = modeChat
	m.prefMessageID = ""
	m.cursor = 0
	m.input.Focus()
}

func (m Model) prefMessage() (internal.Message, bool) {
	for _, msg := range m.state.Messages {
		if msg.ID == m.prefMessageID {
			return msg, true
		}
	}
	return internal.Message{}, false
}

// ---------- state ----------

func (m *Model) setState(state internal.State) {
	m.state = state
	switch m.mode {
	case modeSessions:
		if m.cursor >= len(state.Sessions) {
			m.cursor = len(state.Sessions) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	case modePreferences:
		if _, ok := m.prefMessage(); !ok {
			m.leaveMode()
		}
	}
}

func (m *Model) setTheme(dark bool) {
	if dark == m.dark {
		return
	}
	m.dark = dark
	m.styles = newStyles(dark)
	m.spinner.Style = m.styles.spinner
	m.resetRenderer()
}

func (m *Model) noteError(op string, err error) {
	if errors.Is(err, internal.ErrSuperseded) || errors.Is(err, context.Canceled) {
		return
	}
	internal.LogDebug("%s failed: %v", op, err)
	if m.state.Error == "" {
		m.notice = fmt.Sprintf("Could not %s: %v", op, err)
	}
}

func (m Model) busy() bool {
	return m.state.Loading || m.state.Phase == internal.StateLoadingHistory
}

// ---------- rendering ----------

func (m *Model) layout() {
	height := m.height - headerHeight - footerHeight
	if height < 1 {
		height = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = height
	m.input.Width = m.width - 4
}

func (m *Model) resetRenderer() {
	m.renderer = nil
	m.rendered = make(map[string]string)
	m.lastContent = ""
}

func (m *Model) refreshContent() {
	var content string
	switch m.mode {
	case modeSessions:
		content = m.renderSessions()
	case modePreferences:
		content = m.renderPreferences()
	default:
		content = m.renderTranscript()
	}
	if content == m.lastContent {
		return
	}
	m.lastContent = content
	m.viewport.SetContent(content)
	if m.mode == modeChat || m.mode == modeEdit {
		m.viewport.GotoBottom()
	} else {
		m.viewport.GotoTop()
	}
}

func glamourStyle(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

// renderMarkup renders assistant content through glamour, caching by message
func (m *Model) renderMarkup(id, content string) string {
	markup := internal.ToMarkup(content)
	key := id + ":" + strconv.Itoa(len(markup))
	if out, ok := m.rendered[key]; ok {
		return out
	}

	if m.renderer == nil {
		width := m.width - 4
		if width < 20 {
			width = 20
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(glamourStyle(m.dark)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			internal.LogDebug("glamour renderer unavailable: %v", err)
			return markup
		}
		m.renderer = r
	}

	out, err := m.renderer.Render(markup)
	if err != nil {
		return markup
	}
	out = strings.Trim(out, "\n")
	m.rendered[key] = out
	return out
}

func (m *Model) renderTranscript() string {
	var b strings.Builder

	if m.state.Phase == internal.StateLoadingHistory {
		b.WriteString(m.spinner.View() + " Loading chat history...\n")
		return b.String()
	}
	if len(m.state.Messages) == 0 {
		b.WriteString(m.styles.system.Render("Start a conversation with Jonas. Press tab to browse chats or ctrl+n for a new one."))
		b.WriteString("\n\n")
		b.WriteString(m.styles.system.Render("Try an example:"))
		b.WriteString("\n")
		for i, q := range exampleQueries {
			b.WriteString(fmt.Sprintf("  %s %s\n", m.styles.badge.Render(fmt.Sprint(i+1)), q))
		}
	}

	for _, msg := range m.state.Messages {
		stamp := ""
		if !msg.Timestamp.IsZero() {
			stamp = m.styles.date.Render(" " + msg.Timestamp.Local().Format("15:04"))
		}

		if msg.IsUser() {
			b.WriteString(m.styles.user.Render("You") + stamp + "\n")
			b.WriteString(msg.Content + "\n\n")
			continue
		}

		b.WriteString(m.styles.assistant.Render("Jonas") + stamp + "\n")
		b.WriteString(m.renderMarkup(msg.ID, msg.Content) + "\n")
		if flags := msg.Metadata.Flags(); len(flags) > 0 {
			badges := make([]string, len(flags))
			for i, f := range flags {
				badges[i] = m.styles.badge.Render(f.String())
			}
			b.WriteString(strings.Join(badges, " "))
			if msg.Metadata.HasEditable() {
				b.WriteString(m.styles.system.Render("  ctrl+p to edit preferences"))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.state.Loading {
		b.WriteString(m.spinner.View() + " Jonas is thinking...\n")
	}
	return b.String()
}

func (m *Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(m.styles.system.Render("Chats"))
	b.WriteString("\n\n")

	if len(m.state.Sessions) == 0 {
		b.WriteString("No chats yet. Press n to start one.\n")
		return b.String()
	}

	now := m.now()
	for i, s := range m.state.Sessions {
		pointer := "  "
		title := internal.Title(s)
		if i == m.cursor {
			pointer = m.styles.cursor.Render("▸ ")
			title = m.styles.cursor.Render(title)
		}
		marker := "  "
		if s.MatchesCurrent(m.state.CurrentSessionID) {
			marker = m.styles.active.Render("● ")
		}
		fmt.Fprintf(&b, "%s%s%s  %s\n", pointer, marker, title, m.styles.date.Render(internal.FormatSessionDate(s.LastModified, now)))
	}
	return b.String()
}

func (m *Model) renderPreferences() string {
	var b strings.Builder
	b.WriteString(m.styles.system.Render("Edit preferences for the last response"))
	b.WriteString("\n\n")

	target, ok := m.prefMessage()
	if !ok {
		return b.String()
	}
	for i, key := range target.Metadata.EditableKeys() {
		pointer := "  "
		if i == m.cursor {
			pointer = m.styles.cursor.Render("▸ ")
		}
		check := "[ ]"
		if target.Metadata[key].Bool {
			check = "[x]"
		}
		fmt.Fprintf(&b, "%s%s %s\n", pointer, check, internal.FormatMetadataKey(key))
	}
	return b.String()
}

func (m Model) headerText() string {
	title := "Jonas AI"
	if current, ok := m.state.CurrentSession(); ok {
		title += " · " + internal.Title(current)
	}
	return title
}

func (m Model) statusText() string {
	var hints string
	switch m.mode {
	case modeSessions:
		hints = "enter open · n new · d delete · D delete all · esc back"
	case modePreferences:
		hints = "space toggle · enter send · esc cancel"
	case modeEdit:
		hints = "enter submit edited response · esc cancel"
	default:
		hints = "enter send · tab chats · ctrl+n new · ctrl+l clear · ctrl+p prefs · ctrl+e edit · ctrl+c quit"
	}
	return hints + " · ctrl+t " + glamourStyle(m.dark)
}
