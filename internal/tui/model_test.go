package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/iksnae/jonas-chat/internal"
	"github.com/iksnae/jonas-chat/internal/mockserver"
)

type harness struct {
	server *mockserver.Server
	ctrl   *internal.Controller
	theme  *internal.ThemeStore
}

func newTestModel(t *testing.T, seed func(s *mockserver.Server)) (Model, *harness) {
	t.Helper()
	s := mockserver.New(mockserver.Config{})
	if seed != nil {
		seed(s)
	}
	ts := httptest.NewServer(mockserver.NewEcho(s))
	t.Cleanup(ts.Close)

	return newModelFor(t, ts.URL, s)
}

func newModelFor(t *testing.T, baseURL string, s *mockserver.Server) (Model, *harness) {
	t.Helper()
	client := internal.NewClient(internal.ClientConfig{BaseURL: baseURL, Timeout: 5 * time.Second})
	ctrl := internal.NewController(client, internal.ControllerOptions{RefreshDelay: time.Hour})
	t.Cleanup(func() { _ = ctrl.Close() })
	theme := internal.NewThemeStore(internal.NewMemoryStorage())

	m := NewModel(context.Background(), ctrl, theme)
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, &harness{server: s, ctrl: ctrl, theme: theme}
}

func seedTwo(s *mockserver.Server) {
	now := time.Now()
	s.Seed("Chat_09_15_09_00", now.Add(-25*time.Hour),
		internal.HistoryEntry{Role: "user", Content: "Yesterday's question"},
		internal.HistoryEntry{Role: "assistant", Content: "Yesterday's answer"})
	s.Seed("Chat_09_16_09_00", now.Add(-time.Hour),
		internal.HistoryEntry{Role: "user", Content: "Morning question"},
		internal.HistoryEntry{Role: "assistant", Content: "Morning answer"})
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// exec runs cmd and feeds its result back into the model
func exec(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = update(m, cmd())
	return m
}

func load(t *testing.T, m Model) Model {
	t.Helper()
	return exec(t, m, m.run("load", m.chat.Load))
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+e":
		return tea.KeyMsg{Type: tea.KeyCtrlE}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m Model, text string) Model {
	m, _ = update(m, key(text))
	return m
}

func send(t *testing.T, m Model, text string) Model {
	t.Helper()
	m = typeText(m, text)
	m, cmd := update(m, key("enter"))
	return exec(t, m, cmd)
}

func TestModel_LoadShowsMostRecentChat(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)

	if m.state.Phase != internal.StateReady || m.state.CurrentSessionID != "Chat_09_16_09_00" {
		t.Fatalf("state = %+v", m.state)
	}
	view := m.View()
	if !strings.Contains(view, "Jonas AI · Morning question") {
		t.Errorf("header missing session title\n%s", view)
	}
	if !strings.Contains(view, "Morning") || !strings.Contains(view, "answer") {
		t.Errorf("transcript missing\n%s", view)
	}
}

func TestModel_SendFromInput(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)

	m = typeText(m, "hello")
	m, cmd := update(m, key("enter"))
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
	m = exec(t, m, cmd)

	n := len(m.state.Messages)
	if n != 4 || m.state.Messages[n-2].Content != "hello" || !strings.Contains(m.state.Messages[n-1].Content, "hello") {
		t.Fatalf("messages = %+v", m.state.Messages)
	}
	if !strings.Contains(m.View(), "hello") {
		t.Errorf("view missing sent message\n%s", m.View())
	}
}

func TestModel_SendWithoutSessionCreatesChat(t *testing.T) {
	m, h := newTestModel(t, nil)
	m = load(t, m)

	if m.state.Phase != internal.StateNoSession {
		t.Fatalf("Phase = %v", m.state.Phase)
	}
	if !strings.Contains(m.View(), "Start a conversation with Jonas") {
		t.Errorf("welcome text missing\n%s", m.View())
	}

	m = send(t, m, "first words")
	if m.state.CurrentSessionID == "" || len(m.state.Messages) != 2 {
		t.Fatalf("state = %+v", m.state)
	}
	if h.server.SessionCount() != 1 {
		t.Errorf("SessionCount() = %d", h.server.SessionCount())
	}
	if m.state.Sessions[0].FirstUserMessage != "first words" {
		t.Errorf("session entry = %+v", m.state.Sessions[0])
	}
}

func TestModel_ExampleQueries(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m = load(t, m)

	view := m.View()
	if !strings.Contains(view, "Try an example") || !strings.Contains(view, exampleQueries[0]) {
		t.Errorf("examples missing\n%s", view)
	}

	m = typeText(m, "2")
	if got := m.input.Value(); got != exampleQueries[1] {
		t.Fatalf("input = %q, want %q", got, exampleQueries[1])
	}
	// a digit after the prompt is plain text
	m = typeText(m, "3")
	if got := m.input.Value(); got != exampleQueries[1]+"3" {
		t.Errorf("input = %q", got)
	}

	m, cmd := update(m, key("enter"))
	m = exec(t, m, cmd)
	if len(m.state.Messages) == 0 || m.state.Messages[0].Content != exampleQueries[1]+"3" {
		t.Errorf("messages = %+v", m.state.Messages)
	}
}

func TestModel_ExampleKeysTypeIntoActiveChat(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)

	m = typeText(m, "1")
	if got := m.input.Value(); got != "1" {
		t.Errorf("input = %q, want 1", got)
	}
}

func TestModel_EnterIgnoredWhileLoading(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)
	m.state.Loading = true

	m = typeText(m, "wait")
	m, cmd := update(m, key("enter"))
	if cmd != nil {
		t.Error("send issued while a reply is pending")
	}
	if m.input.Value() != "wait" {
		t.Errorf("input = %q", m.input.Value())
	}
}

func TestModel_ThinkingIndicator(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, _ = update(m, stateMsg{state: internal.State{
		Phase:            internal.StateReady,
		CurrentSessionID: "s1",
		Loading:          true,
		Messages:         []internal.Message{{ID: "u1", Content: "question", Sender: internal.SenderUser}},
	}})

	view := m.View()
	if !strings.Contains(view, "Jonas is thinking...") || !strings.Contains(view, "question") {
		t.Errorf("view = %s", view)
	}
}

func TestModel_ThemeToggle(t *testing.T) {
	m, h := newTestModel(t, nil)
	if !m.dark {
		t.Fatal("expected the dark default")
	}

	m, cmd := update(m, key("ctrl+t"))
	m = exec(t, m, cmd)

	if m.dark || h.theme.IsDark() {
		t.Errorf("theme not toggled: model dark=%v store dark=%v", m.dark, h.theme.IsDark())
	}
	if !strings.Contains(m.View(), "ctrl+t light") {
		t.Errorf("status bar does not show the light theme\n%s", m.View())
	}
}

func TestModel_SessionList(t *testing.T) {
	m, h := newTestModel(t, seedTwo)
	m = load(t, m)

	m, _ = update(m, key("tab"))
	if m.mode != modeSessions {
		t.Fatalf("mode = %v", m.mode)
	}
	view := m.View()
	for _, want := range []string{"Morning question", "Yesterday's question", "●", "1 hour ago"} {
		if !strings.Contains(view, want) {
			t.Errorf("session list missing %q\n%s", want, view)
		}
	}

	m, _ = update(m, key("down"))
	m, cmd := update(m, key("enter"))
	if m.mode != modeChat {
		t.Errorf("mode after switch = %v", m.mode)
	}
	m = exec(t, m, cmd)

	if m.state.CurrentSessionID != "Chat_09_15_09_00" || h.server.Current() != "Chat_09_15_09_00" {
		t.Errorf("current = %q, backend = %q", m.state.CurrentSessionID, h.server.Current())
	}
	if m.state.Messages[0].Content != "Yesterday's question" {
		t.Errorf("transcript not reloaded: %+v", m.state.Messages)
	}
}

func TestModel_DeleteSelectedSession(t *testing.T) {
	m, h := newTestModel(t, seedTwo)
	m = load(t, m)

	m, _ = update(m, key("tab"))
	m, _ = update(m, key("down"))
	m, cmd := update(m, key("d"))
	m = exec(t, m, cmd)

	if len(m.state.Sessions) != 1 || h.server.SessionCount() != 1 {
		t.Errorf("sessions = %+v", m.state.Sessions)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d", m.cursor)
	}
	if m.state.CurrentSessionID != "Chat_09_16_09_00" {
		t.Errorf("current changed to %q", m.state.CurrentSessionID)
	}
}

func TestModel_DeleteAllNeedsConfirmation(t *testing.T) {
	m, h := newTestModel(t, seedTwo)
	m = load(t, m)
	m, _ = update(m, key("tab"))

	m, cmd := update(m, key("D"))
	if cmd != nil {
		t.Fatal("first D deleted without confirmation")
	}
	if !strings.Contains(m.View(), "Press D again") {
		t.Errorf("confirmation notice missing\n%s", m.View())
	}

	m, cmd = update(m, key("D"))
	m = exec(t, m, cmd)
	if h.server.SessionCount() != 0 || len(m.state.Sessions) != 0 {
		t.Errorf("sessions left: %d on server, %d listed", h.server.SessionCount(), len(m.state.Sessions))
	}
	if !strings.Contains(m.View(), "No chats yet") {
		t.Errorf("empty list text missing\n%s", m.View())
	}
}

func TestModel_DeleteAllConfirmationResets(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)
	m, _ = update(m, key("tab"))

	m, _ = update(m, key("D"))
	m, _ = update(m, key("down"))
	m, cmd := update(m, key("D"))
	if cmd != nil {
		t.Error("confirmation survived another key")
	}
}

func TestModel_Preferences(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)
	m = send(t, m, "write a user story")

	m, _ = update(m, key("ctrl+p"))
	if m.mode != modePreferences {
		t.Fatalf("mode = %v, notice = %q", m.mode, m.notice)
	}
	if !strings.Contains(m.View(), "[x] Userstory") {
		t.Errorf("preference list missing\n%s", m.View())
	}

	m, cmd := update(m, key(" "))
	m = exec(t, m, cmd)
	if !strings.Contains(m.View(), "[ ] Userstory") {
		t.Errorf("toggle not applied\n%s", m.View())
	}

	m, cmd = update(m, key("enter"))
	if m.mode != modeChat {
		t.Errorf("mode after send = %v", m.mode)
	}
	m = exec(t, m, cmd)

	n := len(m.state.Messages)
	query := m.state.Messages[n-2].Content
	if !strings.HasPrefix(query, "Update the previous response with the following preferences:") ||
		!strings.Contains(query, "- Userstory: No") {
		t.Errorf("preferences query = %q", query)
	}
}

func TestModel_PreferencesWithoutEditableResponse(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)

	m, _ = update(m, key("ctrl+p"))
	if m.mode != modeChat || m.notice == "" {
		t.Errorf("mode = %v, notice = %q", m.mode, m.notice)
	}
}

func TestModel_EditResponse(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)
	m = send(t, m, "hi")
	reply := m.state.Messages[len(m.state.Messages)-1]

	m, _ = update(m, key("ctrl+e"))
	if m.mode != modeEdit {
		t.Fatalf("mode = %v", m.mode)
	}
	want := strings.TrimSpace(internal.ToMarkup(reply.Content))
	if m.input.Value() != want {
		t.Errorf("input = %q, want %q", m.input.Value(), want)
	}

	m, cmd := update(m, key("enter"))
	m = exec(t, m, cmd)

	last := m.state.Messages[len(m.state.Messages)-1]
	if last.Sender != internal.SenderAssistant || last.Content != want {
		t.Errorf("last message = %+v", last)
	}
}

func TestModel_ErrorBannerDismiss(t *testing.T) {
	ts := httptest.NewServer(mockserver.NewEcho(mockserver.New(mockserver.Config{})))
	url := ts.URL
	ts.Close()

	m, _ := newModelFor(t, url, nil)
	m = load(t, m)

	if m.state.Error != internal.MsgConnectivity {
		t.Fatalf("Error = %q", m.state.Error)
	}
	if !strings.Contains(m.View(), "Unable to connect to the server") {
		t.Errorf("banner missing\n%s", m.View())
	}

	m, cmd := update(m, key("esc"))
	m = exec(t, m, cmd)
	if m.state.Error != "" || strings.Contains(m.View(), "Unable to connect") {
		t.Errorf("banner not dismissed: %q", m.state.Error)
	}
}

func TestModel_NewChat(t *testing.T) {
	m, _ := newTestModel(t, seedTwo)
	m = load(t, m)

	m, cmd := update(m, key("ctrl+n"))
	m = exec(t, m, cmd)

	if len(m.state.Messages) != 0 || !m.state.Sessions[0].IsNew {
		t.Errorf("state = %+v", m.state)
	}
	if !strings.Contains(m.View(), internal.NewChatTitle) {
		t.Errorf("header missing new chat title\n%s", m.View())
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, cmd := update(m, key("ctrl+c"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
	if m.View() != "" {
		t.Error("view not cleared on quit")
	}
}
