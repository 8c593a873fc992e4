package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrSendInFlight   = errors.New("a message is already being sent")
	ErrNotReady       = errors.New("no active chat session")
	ErrSuperseded     = errors.New("superseded by a newer request")
	ErrUnknownMessage = errors.New("message not found")
	ErrClosed         = errors.New("controller is closed")
)

// User-visible banners for failed controller operations
const (
	MsgSendFailed      = "Failed to send message. Please try again."
	MsgSwitchFailed    = "Failed to switch session. Please try again."
	MsgCreateFailed    = "Failed to create new session. Please try again."
	MsgDeleteFailed    = "Failed to delete chat session. Please try again."
	MsgDeleteAllFailed = "Failed to delete chat sessions. Please try again."
	MsgLoadFailed      = "Failed to load chat sessions."
)

// Phase is the session lifecycle state of the controller
type Phase int

const (
	StateNoSession Phase = iota
	StateLoadingHistory
	StateReady
)

func (p Phase) String() string {
	switch p {
	case StateNoSession:
		return "no-session"
	case StateLoadingHistory:
		return "loading-history"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// State is a copy of the controller state, safe to keep and read
type State struct {
	Phase            Phase
	Messages         []Message
	Sessions         []Session
	CurrentSessionID string
	Loading          bool
	Error            string
}

// CurrentSession returns the list entry of the active session
func (s State) CurrentSession() (Session, bool) {
	return findCurrent(s.Sessions, s.CurrentSessionID)
}

// ChatAPI is the part of the backend the controller drives
type ChatAPI interface {
	HistoryFetcher
	SendMessage(ctx context.Context, query string) (*ChatResponse, error)
	ListSessions(ctx context.Context) (*SessionList, error)
	DeleteSession(ctx context.Context, blobName string) (*DeleteResult, error)
	CreateSession(ctx context.Context, name string) (*SessionResult, error)
	SwitchSession(ctx context.Context, sessionID string) (*SessionResult, error)
	SaveChat(ctx context.Context) (*SessionResult, error)
	DeleteAllSessions(ctx context.Context) (*BulkDeleteResult, error)
}

// ControllerOptions configures a Controller. Zero values pick defaults.
type ControllerOptions struct {
	Store        KeyValueStore // chat backup; nil disables backups
	RefreshDelay time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Controller owns the transcript and session list of one chat client.
// State is only mutated by its methods; network calls run without the lock.
//
// Switch, NewChat, Delete, ClearHistory, DeleteAll and Load are navigations:
// starting one cancels the one in flight, and a superseded navigation never
// writes state. listSeq counts session list rewrites; a Refresh that started
// before one is dropped.
type Controller struct {
	api          ChatAPI
	reconciler   *Reconciler
	store        KeyValueStore
	refreshDelay time.Duration
	now          func() time.Time
	newID        func() string

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	phase        Phase
	messages     []Message
	sessions     []Session
	currentID    string
	loading      bool
	errMsg       string
	generation   uint64
	navSeq       uint64
	listSeq      uint64
	navCancel    context.CancelFunc
	refreshTimer *time.Timer
	subscribers  map[int]func(State)
	nextSubID    int
	closed       bool
}

// NewController creates a controller for api
func NewController(api ChatAPI, opts ControllerOptions) *Controller {
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:          api,
		reconciler:   NewReconciler(api),
		store:        opts.Store,
		refreshDelay: opts.RefreshDelay,
		now:          opts.Now,
		newID:        opts.NewID,
		ctx:          ctx,
		cancel:       cancel,
		subscribers:  make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	messages := make([]Message, len(c.messages))
	for i, m := range c.messages {
		messages[i] = m
		messages[i].Metadata = m.Metadata.Clone()
	}
	sessions := make([]Session, len(c.sessions))
	copy(sessions, c.sessions)

	return State{
		Phase:            c.phase,
		Messages:         messages,
		Sessions:         sessions,
		CurrentSessionID: c.currentID,
		Loading:          c.loading,
		Error:            c.errMsg,
	}
}

// Subscribe registers fn for state changes and returns its unsubscribe func
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// update applies fn under the lock and notifies subscribers
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	c.publishLocked()
}

// commit applies fn only if ticket is still the latest navigation
func (c *Controller) commit(ticket uint64, fn func()) bool {
	c.mu.Lock()
	if ticket != c.navSeq || c.closed {
		c.mu.Unlock()
		return false
	}
	fn()
	c.publishLocked()
	return true
}

// publishLocked snapshots the state, releases the lock and notifies
func (c *Controller) publishLocked() {
	state := c.snapshotLocked()
	subs := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// opContext derives a context cancelled by either ctx or Close
func (c *Controller) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	octx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return octx, func() {
		stop()
		cancel()
	}
}

// beginNav takes a navigation ticket, cancelling the previous navigation
func (c *Controller) beginNav(ctx context.Context) (context.Context, uint64, func()) {
	nctx, release := c.opContext(ctx)

	c.mu.Lock()
	c.navSeq++
	ticket := c.navSeq
	if c.navCancel != nil {
		c.navCancel()
	}
	c.navCancel = release
	c.mu.Unlock()

	return nctx, ticket, func() {
		c.mu.Lock()
		if c.navSeq == ticket {
			c.navCancel = nil
		}
		c.mu.Unlock()
		release()
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Load lists the sessions, derives their titles and opens the most recent one
func (c *Controller) Load(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	nctx, ticket, done := c.beginNav(ctx)
	defer done()

	c.commit(ticket, func() { c.phase = StateLoadingHistory })

	list, err := c.api.ListSessions(nctx)
	if err != nil {
		LogWarn("Failed to load chat sessions: %v", err)
		c.commit(ticket, func() {
			c.sessions = nil
			c.phase = phaseFor(c.currentID)
			c.errMsg = errorMessage(err, MsgLoadFailed)
		})
		return err
	}

	sessions := c.reconciler.Reconcile(nctx, list.Sessions, nil)
	if len(sessions) == 0 {
		LogInfo("No chat sessions found")
		c.commit(ticket, func() {
			c.sessions = nil
			c.listSeq++
			c.resetTranscriptLocked()
			c.currentID = ""
			c.phase = StateNoSession
		})
		return nil
	}

	recent := sessions[0]
	messages := c.loadHistory(nctx, recent)

	if !c.commit(ticket, func() {
		c.sessions = sessions
		c.listSeq++
		c.resetTranscriptLocked()
		c.messages = messages
		c.currentID = sessionIdentity(recent)
		c.phase = StateReady
	}) {
		return ErrSuperseded
	}
	return nil
}

// loadHistory fetches a session transcript; failures yield an empty one
func (c *Controller) loadHistory(ctx context.Context, session Session) []Message {
	history, err := c.api.GetSession(ctx, session.Key())
	if err != nil {
		LogWarn("Failed to load session %s: %v", session.Key(), err)
		return nil
	}
	return HistoryMessages(history, c.now())
}

// Send posts text to the current session and appends the reply
func (c *Controller) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return Message{}, ErrClosed
	case c.phase != StateReady:
		c.mu.Unlock()
		return Message{}, ErrNotReady
	case c.loading:
		c.mu.Unlock()
		return Message{}, ErrSendInFlight
	}
	isFirst := len(c.messages) == 0
	sessionID := c.currentID
	generation := c.generation
	c.messages = append(c.messages, Message{
		ID:        c.newID(),
		Content:   text,
		Sender:    SenderUser,
		Timestamp: c.now(),
	})
	c.loading = true
	c.errMsg = ""
	c.publishLocked()

	octx, release := c.opContext(ctx)
	defer release()

	resp, err := c.api.SendMessage(octx, text)
	if err != nil {
		LogError("API error: %v", err)
		c.update(func() {
			c.loading = false
			c.errMsg = errorMessage(err, MsgSendFailed)
		})
		return Message{}, err
	}

	reply := Message{
		ID:        c.newID(),
		Content:   resp.Content,
		Sender:    SenderAssistant,
		Timestamp: c.now(),
		Metadata:  resp.Metadata,
	}
	c.update(func() {
		c.loading = false
		// the user switched away while waiting; the reply belongs to the old transcript
		if c.generation != generation {
			return
		}
		c.messages = append(c.messages, reply)
		if isFirst {
			for i := range c.sessions {
				if c.sessions[i].MatchesCurrent(sessionID) {
					c.sessions[i].FirstUserMessage = text
					c.sessions[i].IsNew = false
				}
			}
		}
	})
	reply.Metadata = reply.Metadata.Clone()
	return reply, nil
}

// SendPreferences sends the edited boolean metadata of messageID as a
// follow-up request
func (c *Controller) SendPreferences(ctx context.Context, messageID string) (Message, error) {
	c.mu.Lock()
	msg, ok := c.findMessageLocked(messageID)
	var query string
	if ok {
		query = PreferencesQuery(msg.Metadata)
	}
	c.mu.Unlock()

	if !ok {
		return Message{}, ErrUnknownMessage
	}
	return c.Send(ctx, query)
}

// SetMetadataFlag toggles a boolean metadata entry of a message
func (c *Controller) SetMetadataFlag(messageID, key string, value bool) error {
	c.mu.Lock()
	for i := range c.messages {
		if c.messages[i].ID != messageID {
			continue
		}
		if c.messages[i].Metadata == nil {
			c.messages[i].Metadata = Metadata{}
		}
		c.messages[i].Metadata.SetBool(key, value)
		c.publishLocked()
		return nil
	}
	c.mu.Unlock()
	return ErrUnknownMessage
}

// SubmitEditedResponse appends a hand-edited assistant response and forwards
// it to the chat endpoint. Forwarding failures are only logged.
func (c *Controller) SubmitEditedResponse(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if c.isClosed() {
		return Message{}, ErrClosed
	}

	msg := Message{
		ID:        c.newID(),
		Content:   text,
		Sender:    SenderAssistant,
		Timestamp: c.now(),
	}
	c.update(func() { c.messages = append(c.messages, msg) })

	octx, release := c.opContext(ctx)
	defer release()
	if _, err := c.api.SendMessage(octx, text); err != nil {
		LogError("API error on updated response: %v", err)
	}
	return msg, nil
}

func (c *Controller) findMessageLocked(id string) (Message, bool) {
	for _, m := range c.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Switch makes session the current one and loads its transcript. New chats
// switch locally since the backend has nothing stored for them yet.
func (c *Controller) Switch(ctx context.Context, session Session) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.currentID != "" && session.MatchesCurrent(c.currentID) {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	nctx, ticket, done := c.beginNav(ctx)
	defer done()

	if session.IsNew {
		c.commit(ticket, func() {
			c.resetTranscriptLocked()
			c.currentID = sessionIdentity(session)
			c.errMsg = ""
			c.phase = StateReady
		})
		return nil
	}

	c.commit(ticket, func() { c.phase = StateLoadingHistory })

	res, err := c.api.SwitchSession(nctx, sessionIdentity(session))
	if err == nil && !res.Success {
		err = errors.New(nonEmpty(res.Message, "Failed to switch session"))
	}
	if err != nil {
		LogError("Failed to switch session: %v", err)
		if !c.commit(ticket, func() {
			c.phase = phaseFor(c.currentID)
			c.errMsg = MsgSwitchFailed
			if res != nil && res.Message != "" {
				c.errMsg = res.Message
			}
		}) {
			return ErrSuperseded
		}
		return err
	}

	messages := c.loadHistory(nctx, session)
	if !c.commit(ticket, func() {
		c.resetTranscriptLocked()
		c.messages = messages
		c.currentID = sessionIdentity(session)
		c.errMsg = ""
		c.phase = StateReady
	}) {
		return ErrSuperseded
	}
	return nil
}

// NewChat saves the current chat if it has messages, creates a new session
// and schedules a refresh of the session list
func (c *Controller) NewChat(ctx context.Context) (Session, error) {
	if c.isClosed() {
		return Session{}, ErrClosed
	}
	nctx, ticket, done := c.beginNav(ctx)
	defer done()

	c.mu.Lock()
	unsaved := len(c.messages) > 0 && c.currentID != ""
	c.mu.Unlock()

	if unsaved {
		if _, err := c.api.SaveChat(nctx); err != nil {
			LogWarn("Failed to save current session, proceeding anyway: %v", err)
		}
	}

	res, err := c.api.CreateSession(nctx, "")
	if err == nil && !res.Success {
		err = errors.New(nonEmpty(res.Message, "Failed to create new session"))
	}
	if err != nil {
		LogError("Failed to create new session: %v", err)
		if !c.commit(ticket, func() {
			c.errMsg = MsgCreateFailed
			if res != nil && res.Message != "" {
				c.errMsg = res.Message
			}
		}) {
			return Session{}, ErrSuperseded
		}
		return Session{}, err
	}

	session := Session{
		SessionID:    res.SessionID,
		LastModified: c.now(),
		IsNew:        true,
	}
	if !c.commit(ticket, func() {
		c.resetTranscriptLocked()
		c.currentID = res.SessionID
		c.errMsg = ""
		c.phase = StateReady
		c.sessions = append([]Session{session}, c.sessions...)
		c.listSeq++
	}) {
		return Session{}, ErrSuperseded
	}

	c.scheduleRefresh()
	return session, nil
}

// scheduleRefresh refreshes the session list after the refresh delay,
// giving the backend time to list the new session
func (c *Controller) scheduleRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	c.refreshTimer = time.AfterFunc(c.refreshDelay, func() {
		if c.ctx.Err() != nil {
			return
		}
		if err := c.Refresh(c.ctx); err != nil {
			LogDebug("Scheduled refresh failed: %v", err)
		}
	})
}

// Refresh reconciles the server session list with the local one
func (c *Controller) Refresh(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	octx, release := c.opContext(ctx)
	defer release()

	c.mu.Lock()
	seq := c.listSeq
	c.mu.Unlock()

	list, err := c.api.ListSessions(octx)
	if err != nil {
		LogWarn("Failed to refresh chat sessions: %v", err)
		return err
	}

	c.mu.Lock()
	local := make([]Session, len(c.sessions))
	copy(local, c.sessions)
	c.mu.Unlock()

	merged := c.reconciler.Reconcile(octx, list.Sessions, local)

	c.mu.Lock()
	if c.listSeq != seq || c.closed {
		c.mu.Unlock()
		LogDebug("Session list changed during refresh, dropping the fetched list")
		return ErrSuperseded
	}
	// the list may have changed during the fetch; keep what it learned
	for i := range merged {
		if merged[i].FirstUserMessage != "" {
			continue
		}
		if cached, ok := findCached(c.sessions, merged[i]); ok {
			merged[i].FirstUserMessage = cached.FirstUserMessage
			merged[i].IsNew = cached.IsNew
		}
	}
	// the backend may not list a just-created session yet
	if cur, ok := findCurrent(c.sessions, c.currentID); ok && cur.IsNew {
		if _, listed := findCurrent(merged, c.currentID); !listed {
			merged = append([]Session{cur}, merged...)
		}
	}
	SortSessions(merged)
	c.sessions = merged
	c.listSeq++
	c.publishLocked()
	return nil
}

// Delete deletes a session remotely and drops it from the list. Deleting the
// current session clears the transcript and opens the first remaining one.
func (c *Controller) Delete(ctx context.Context, session Session) error {
	if c.isClosed() {
		return ErrClosed
	}
	nctx, ticket, done := c.beginNav(ctx)
	defer done()

	key := session.Key()
	if _, err := c.api.DeleteSession(nctx, key); err != nil {
		if apiErr, ok := AsAPIError(err); !ok || !apiErr.IsNotFound() {
			LogError("Failed to delete chat session: %v", err)
			c.commit(ticket, func() { c.errMsg = MsgDeleteFailed })
			return err
		}
		LogInfo("Session %s not found on server, treating as deleted", key)
	}

	var next *Session
	c.mu.Lock()
	c.removeSessionLocked(session)
	c.listSeq++
	if ticket == c.navSeq && !c.closed && c.currentID != "" && session.MatchesCurrent(c.currentID) {
		c.resetTranscriptLocked()
		c.currentID = ""
		c.phase = StateNoSession
		if len(c.sessions) > 0 {
			n := c.sessions[0]
			next = &n
		}
	}
	c.publishLocked()

	done()
	if next != nil {
		return c.Switch(ctx, *next)
	}
	return nil
}

// DeleteCurrent deletes the current session
func (c *Controller) DeleteCurrent(ctx context.Context) error {
	c.mu.Lock()
	current, ok := findCurrent(c.sessions, c.currentID)
	c.mu.Unlock()
	if !ok {
		return ErrNotReady
	}
	return c.Delete(ctx, current)
}

// ClearHistory deletes the current session's stored history. Without a
// current session only the local transcript is cleared.
func (c *Controller) ClearHistory(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	currentID := c.currentID
	key := currentID
	current, found := findCurrent(c.sessions, currentID)
	if found {
		key = current.Key()
	}
	if currentID == "" {
		LogWarn("No current session, only clearing local messages")
		c.resetTranscriptLocked()
		c.publishLocked()
		return nil
	}
	c.mu.Unlock()

	nctx, ticket, done := c.beginNav(ctx)
	defer done()

	if _, err := c.api.DeleteSession(nctx, key); err != nil {
		if apiErr, ok := AsAPIError(err); !ok || !apiErr.IsNotFound() {
			LogError("Failed to delete chat session: %v", err)
			c.commit(ticket, func() {
				c.errMsg = fmt.Sprintf("Failed to delete chat history: %s", err.Error())
			})
			return err
		}
		LogInfo("Session not found on server, clearing local messages anyway")
	}

	if !c.commit(ticket, func() {
		if found {
			c.removeSessionLocked(current)
			c.listSeq++
		}
		c.resetTranscriptLocked()
		c.currentID = ""
		c.errMsg = ""
		c.phase = StateNoSession
	}) {
		return ErrSuperseded
	}
	return nil
}

// DeleteAll deletes every session and resets the controller
func (c *Controller) DeleteAll(ctx context.Context) (*BulkDeleteResult, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	nctx, ticket, done := c.beginNav(ctx)
	defer done()

	res, err := c.api.DeleteAllSessions(nctx)
	if err != nil {
		LogError("Failed to delete chat sessions: %v", err)
		c.commit(ticket, func() { c.errMsg = MsgDeleteAllFailed })
		return nil, err
	}

	if !c.commit(ticket, func() {
		c.sessions = nil
		c.listSeq++
		c.resetTranscriptLocked()
		c.currentID = ""
		c.errMsg = ""
		c.phase = StateNoSession
	}) {
		return res, ErrSuperseded
	}
	return res, nil
}

// ClearError dismisses the error banner
func (c *Controller) ClearError() {
	c.update(func() { c.errMsg = "" })
}

// SaveBackup writes the transcript to durable storage
func (c *Controller) SaveBackup() error {
	if c.store == nil {
		return nil
	}
	c.mu.Lock()
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	sessionID := c.currentID
	c.mu.Unlock()

	return SaveBackup(c.store, sessionID, messages, c.now())
}

// RestoreBackup loads today's backup into the transcript. It reports whether
// a backup was restored.
func (c *Controller) RestoreBackup() bool {
	if c.store == nil {
		return false
	}
	backup, ok := LoadBackup(c.store, c.now())
	if !ok {
		return false
	}

	c.update(func() {
		c.resetTranscriptLocked()
		c.messages = backup.Messages
		if c.currentID == "" {
			c.currentID = backup.SessionID
		}
		c.phase = phaseFor(c.currentID)
	})
	LogDebug("Restored %d messages from backup", len(backup.Messages))
	return true
}

// Close cancels every in-flight operation, stops the scheduled refresh and
// saves a backup of the transcript
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	c.mu.Unlock()

	c.cancel()
	if err := c.SaveBackup(); err != nil {
		LogWarn("Failed to save chat backup: %v", err)
		return err
	}
	return nil
}

func (c *Controller) resetTranscriptLocked() {
	c.messages = nil
	c.generation++
}

func (c *Controller) removeSessionLocked(session Session) {
	kept := c.sessions[:0:0]
	for _, s := range c.sessions {
		if s.Key() == session.Key() || s.Matches(session) {
			continue
		}
		kept = append(kept, s)
	}
	c.sessions = kept
}

// sessionIdentity is the id used to switch to and track a session
func sessionIdentity(s Session) string {
	if s.SessionID != "" {
		return s.SessionID
	}
	return s.BlobName
}

func findCurrent(sessions []Session, currentID string) (Session, bool) {
	if currentID == "" {
		return Session{}, false
	}
	for _, s := range sessions {
		if s.MatchesCurrent(currentID) {
			return s, true
		}
	}
	return Session{}, false
}

func phaseFor(currentID string) Phase {
	if currentID == "" {
		return StateNoSession
	}
	return StateReady
}

// errorMessage picks the banner for err: the API message when there is one
func errorMessage(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
