package internal

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

const (
	// NewChatTitle labels sessions that have no usable title yet
	NewChatTitle = "🤖 New Chat"

	maxTitleLength     = 50
	maxHistoryFetchers = 4
)

// HistoryFetcher loads a session's stored history
type HistoryFetcher interface {
	GetSession(ctx context.Context, blobName string) (*SessionHistory, error)
}

// Reconciler merges the remote session list with the locally held one
type Reconciler struct {
	fetcher HistoryFetcher
}

// NewReconciler creates a reconciler backed by fetcher
func NewReconciler(fetcher HistoryFetcher) *Reconciler {
	return &Reconciler{fetcher: fetcher}
}

// Reconcile returns the server sessions enriched with the locally cached
// first-user-message and IsNew flag, deriving missing first messages from
// the session history. The result is sorted with SortSessions.
func (r *Reconciler) Reconcile(ctx context.Context, server, local []Session) []Session {
	merged := make([]Session, len(server))
	copy(merged, server)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHistoryFetchers)

	for i := range merged {
		if cached, ok := findCached(local, merged[i]); ok {
			merged[i].FirstUserMessage = cached.FirstUserMessage
			merged[i].IsNew = cached.IsNew
			continue
		}

		i := i
		g.Go(func() error {
			r.deriveFirstMessage(gctx, &merged[i])
			return nil
		})
	}
	_ = g.Wait()

	SortSessions(merged)
	return merged
}

// deriveFirstMessage fills FirstUserMessage from the session history.
// Failures leave the session untouched.
func (r *Reconciler) deriveFirstMessage(ctx context.Context, session *Session) {
	key := session.Key()
	if key == "" || r.fetcher == nil {
		return
	}

	history, err := r.fetcher.GetSession(ctx, key)
	if err != nil {
		LogWarn("Failed to extract first user message for session %s: %v", session.SessionID, err)
		return
	}
	if first, ok := FirstUserMessage(history); ok {
		session.FirstUserMessage = first
	}
}

// findCached returns the local entry for s if it carries a cached first message
func findCached(local []Session, s Session) (Session, bool) {
	for _, l := range local {
		if l.Matches(s) {
			if l.FirstUserMessage != "" {
				return l, true
			}
			return Session{}, false
		}
	}
	return Session{}, false
}

// SortSessions orders new chats first, then by LastModified descending.
// Equal entries keep their relative order.
func SortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.IsNew != b.IsNew {
			return a.IsNew
		}
		return a.LastModified.After(b.LastModified)
	})
}

var (
	chatIDPattern       = regexp.MustCompile(`Chat_(\d{2})_(\d{2})_(\d{2})_(\d{2})`)
	chatSessionPattern  = regexp.MustCompile(`chat_session_(\d{8})_(\d{6})`)
	chatSessionWordsPat = regexp.MustCompile(`(?i)chat session`)
)

// Title derives the display label of a session
func Title(s Session) string {
	if first := strings.TrimSpace(s.FirstUserMessage); first != "" {
		return truncateTitle(first)
	}
	if s.IsNew {
		return NewChatTitle
	}
	if s.Title != "" {
		return s.Title
	}

	id := s.SessionID
	if id == "" {
		id = strings.TrimSuffix(s.BlobName, ".json")
	}
	if id == "" {
		return NewChatTitle
	}

	if m := chatIDPattern.FindStringSubmatch(id); m != nil {
		return fmt.Sprintf("Chat %s/%s %s:%s", m[1], m[2], m[3], m[4])
	}
	if m := chatSessionPattern.FindStringSubmatch(id); m != nil {
		date, clock := m[1], m[2]
		return fmt.Sprintf("Chat %s/%s %s:%s", date[6:8], date[4:6], clock[0:2], clock[2:4])
	}

	label := strings.ReplaceAll(id, "_", " ")
	if loc := chatSessionWordsPat.FindStringIndex(label); loc != nil {
		label = label[:loc[0]] + "Chat" + label[loc[1]:]
	}
	return label
}

func truncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= maxTitleLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxTitleLength]) + "..."
}

// FormatSessionDate renders t relative to now ("3 hours ago")
func FormatSessionDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
