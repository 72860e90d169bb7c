package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/livestore"
	"venue-pos/internal/microservices/messaging/repository"
	"venue-pos/internal/realtime"
)

type MessagingServiceInterface interface {
	Refresh(ctx context.Context) error
	Attach(c *realtime.Coordinator) (detach func())
	Conversations() []domain.Conversation
	Thread(ctx context.Context, conversationID string) ([]domain.Message, error)
	Send(ctx context.Context, conversationID, content string) (domain.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
	UnreadTotal() int
}

// Inbox is the venue side of customer messaging: open conversations, newest first,
// and the threads that have been opened so far.
type Inbox struct {
	venueID string
	repo    repository.MessagingRepositoryInterface
	alerts  realtime.Alerter
	log     *logger.Logger

	conversations *livestore.Store[domain.Conversation]
	messages      *livestore.Store[domain.Message]

	mu     sync.Mutex
	loaded map[string]bool
}

func NewInbox(venueID string, repo repository.MessagingRepositoryInterface, alerts realtime.Alerter, lg *logger.Logger) *Inbox {
	if alerts == nil {
		alerts = realtime.NopAlerter
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &Inbox{
		venueID: venueID,
		repo:    repo,
		alerts:  alerts,
		log:     lg,
		conversations: livestore.New(livestore.Options[domain.Conversation]{
			Key:  func(c domain.Conversation) string { return c.ID },
			Keep: func(c domain.Conversation) bool { return !c.Closed },
			Less: func(a, b domain.Conversation) bool { return a.LastMessageAt.After(b.LastMessageAt) },
		}),
		messages: livestore.New(livestore.Options[domain.Message]{
			Key:  func(m domain.Message) string { return m.ID },
			Less: func(a, b domain.Message) bool { return a.CreatedAt.Before(b.CreatedAt) },
		}),
		loaded: make(map[string]bool),
	}
}

// Refresh reloads the conversation list. Opened threads are fetched again on next access.
func (in *Inbox) Refresh(ctx context.Context) error {
	convs, err := in.repo.Conversations(ctx, in.venueID)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	in.conversations.Replace(convs)
	in.mu.Lock()
	in.loaded = make(map[string]bool)
	in.mu.Unlock()
	return nil
}

func (in *Inbox) Attach(c *realtime.Coordinator) (detach func()) {
	offMsg := c.On(domain.EventMessage, in.handleMessage)
	offConv := c.On(domain.EventConversation, in.handleConversation)
	offReconnect := c.OnReconnect(func(event string) {
		if event != domain.EventMessage && event != domain.EventConversation {
			return
		}
		if err := in.Refresh(c.Context()); err != nil {
			in.log.Error("inbox_refresh_failed", err, map[string]any{"venue_id": in.venueID})
		}
	})
	return func() { offMsg(); offConv(); offReconnect() }
}

func (in *Inbox) handleConversation(_ context.Context, ev realtime.Event) error {
	return in.conversations.Apply(ev.Change)
}

func (in *Inbox) handleMessage(ctx context.Context, ev realtime.Event) error {
	convID := ev.Change.ParentID()
	if _, ok := in.conversations.Get(convID); !ok && ev.Change.Type == domain.ChangeInsert {
		// The conversation row may arrive on its own channel after its first message.
		if err := in.Refresh(ctx); err != nil {
			return err
		}
		if _, ok := in.conversations.Get(convID); !ok {
			return nil
		}
	}
	if err := in.messages.Apply(ev.Change); err != nil {
		return err
	}
	if ev.Change.Type != domain.ChangeInsert {
		return nil
	}
	m, err := domain.DecodeNew[domain.Message](ev.Change)
	if err != nil {
		return err
	}
	if m.SenderType == domain.SenderCustomer {
		in.alerts.Alert(ctx, realtime.Alert{VenueID: in.venueID, Sound: realtime.SoundNewMessage, Ref: convID})
	}
	return nil
}

func (in *Inbox) Conversations() []domain.Conversation { return in.conversations.List() }

// Thread returns one conversation's messages, fetching it the first time.
func (in *Inbox) Thread(ctx context.Context, conversationID string) ([]domain.Message, error) {
	in.mu.Lock()
	loaded := in.loaded[conversationID]
	in.mu.Unlock()
	if !loaded {
		msgs, err := in.repo.Messages(ctx, in.venueID, conversationID)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			in.messages.Upsert(m)
		}
		in.mu.Lock()
		in.loaded[conversationID] = true
		in.mu.Unlock()
	}
	return in.messages.Filter(func(m domain.Message) bool { return m.ConversationID == conversationID }), nil
}

// MaxMessageLength caps a venue message, in characters.
const MaxMessageLength = 2000

func (in *Inbox) Send(ctx context.Context, conversationID, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, fmt.Errorf("%w: empty message", domain.ErrValidation)
	}
	if n := utf8.RuneCountInString(content); n > MaxMessageLength {
		return domain.Message{}, fmt.Errorf("%w: message is %d characters, limit %d", domain.ErrValidation, n, MaxMessageLength)
	}
	m, err := in.repo.SendTx(ctx, in.venueID, conversationID, content)
	if err != nil {
		return domain.Message{}, err
	}
	in.messages.Upsert(m)
	in.log.Debug("message_sent", map[string]any{"conversation_id": conversationID})
	return m, nil
}

func (in *Inbox) MarkRead(ctx context.Context, conversationID string) error {
	if err := in.repo.MarkReadTx(ctx, in.venueID, conversationID); err != nil {
		return err
	}
	if c, ok := in.conversations.Get(conversationID); ok {
		c.UnreadVenue = 0
		in.conversations.Upsert(c)
	}
	for _, m := range in.messages.Filter(func(m domain.Message) bool {
		return m.ConversationID == conversationID && m.SenderType == domain.SenderCustomer && !m.IsRead
	}) {
		m.IsRead = true
		in.messages.Upsert(m)
	}
	return nil
}

// UnreadTotal is the venue badge count.
func (in *Inbox) UnreadTotal() int {
	n := 0
	for _, c := range in.conversations.List() {
		n += c.UnreadVenue
	}
	return n
}
