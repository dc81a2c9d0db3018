package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/constants"
	"github.com/andreiPopCatalin/gale-chat/internal/metrics"
	"github.com/andreiPopCatalin/gale-chat/internal/models"
	"github.com/andreiPopCatalin/gale-chat/internal/sound"
	"github.com/andreiPopCatalin/gale-chat/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Presence is the counterpart's visible status indicator.
type Presence string

const (
	PresenceAvailable Presence = "available"
	PresenceTyping    Presence = "typing"
	PresenceOnline    Presence = "online"
)

// EventType identifies a session event delivered to UI consumers.
type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventStatusUpdated   EventType = "status_updated"
	EventTypingChanged   EventType = "typing_changed"
	EventPresenceChanged EventType = "presence_changed"
	EventHistoryLoaded   EventType = "history_loaded"
)

// Event is a notification about a change to the visible conversation.
type Event struct {
	Type     EventType       `json:"type"`
	Message  *models.Message `json:"message,omitempty"`
	Typing   bool            `json:"typing,omitempty"`
	Presence Presence        `json:"presence,omitempty"`
}

// Pacing holds the artificial delays that pace the simulated delivery
// and reply reveal.
type Pacing struct {
	ReplyThink      time.Duration
	DeliverySent    time.Duration
	DeliverySeen    time.Duration
	ReplyFragment   time.Duration
	WelcomeFragment time.Duration
	PresenceReset   time.Duration
	PersistDebounce time.Duration
}

// DefaultPacing returns the stock pacing values.
func DefaultPacing() Pacing {
	return Pacing{
		ReplyThink:      constants.DefaultReplyThinkMs * time.Millisecond,
		DeliverySent:    constants.DefaultDeliverySentMs * time.Millisecond,
		DeliverySeen:    constants.DefaultDeliverySeenMs * time.Millisecond,
		ReplyFragment:   constants.DefaultReplyFragmentMs * time.Millisecond,
		WelcomeFragment: constants.DefaultWelcomeFragmentMs * time.Millisecond,
		PresenceReset:   constants.DefaultPresenceResetMs * time.Millisecond,
		PersistDebounce: constants.DefaultPersistDebounceMs * time.Millisecond,
	}
}

// PacingFromConfig converts config millisecond values to a Pacing,
// falling back to defaults for zero values.
func PacingFromConfig(cfg models.ChatConfig) Pacing {
	p := DefaultPacing()
	ms := func(v int, fallback time.Duration) time.Duration {
		if v <= 0 {
			return fallback
		}
		return time.Duration(v) * time.Millisecond
	}
	p.ReplyThink = ms(cfg.ReplyThinkMs, p.ReplyThink)
	p.DeliverySent = ms(cfg.DeliverySentMs, p.DeliverySent)
	p.DeliverySeen = ms(cfg.DeliverySeenMs, p.DeliverySeen)
	p.ReplyFragment = ms(cfg.ReplyFragmentMs, p.ReplyFragment)
	p.WelcomeFragment = ms(cfg.WelcomeFragmentMs, p.WelcomeFragment)
	p.PresenceReset = ms(cfg.PresenceResetMs, p.PresenceReset)
	p.PersistDebounce = ms(cfg.PersistDebounceMs, p.PersistDebounce)
	return p
}

// Session owns the in-memory message window and drives the
// send -> simulate-delivery -> simulate-reply pipeline.
//
// All work is a sequence of time-delayed steps; the only cross-send
// coordination is a generation counter: each new send (and each
// explicit cancel) bumps the generation, and a reply reveal stops
// appending further fragments as soon as it is no longer the current
// generation. Already-appended fragments are never retracted.
type Session struct {
	store    MessageStore
	factory  *Factory
	replies  ReplyGenerator
	feedback Feedback
	logger   *logrus.Logger
	pacing   Pacing

	mu                sync.Mutex
	messages          []models.Message
	hasMore           bool
	userHasInteracted bool
	typing            bool
	presence          Presence
	presenceTimer     *time.Timer

	replyGen  atomic.Int64
	flusher   *Flusher
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSession wires a session. Initialize must be called before Send.
func NewSession(store MessageStore, factory *Factory, replies ReplyGenerator, feedback Feedback, pacing Pacing, eventBufferSize int, logger *logrus.Logger) *Session {
	if eventBufferSize <= 0 {
		eventBufferSize = constants.DefaultEventBufferSize
	}
	s := &Session{
		store:    store,
		factory:  factory,
		replies:  replies,
		feedback: feedback,
		logger:   logger,
		pacing:   pacing,
		presence: PresenceAvailable,
		events:   make(chan Event, eventBufferSize),
		done:     make(chan struct{}),
	}
	s.flusher = NewFlusher(pacing.PersistDebounce, s.persist)
	return s
}

// Events returns the stream of session events. Delivery is best
// effort: a consumer that falls behind loses events rather than
// stalling the pipeline.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Initialize loads the persisted window. If the user has never
// interacted, a scripted welcome exchange is revealed fragment by
// fragment instead; this blocks until the reveal completes or ctx is
// cancelled.
func (s *Session) Initialize(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "session.initialize")
	defer span.End()

	initial := s.store.LoadInitial(ctx)

	s.mu.Lock()
	s.messages = initial.Messages
	s.hasMore = initial.HasMore
	s.userHasInteracted = initial.UserHasInteracted
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"messages":          len(initial.Messages),
		"hasMore":           initial.HasMore,
		"userHasInteracted": initial.UserHasInteracted,
	}).Info("Conversation loaded")
	metrics.SetGauge("window_messages", float64(len(initial.Messages)), nil, "In-memory window size")

	s.emit(Event{Type: EventHistoryLoaded})

	if initial.UserHasInteracted {
		return
	}

	// First run: reveal a scripted welcome instead of stale content.
	s.setPresence(PresenceTyping)
	s.setTyping(true)
	s.feedback.Play(ctx, sound.CueTyping)

	welcome := s.factory.Create(s.replies.Welcome(), models.SenderCounterpart, "")
	tracing.AddSpanAttributes(ctx, attribute.Int("welcome.fragments", len(welcome)))
	for i := range welcome {
		if !s.sleep(ctx, s.pacing.WelcomeFragment) {
			break
		}
		s.append(welcome[i])
		s.feedback.Play(ctx, sound.CueMessageAppear)
	}

	s.setTyping(false)
	s.setPresence(PresenceOnline)
}

// Send runs the full pipeline for one user message: cancel any
// in-flight reply reveal, append the user message with status
// "sending", then asynchronously simulate delivery transitions and a
// scripted counterpart reply. Empty or whitespace-only text is a
// no-op.
func (s *Session) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "session.send")
	defer span.End()

	// Supersede any reply still revealing fragments.
	gen := s.replyGen.Add(1)

	userMessages := s.factory.Create(text, models.SenderUser, "")

	s.mu.Lock()
	s.messages = append(s.messages, userMessages...)
	s.userHasInteracted = true
	s.mu.Unlock()

	for i := range userMessages {
		s.emit(Event{Type: EventMessageAppended, Message: &userMessages[i]})
	}
	s.feedback.Play(ctx, sound.CueSendMessage)
	s.flusher.MarkDirty()
	metrics.IncrementCounter("messages_sent", nil, "User messages sent")

	ids := make(map[string]struct{}, len(userMessages))
	for _, msg := range userMessages {
		ids[msg.ID] = struct{}{}
	}

	// The pipeline outlives the caller (e.g. an HTTP request); detach
	// from its cancellation but keep trace context.
	bgCtx := context.WithoutCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.simulateDelivery(bgCtx, ids)
	}()
	go func() {
		defer s.wg.Done()
		s.deliverReply(bgCtx, text, gen)
	}()
}

// CancelReply stops any in-flight reply reveal at its next fragment
// boundary. Called when the user starts typing again.
func (s *Session) CancelReply() {
	s.replyGen.Add(1)
	s.setTyping(false)
}

// LoadMore pages older persisted messages into the front of the
// window.
func (s *Session) LoadMore(ctx context.Context) models.MoreLoad {
	ctx, span := tracing.StartSpan(ctx, "session.load_more")
	defer span.End()

	s.mu.Lock()
	current := make([]models.Message, len(s.messages))
	copy(current, s.messages)
	s.mu.Unlock()

	more := s.store.LoadMore(ctx, current)
	if len(more.Messages) > 0 {
		s.mu.Lock()
		s.messages = append(more.Messages, s.messages...)
		s.hasMore = more.HasMore
		s.mu.Unlock()
		s.emit(Event{Type: EventHistoryLoaded})
	} else {
		s.mu.Lock()
		s.hasMore = more.HasMore
		s.mu.Unlock()
	}
	return more
}

// Messages returns a copy of the in-memory window.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Sections returns the date-grouped view of the window.
func (s *Session) Sections() []models.Section {
	return GroupByDate(s.Messages())
}

func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *Session) Presence() Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence
}

func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *Session) UserHasInteracted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userHasInteracted
}

// Close stops in-flight reveals at their next boundary, flushes any
// pending save, and waits for the pipeline goroutines to finish. Safe
// to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.replyGen.Add(1)
		close(s.done)

		s.mu.Lock()
		if s.presenceTimer != nil {
			s.presenceTimer.Stop()
		}
		s.mu.Unlock()

		s.wg.Wait()
		s.flusher.Stop()
	})
}

func (s *Session) simulateDelivery(ctx context.Context, ids map[string]struct{}) {
	if !s.sleep(ctx, s.pacing.DeliverySent) {
		return
	}
	s.updateStatus(ids, models.StatusSent)

	if !s.sleep(ctx, s.pacing.DeliverySeen) {
		return
	}
	s.updateStatus(ids, models.StatusSeen)
}

func (s *Session) deliverReply(ctx context.Context, userText string, gen int64) {
	if !s.sleep(ctx, s.pacing.ReplyThink) {
		return
	}
	if s.replyGen.Load() != gen {
		return
	}

	s.setTyping(true)
	s.setPresence(PresenceTyping)
	s.feedback.Play(ctx, sound.CueTyping)

	fragments := s.factory.Create(s.replies.Reply(userText), models.SenderCounterpart, "")
	for i := range fragments {
		if !s.sleep(ctx, s.pacing.ReplyFragment) {
			break
		}
		if s.replyGen.Load() != gen {
			break
		}
		s.append(fragments[i])
		s.feedback.Play(ctx, sound.CueMessageAppear)
		metrics.IncrementCounter("reply_fragments", nil, "Counterpart reply fragments revealed")
	}

	if s.replyGen.Load() != gen {
		// A newer send owns the typing indicator now.
		return
	}
	s.setTyping(false)
	s.setPresence(PresenceOnline)
	s.schedulePresenceReset()
}

// updateStatus advances the status of exactly the given message ids.
// Transitions are forward-only; a concurrent unrelated send is never
// cross-updated because its ids are not in the set.
func (s *Session) updateStatus(ids map[string]struct{}, next models.MessageStatus) {
	var changed []models.Message

	s.mu.Lock()
	for i := range s.messages {
		if _, ok := ids[s.messages[i].ID]; !ok {
			continue
		}
		if s.messages[i].From != models.SenderUser {
			continue
		}
		if !s.messages[i].Status.CanTransitionTo(next) {
			continue
		}
		s.messages[i].Status = next
		changed = append(changed, s.messages[i])
	}
	s.mu.Unlock()

	for i := range changed {
		s.emit(Event{Type: EventStatusUpdated, Message: &changed[i]})
	}
	if len(changed) > 0 {
		s.flusher.MarkDirty()
	}
}

func (s *Session) append(msg models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	size := len(s.messages)
	s.mu.Unlock()

	metrics.SetGauge("window_messages", float64(size), nil, "In-memory window size")
	s.emit(Event{Type: EventMessageAppended, Message: &msg})
	s.flusher.MarkDirty()
}

func (s *Session) setTyping(typing bool) {
	s.mu.Lock()
	if s.typing == typing {
		s.mu.Unlock()
		return
	}
	s.typing = typing
	s.mu.Unlock()

	s.emit(Event{Type: EventTypingChanged, Typing: typing})
}

func (s *Session) setPresence(presence Presence) {
	s.mu.Lock()
	if s.presence == presence {
		s.mu.Unlock()
		return
	}
	s.presence = presence
	s.mu.Unlock()

	s.emit(Event{Type: EventPresenceChanged, Presence: presence})
}

func (s *Session) schedulePresenceReset() {
	s.mu.Lock()
	if s.presenceTimer != nil {
		s.presenceTimer.Stop()
	}
	s.presenceTimer = time.AfterFunc(s.pacing.PresenceReset, func() {
		s.setPresence(PresenceAvailable)
	})
	s.mu.Unlock()
}

// persist flushes the whole in-memory window to the store. The store
// deduplicates by id, so saving overlapping windows is safe. Nothing
// is persisted before the first user interaction.
func (s *Session) persist() {
	s.mu.Lock()
	if !s.userHasInteracted || len(s.messages) == 0 {
		s.mu.Unlock()
		return
	}
	snapshot := make([]models.Message, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.store.Save(ctx, snapshot)
}

// emit delivers an event without ever blocking the pipeline.
func (s *Session) emit(evt Event) {
	select {
	case s.events <- evt:
	default:
		s.logger.WithField("type", evt.Type).Debug("Event buffer full, dropping event")
	}
}

// sleep waits for d, returning false if the context or session ended
// first.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-s.done:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	case <-timer.C:
		return true
	}
}
