package service

import (
	"context"
	"testing"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/models"
	"github.com/andreiPopCatalin/gale-chat/internal/sound"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fastPacing() Pacing {
	return Pacing{
		ReplyThink:      time.Millisecond,
		DeliverySent:    time.Millisecond,
		DeliverySeen:    time.Millisecond,
		ReplyFragment:   time.Millisecond,
		WelcomeFragment: time.Millisecond,
		PresenceReset:   50 * time.Millisecond,
		PersistDebounce: 20 * time.Millisecond,
	}
}

func testReplies() *fixedReplies {
	return &fixedReplies{
		welcome: "Hi. Welcome aboard.",
		replyFor: map[string]string{
			"A": "One. Two. Three.",
			"B": "Four. Five. Six.",
		},
		fallback: "Noted.",
	}
}

func newTestSession(t *testing.T, store *mockStore, pacing Pacing) (*Session, *recordingFeedback) {
	t.Helper()
	logger, _ := logrustest.NewNullLogger()
	factory := NewFactory(newFakeClock(), &seqIDGenerator{})
	feedback := &recordingFeedback{}
	s := NewSession(store, factory, testReplies(), feedback, pacing, 64, logger)
	t.Cleanup(s.Close)
	return s, feedback
}

func countTexts(messages []models.Message, texts ...string) int {
	want := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		want[t] = struct{}{}
	}
	count := 0
	for _, msg := range messages {
		if _, ok := want[msg.Text]; ok {
			count++
		}
	}
	return count
}

func TestInitializeFirstRunRevealsWelcome(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{})

	s, feedback := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())

	messages := s.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Hi.", messages[0].Text)
	assert.Equal(t, "Welcome aboard.", messages[1].Text)
	for _, msg := range messages {
		assert.Equal(t, models.SenderCounterpart, msg.From)
		assert.Empty(t, msg.Status)
	}
	assert.False(t, messages[0].IsContinuation)
	assert.True(t, messages[1].IsContinuation)

	assert.False(t, s.Typing())
	assert.Equal(t, PresenceOnline, s.Presence())
	assert.False(t, s.UserHasInteracted())
	assert.Equal(t, 2, countTexts(messages, "Hi.", "Welcome aboard."))
	assert.Contains(t, feedback.played(), sound.CueMessageAppear)
}

func TestInitializeReturningUserSkipsWelcome(t *testing.T) {
	persisted := []models.Message{
		{ID: "u1-0-user", Text: "hello", From: models.SenderUser, Date: "Mon Apr 07 2025", Status: models.StatusSeen},
	}
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{
		Messages:          persisted,
		HasMore:           true,
		UserHasInteracted: true,
	})

	s, feedback := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())

	assert.Equal(t, persisted, s.Messages())
	assert.True(t, s.HasMore())
	assert.True(t, s.UserHasInteracted())
	assert.Equal(t, PresenceAvailable, s.Presence())
	assert.Empty(t, feedback.played())
}

func TestSendDeliversAndReplies(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{UserHasInteracted: true})
	store.On("Save", mock.Anything, mock.Anything)

	s, feedback := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())

	s.Send(context.Background(), "A")

	require.Eventually(t, func() bool {
		messages := s.Messages()
		return countTexts(messages, "One.", "Two.", "Three.") == 3 &&
			messages[0].Status == models.StatusSeen
	}, 2*time.Second, 5*time.Millisecond)

	messages := s.Messages()
	require.Len(t, messages, 4)
	assert.Equal(t, "A", messages[0].Text)
	assert.Equal(t, models.SenderUser, messages[0].From)
	for _, msg := range messages[1:] {
		assert.Equal(t, models.SenderCounterpart, msg.From)
	}

	assert.True(t, s.UserHasInteracted())
	assert.Contains(t, feedback.played(), sound.CueSendMessage)
	assert.Contains(t, feedback.played(), sound.CueMessageAppear)

	// Presence settles back to available after the reset interval.
	require.Eventually(t, func() bool {
		return s.Presence() == PresenceAvailable
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, s.Typing())
}

func TestSendSupersedesInFlightReply(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{UserHasInteracted: true})
	store.On("Save", mock.Anything, mock.Anything)

	pacing := fastPacing()
	pacing.ReplyFragment = 40 * time.Millisecond
	s, _ := newTestSession(t, store, pacing)
	s.Initialize(context.Background())

	s.Send(context.Background(), "A")
	require.Eventually(t, func() bool {
		return countTexts(s.Messages(), "One.", "Two.", "Three.") >= 1
	}, 2*time.Second, 2*time.Millisecond)

	// The second send bumps the generation; the first reply stops at
	// its next fragment boundary.
	s.Send(context.Background(), "B")

	require.Eventually(t, func() bool {
		return countTexts(s.Messages(), "Four.", "Five.", "Six.") == 3
	}, 2*time.Second, 5*time.Millisecond)

	fromA := countTexts(s.Messages(), "One.", "Two.", "Three.")
	assert.Less(t, fromA, 3, "superseded reply should not finish revealing")

	// Nothing more arrives from the superseded reply afterwards.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, fromA, countTexts(s.Messages(), "One.", "Two.", "Three."))

	// The first message's delivery simulation is unaffected.
	require.Eventually(t, func() bool {
		return s.Messages()[0].Status == models.StatusSeen
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCancelReplyStopsReveal(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{UserHasInteracted: true})
	store.On("Save", mock.Anything, mock.Anything)

	pacing := fastPacing()
	pacing.ReplyFragment = 40 * time.Millisecond
	s, _ := newTestSession(t, store, pacing)
	s.Initialize(context.Background())

	s.Send(context.Background(), "A")
	require.Eventually(t, func() bool {
		return countTexts(s.Messages(), "One.", "Two.", "Three.") >= 1
	}, 2*time.Second, 2*time.Millisecond)

	s.CancelReply()
	assert.False(t, s.Typing())

	atCancel := countTexts(s.Messages(), "One.", "Two.", "Three.")

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, atCancel, countTexts(s.Messages(), "One.", "Two.", "Three."))
}

func TestSendBlankTextIsNoop(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{UserHasInteracted: true})

	s, feedback := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())

	s.Send(context.Background(), "   ")
	s.Send(context.Background(), "\n\t")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, s.Messages())
	assert.Empty(t, feedback.played())
	assert.False(t, s.UserHasInteracted())
	assert.Equal(t, 0, store.saveCount())
}

func TestLoadMorePrependsOlderMessages(t *testing.T) {
	current := []models.Message{
		{ID: "u5-0-user", Text: "recent", From: models.SenderUser, Date: "Mon Apr 07 2025", Status: models.StatusSeen},
	}
	older := []models.Message{
		{ID: "u1-0-user", Text: "old one", From: models.SenderUser, Date: "Sun Apr 06 2025", Status: models.StatusSeen},
		{ID: "u2-0-user", Text: "old two", From: models.SenderUser, Date: "Sun Apr 06 2025", Status: models.StatusSeen},
	}
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{
		Messages:          current,
		HasMore:           true,
		UserHasInteracted: true,
	})
	store.On("LoadMore", mock.Anything, mock.Anything).Return(models.MoreLoad{
		Messages: older,
		HasMore:  false,
	})

	s, _ := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())

	more := s.LoadMore(context.Background())
	assert.Equal(t, older, more.Messages)
	assert.False(t, more.HasMore)

	messages := s.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "old one", messages[0].Text)
	assert.Equal(t, "old two", messages[1].Text)
	assert.Equal(t, "recent", messages[2].Text)
	assert.False(t, s.HasMore())
}

func TestPersistDebounceSavesWholeWindow(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{UserHasInteracted: true})
	store.On("Save", mock.Anything, mock.Anything)

	s, _ := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())

	s.Send(context.Background(), "A")

	require.Eventually(t, func() bool {
		return store.saveCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	saved := store.lastSaved()
	require.NotEmpty(t, saved)
	assert.Equal(t, "A", saved[0].Text)
}

func TestNoPersistBeforeFirstInteraction(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{})

	s, _ := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())

	// The welcome reveal marks the window dirty, but nothing may reach
	// the store until the user has sent a message.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, store.saveCount())

	s.Close()
	assert.Equal(t, 0, store.saveCount())
}

func TestEventsStreamCarriesPipeline(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{UserHasInteracted: true})
	store.On("Save", mock.Anything, mock.Anything)

	s, _ := newTestSession(t, store, fastPacing())
	s.Initialize(context.Background())
	s.Send(context.Background(), "A")

	seen := make(map[EventType]bool)
	deadline := time.After(2 * time.Second)
	for !(seen[EventHistoryLoaded] && seen[EventMessageAppended] &&
		seen[EventStatusUpdated] && seen[EventTypingChanged]) {
		select {
		case evt := <-s.Events():
			seen[evt.Type] = true
		case <-deadline:
			t.Fatalf("missing event types, saw %v", seen)
		}
	}
}

func TestSlowEventConsumerDoesNotStallPipeline(t *testing.T) {
	store := &mockStore{}
	store.On("LoadInitial", mock.Anything).Return(models.InitialLoad{UserHasInteracted: true})
	store.On("Save", mock.Anything, mock.Anything)

	logger, _ := logrustest.NewNullLogger()
	factory := NewFactory(newFakeClock(), &seqIDGenerator{})
	s := NewSession(store, factory, testReplies(), &recordingFeedback{}, fastPacing(), 1, logger)
	t.Cleanup(s.Close)

	s.Initialize(context.Background())
	// Nobody reads s.Events(); the pipeline must still complete.
	s.Send(context.Background(), "A")

	require.Eventually(t, func() bool {
		messages := s.Messages()
		return len(messages) == 4 && messages[0].Status == models.StatusSeen
	}, 2*time.Second, 5*time.Millisecond)
}
