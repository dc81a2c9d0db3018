package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LoadInitial(ctx context.Context) models.InitialLoad {
	args := m.Called(ctx)
	return args.Get(0).(models.InitialLoad)
}

func (m *mockStore) LoadMore(ctx context.Context, current []models.Message) models.MoreLoad {
	args := m.Called(ctx, current)
	return args.Get(0).(models.MoreLoad)
}

func (m *mockStore) Save(ctx context.Context, messages []models.Message) {
	m.Called(ctx, messages)
}

// lastSaved returns the messages passed to the most recent Save call.
func (m *mockStore) lastSaved() []models.Message {
	var saved []models.Message
	for _, call := range m.Calls {
		if call.Method == "Save" {
			saved = call.Arguments.Get(1).([]models.Message)
		}
	}
	return saved
}

func (m *mockStore) saveCount() int {
	count := 0
	for _, call := range m.Calls {
		if call.Method == "Save" {
			count++
		}
	}
	return count
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.April, 7, 14, 15, 0, 0, time.UTC)}
}

type seqIDGenerator struct {
	counter atomic.Int64
}

func (g *seqIDGenerator) Next() string {
	return fmt.Sprintf("base%d", g.counter.Add(1))
}

// fixedReplies returns deterministic scripted content.
type fixedReplies struct {
	welcome  string
	replyFor map[string]string
	fallback string
}

func (r *fixedReplies) Welcome() string { return r.welcome }

func (r *fixedReplies) Reply(userText string) string {
	if reply, ok := r.replyFor[userText]; ok {
		return reply
	}
	return r.fallback
}

// recordingFeedback captures dispatched cues.
type recordingFeedback struct {
	mu   sync.Mutex
	cues []string
}

func (f *recordingFeedback) Play(ctx context.Context, cue string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cues = append(f.cues, cue)
}

func (f *recordingFeedback) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cues))
	copy(out, f.cues)
	return out
}
