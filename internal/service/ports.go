package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/models"

	"github.com/google/uuid"
)

// MessageStore is the durable home of the conversation log. All
// operations are best-effort: failures degrade to empty or no-op
// results inside the store and are never surfaced here.
type MessageStore interface {
	LoadInitial(ctx context.Context) models.InitialLoad
	LoadMore(ctx context.Context, current []models.Message) models.MoreLoad
	Save(ctx context.Context, messages []models.Message)
}

// Feedback dispatches named sound/haptic cues. Implementations must
// never block or fail the message pipeline.
type Feedback interface {
	Play(ctx context.Context, cue string)
}

// ReplyGenerator chooses the counterpart's scripted content.
type ReplyGenerator interface {
	Welcome() string
	Reply(userText string) string
}

// Clock is the session's source of wall-clock time, injectable for
// deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// IDGenerator produces base identifiers for message creation. One base
// is generated per factory invocation; fragments append their index and
// sender, so IDs stay collision-free across the whole log even for
// concurrent invocations.
type IDGenerator interface {
	Next() string
}

type uuidGenerator struct {
	clock Clock
}

func (g uuidGenerator) Next() string {
	id := uuid.NewString()
	return fmt.Sprintf("%d-%s", g.clock.Now().UnixMilli(), id[:8])
}

// UUIDGenerator returns an IDGenerator combining wall-clock millis with
// a random UUID-derived suffix.
func UUIDGenerator(clock Clock) IDGenerator {
	return uuidGenerator{clock: clock}
}
