package service

import (
	"testing"

	"github.com/andreiPopCatalin/gale-chat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory() *Factory {
	return NewFactory(newFakeClock(), &seqIDGenerator{})
}

func TestCreateUserMessage(t *testing.T) {
	factory := newTestFactory()

	msgs := factory.Create("Hello. How are you?", models.SenderUser, "")
	require.Len(t, msgs, 1, "user text is never split")

	msg := msgs[0]
	assert.Equal(t, "base1-0-user", msg.ID)
	assert.Equal(t, "Hello. How are you?", msg.Text)
	assert.Equal(t, "2:15 PM", msg.Time)
	assert.Equal(t, "Mon Apr 07 2025", msg.Date)
	assert.Equal(t, models.SenderUser, msg.From)
	assert.False(t, msg.IsContinuation)
	assert.Equal(t, models.StatusSending, msg.Status)
}

func TestCreateCounterpartMessages(t *testing.T) {
	factory := newTestFactory()

	msgs := factory.Create("Hello there! Welcome to our chat. Ask me anything!", models.SenderCounterpart, "")
	require.Len(t, msgs, 3)

	assert.Equal(t, "Hello there!", msgs[0].Text)
	assert.Equal(t, "Welcome to our chat.", msgs[1].Text)
	assert.Equal(t, "Ask me anything!", msgs[2].Text)

	assert.False(t, msgs[0].IsContinuation)
	assert.True(t, msgs[1].IsContinuation)
	assert.True(t, msgs[2].IsContinuation)

	for _, msg := range msgs {
		assert.Equal(t, models.SenderCounterpart, msg.From)
		assert.Empty(t, msg.Status)
		assert.Equal(t, "Mon Apr 07 2025", msg.Date)
		assert.Equal(t, "2:15 PM", msg.Time)
	}
}

func TestCreateFragmentIDsUnique(t *testing.T) {
	factory := newTestFactory()

	first := factory.Create("One. Two. Three.", models.SenderCounterpart, "")
	second := factory.Create("One. Two. Three.", models.SenderCounterpart, "")

	seen := make(map[string]struct{})
	for _, msg := range append(first, second...) {
		_, dup := seen[msg.ID]
		assert.False(t, dup, "duplicate id %s", msg.ID)
		seen[msg.ID] = struct{}{}
	}
}

func TestCreateHonorsCallerDate(t *testing.T) {
	factory := newTestFactory()

	msgs := factory.Create("hi", models.SenderUser, "Sun Apr 06 2025")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Sun Apr 06 2025", msgs[0].Date)
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator(SystemClock())

	a := gen.Next()
	b := gen.Next()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
