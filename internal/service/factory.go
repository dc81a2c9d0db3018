package service

import (
	"fmt"

	"github.com/andreiPopCatalin/gale-chat/internal/constants"
	"github.com/andreiPopCatalin/gale-chat/internal/models"
	"github.com/andreiPopCatalin/gale-chat/internal/splitter"
)

// Factory builds fully-formed message records from raw text. It is
// pure with respect to external state but depends on the injected
// clock and ID generator.
type Factory struct {
	clock Clock
	ids   IDGenerator
}

func NewFactory(clock Clock, ids IDGenerator) *Factory {
	return &Factory{clock: clock, ids: ids}
}

// Create converts raw text into one or more message records. The
// caller is responsible for passing trimmed, non-empty text.
//
// User text always becomes exactly one message with status "sending".
// Counterpart text is split into sentence fragments, one message per
// fragment in splitter order; only the first has IsContinuation false
// and none carry a status. All fragments of one call share the same
// time, date, and base ID.
func (f *Factory) Create(text string, from models.Sender, date string) []models.Message {
	now := f.clock.Now()
	timeStr := now.Format(constants.TimeLayout)
	if date == "" {
		date = now.Format(constants.DateLayout)
	}
	base := f.ids.Next()

	if from == models.SenderUser {
		return []models.Message{{
			ID:     fmt.Sprintf("%s-0-%s", base, from),
			Text:   text,
			Time:   timeStr,
			From:   from,
			Date:   date,
			Status: models.StatusSending,
		}}
	}

	var messages []models.Message
	i := 0
	for fragment := range splitter.Sentences(text) {
		messages = append(messages, models.Message{
			ID:             fmt.Sprintf("%s-%d-%s", base, i, from),
			Text:           fragment,
			Time:           timeStr,
			From:           from,
			Date:           date,
			IsContinuation: i > 0,
		})
		i++
	}
	return messages
}
