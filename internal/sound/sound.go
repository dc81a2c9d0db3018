package sound

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Category controls which cues can mute together.
type Category string

const (
	CategoryUI         Category = "ui"
	CategoryMessage    Category = "message"
	CategoryTransition Category = "transition"
)

// Cue names fired by the conversation session and the gateway.
const (
	CueSendMessage       = "sendMessage"
	CueTapSecondary      = "tapSecondary"
	CueTapSingleOption   = "tapSingleOption"
	CueTransitionWooshUp = "transitionWooshUp"
	CueTyping            = "typing"
	CueMessageAppear     = "messageAppear"
)

// Minimum time between plays of the same cue.
const debounceInterval = 100 * time.Millisecond

// Player dispatches named feedback cues. Actual audio playback belongs
// to the UI layer; Player owns the cue registry, mute state, and
// debouncing, and logs each dispatched cue. Play never fails and never
// blocks the message pipeline.
type Player struct {
	logger  *logrus.Logger
	enabled bool

	mu         sync.Mutex
	registry   map[string]Category
	lastPlayed map[string]time.Time
	muted      bool
	mutedCats  map[Category]bool
	loaded     bool

	now func() time.Time
}

// NewPlayer creates a Player. Call Init before use and Shutdown when done.
func NewPlayer(enabled, muted bool, logger *logrus.Logger) *Player {
	return &Player{
		logger:  logger,
		enabled: enabled,
		muted:   muted,
		now:     time.Now,
	}
}

// Init loads the cue registry. Idempotent.
func (p *Player) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	p.registry = map[string]Category{
		CueSendMessage:       CategoryMessage,
		CueTapSecondary:      CategoryUI,
		CueTapSingleOption:   CategoryUI,
		CueTransitionWooshUp: CategoryTransition,
		CueTyping:            CategoryUI,
		CueMessageAppear:     CategoryMessage,
	}
	p.lastPlayed = make(map[string]time.Time, len(p.registry))
	p.mutedCats = map[Category]bool{
		CategoryUI:         false,
		CategoryMessage:    false,
		CategoryTransition: false,
	}
	p.loaded = true
	p.logger.Debug("Sound cues loaded")
	return nil
}

// Shutdown releases the registry.
func (p *Player) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registry = nil
	p.lastPlayed = nil
	p.loaded = false
	return nil
}

// Play dispatches a cue. Unknown cues, muted state, a disabled player,
// and rapid repetition all result in a silent skip.
func (p *Player) Play(ctx context.Context, cue string) {
	if !p.enabled {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		p.logger.WithField("cue", cue).Warn("Sound cue dispatched before Init")
		return
	}

	category, ok := p.registry[cue]
	if !ok {
		p.logger.WithField("cue", cue).Warn("Unknown sound cue")
		return
	}
	if p.muted || p.mutedCats[category] {
		return
	}

	now := p.now()
	if now.Sub(p.lastPlayed[cue]) < debounceInterval {
		return
	}
	p.lastPlayed[cue] = now

	p.logger.WithFields(logrus.Fields{
		"cue":      cue,
		"category": category,
	}).Debug("Playing sound cue")
}

// SetMuted mutes or unmutes all cues and returns the new state.
func (p *Player) SetMuted(muted bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	return p.muted
}

// SetCategoryMuted mutes or unmutes one category and returns its state.
func (p *Player) SetCategoryMuted(category Category, muted bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.mutedCats[category]; ok {
		p.mutedCats[category] = muted
	}
	return p.mutedCats[category]
}
