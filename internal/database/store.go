package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/andreiPopCatalin/gale-chat/internal/constants"
	apperrors "github.com/andreiPopCatalin/gale-chat/internal/errors"
	"github.com/andreiPopCatalin/gale-chat/internal/metrics"
	"github.com/andreiPopCatalin/gale-chat/internal/migrations"
	"github.com/andreiPopCatalin/gale-chat/internal/models"
	"github.com/andreiPopCatalin/gale-chat/internal/security"
	"github.com/andreiPopCatalin/gale-chat/internal/tracing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Store is the durable home of the conversation log. The whole log is
// kept as a single serialized collection under one fixed key in a
// SQLite-backed key-value table.
//
// Store follows a best-effort durability policy: operation failures
// (I/O errors, corrupt serialized data) are logged and degrade to
// empty or no-op results, never propagated to the caller. The chat
// stays usable even when storage is unavailable.
type Store struct {
	db         *sql.DB
	logger     *logrus.Logger
	windowSize int

	// Serializes read-merge-write saves. Two concurrent saves would
	// otherwise race on the merge and lose updates.
	saveMu sync.Mutex
}

// New opens (creating if needed) the store at dbPath. Construction
// errors do propagate: a store that cannot open at all is a startup
// failure, unlike operation failures later on.
func New(dbPath string, windowSize int, logger *logrus.Logger) (*Store, error) {
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageOpen, "invalid database path")
	}
	if windowSize <= 0 {
		windowSize = constants.DefaultWindowSize
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600) // #nosec G304 - path validated above
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageOpen, "failed to create database file")
	}
	if err := file.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageOpen, "failed to close database file")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageOpen, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		closeQuietly(db, logger)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageOpen, "failed to ping database")
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		closeQuietly(db, logger)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageOpen, "failed to read schema")
	}
	if _, err := db.Exec(schema); err != nil {
		closeQuietly(db, logger)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageOpen, "failed to initialize schema")
	}

	return &Store{
		db:         db,
		logger:     logger,
		windowSize: windowSize,
	}, nil
}

func closeQuietly(db *sql.DB, logger *logrus.Logger) {
	if err := db.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadInitial reads the persisted log and returns the display window
// for session start.
//
// If the user has never sent a message, the window is empty no matter
// what counterpart messages are persisted; the caller shows scripted
// welcome content instead. Otherwise the most recent windowSize
// messages are returned with statuses normalized: a user message still
// marked "sending" was an interrupted send, and the safe read-side
// assumption is that it was delivered and seen.
func (s *Store) LoadInitial(ctx context.Context) models.InitialLoad {
	ctx, span := tracing.StartSpan(ctx, "store.load_initial")
	defer span.End()

	log, err := s.readLog(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load messages")
		tracing.RecordError(ctx, err)
		return models.InitialLoad{Messages: []models.Message{}}
	}

	hasMore := len(log) > s.windowSize

	userHasInteracted := false
	for _, msg := range log {
		if msg.From == models.SenderUser {
			userHasInteracted = true
			break
		}
	}

	if !userHasInteracted {
		return models.InitialLoad{
			Messages: []models.Message{},
			HasMore:  hasMore,
		}
	}

	start := 0
	if len(log) > s.windowSize {
		start = len(log) - s.windowSize
	}
	window := make([]models.Message, len(log)-start)
	copy(window, log[start:])
	for i := range window {
		window[i] = normalizeStatus(window[i])
	}

	tracing.AddSpanAttributes(ctx,
		attribute.Int("log.size", len(log)),
		attribute.Int("window.size", len(window)),
	)

	return models.InitialLoad{
		Messages:          window,
		HasMore:           hasMore,
		UserHasInteracted: true,
	}
}

// LoadMore pages further back into the persisted log. How many
// messages precede the current window is computed by count, not
// timestamp: the window is always a contiguous tail of the log.
// Messages whose ID already appears in current are filtered out as a
// defensive measure.
func (s *Store) LoadMore(ctx context.Context, current []models.Message) models.MoreLoad {
	ctx, span := tracing.StartSpan(ctx, "store.load_more")
	defer span.End()

	log, err := s.readLog(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load more messages")
		tracing.RecordError(ctx, err)
		return models.MoreLoad{Messages: []models.Message{}}
	}

	currentCount := len(current)
	if currentCount >= len(log) {
		return models.MoreLoad{Messages: []models.Message{}}
	}

	remaining := len(log) - currentCount
	loadCount := min(s.windowSize, remaining)
	start := len(log) - currentCount - loadCount
	end := len(log) - currentCount

	seen := make(map[string]struct{}, currentCount)
	for _, msg := range current {
		seen[msg.ID] = struct{}{}
	}

	older := make([]models.Message, 0, loadCount)
	for _, msg := range log[start:end] {
		if _, exists := seen[msg.ID]; exists {
			continue
		}
		older = append(older, normalizeStatus(msg))
	}

	return models.MoreLoad{
		Messages: older,
		HasMore:  len(log) > currentCount+loadCount,
	}
}

// Save appends newMessages to the persisted log. The existing log is
// read first and the concatenation deduplicated by ID, first
// occurrence wins, so Save is idempotent with respect to overlapping
// sets: callers can pass the whole in-memory window on every flush.
// Saves are serialized internally; failures are logged and dropped.
func (s *Store) Save(ctx context.Context, newMessages []models.Message) {
	if len(newMessages) == 0 {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "store.save",
		attribute.Int("messages.count", len(newMessages)))
	defer span.End()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	existing, err := s.readLog(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to save messages")
		tracing.RecordError(ctx, err)
		return
	}

	combined := make([]models.Message, 0, len(existing)+len(newMessages))
	combined = append(combined, existing...)
	combined = append(combined, newMessages...)

	unique := make([]models.Message, 0, len(combined))
	byID := make(map[string]struct{}, len(combined))
	for _, msg := range combined {
		if _, exists := byID[msg.ID]; exists {
			continue
		}
		byID[msg.ID] = struct{}{}
		unique = append(unique, msg)
	}

	if err := s.writeLog(ctx, unique); err != nil {
		s.logger.WithError(err).Error("Failed to save messages")
		tracing.RecordError(ctx, err)
		return
	}

	metrics.SetGauge("store_log_size", float64(len(unique)), nil, "Persisted conversation log size")
	metrics.IncrementCounter("store_saves", nil, "Successful log saves")
}

func (s *Store) readLog(ctx context.Context) ([]models.Message, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = ?`,
		constants.ConversationLogKey,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation log: %w", err)
	}

	var log []models.Message
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		// Corrupt persisted data is treated the same as an I/O
		// failure: fail closed to an empty log.
		return nil, fmt.Errorf("corrupt conversation log: %w", err)
	}
	return log, nil
}

func (s *Store) writeLog(ctx context.Context, log []models.Message) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to serialize conversation log: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, constants.ConversationLogKey, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write conversation log: %w", err)
	}
	return nil
}

func normalizeStatus(msg models.Message) models.Message {
	if msg.From != models.SenderUser {
		msg.Status = ""
		return msg
	}
	if msg.Status == models.StatusSending || msg.Status == "" {
		msg.Status = models.StatusSeen
	}
	return msg
}
