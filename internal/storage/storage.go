package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no analysis is stored for a position.
var ErrNotFound = errors.New("analysis not found")

const keyPrefix = "analysis/"

// Analysis is the outcome of one completed search.
type Analysis struct {
	FEN        string    `json:"fen"`
	BestMove   string    `json:"best_move"`
	PonderMove string    `json:"ponder_move,omitempty"`
	Score      int       `json:"score"`
	Depth      int       `json:"depth"`
	Nodes      uint64    `json:"nodes"`
	PV         []string  `json:"pv"`
	Saved      time.Time `json:"saved"`
}

// AnalysisStore wraps BadgerDB and keeps the deepest analysis seen for each
// position.
type AnalysisStore struct {
	db *badger.DB
}

// Open opens (creating if needed) the store in dir.
func Open(dir string) (*AnalysisStore, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*AnalysisStore, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*AnalysisStore, error) {
	opts = opts.WithLogger(badgerLogger{log.With().Str("component", "badger").Logger()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open analysis store: %w", err)
	}
	return &AnalysisStore{db: db}, nil
}

// Close closes the database
func (s *AnalysisStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PositionKey reduces a FEN to the fields that identify a position, dropping
// the move counters.
func PositionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func dbKey(fen string) []byte {
	return []byte(keyPrefix + PositionKey(fen))
}

// Put saves a. An existing entry is only replaced by one at least as deep.
// It reports whether a was stored.
func (s *AnalysisStore) Put(a Analysis) (bool, error) {
	if a.Saved.IsZero() {
		a.Saved = time.Now()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return false, err
	}

	stored := false
	err = s.db.Update(func(txn *badger.Txn) error {
		key := dbKey(a.FEN)
		old, err := get(txn, key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case old.Depth > a.Depth:
			return nil
		}
		stored = true
		return txn.Set(key, data)
	})
	return stored, err
}

// Get loads the analysis of the position fen, ignoring move counters.
func (s *AnalysisStore) Get(fen string) (Analysis, error) {
	var a Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		a, err = get(txn, dbKey(fen))
		return err
	})
	return a, err
}

func get(txn *badger.Txn, key []byte) (Analysis, error) {
	var a Analysis
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &a)
	})
	if err != nil {
		return a, fmt.Errorf("decode %s: %w", key, err)
	}
	return a, nil
}

// Delete removes the analysis of fen, if any.
func (s *AnalysisStore) Delete(fen string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dbKey(fen))
	})
}

// Len returns the number of stored positions.
func (s *AnalysisStore) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Clear removes every stored analysis.
func (s *AnalysisStore) Clear() error {
	return s.db.DropPrefix([]byte(keyPrefix))
}

// badgerLogger routes badger's messages to zerolog. Badger is chatty at info
// level, so info is logged as debug.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Trace().Msgf(strings.TrimSpace(format), args...)
}
