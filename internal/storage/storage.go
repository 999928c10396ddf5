package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes. Game records are keyed by their service game id, so
// re-recording a finished game is idempotent.
const (
	prefixGame  = "game:"
	prefixStats = "stats:"
)

// GameRecord is one finished game as the bot saw it.
type GameRecord struct {
	ID       string    `json:"id"`
	Opponent string    `json:"opponent"`
	BotColor string    `json:"bot_color"`
	Rated    bool      `json:"rated"`
	Result   string    `json:"result"` // "1-0", "0-1", "1/2-1/2"
	PGN      string    `json:"pgn"`
	Finished time.Time `json:"finished"`
}

// OpponentStats tallies results against one opponent.
type OpponentStats struct {
	Opponent string `json:"opponent"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

// Games returns the total games recorded against this opponent.
func (s *OpponentStats) Games() int { return s.Wins + s.Losses + s.Draws }

// Store wraps the BadgerDB handle.
type Store struct {
	db *badger.DB
}

// Open opens the store in the platform data directory.
func Open() (*Store, error) {
	dir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(dir)
}

// OpenAt opens the store at an explicit directory; tests use temp dirs.
func OpenAt(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordGame saves the game and folds its result into the opponent's
// stats. Recording the same game id twice only updates the record.
func (s *Store) RecordGame(rec GameRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("storage: game record without id")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixGame + rec.ID)
		fresh := false
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			fresh = true
		} else if err != nil {
			return err
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		stats, err := getStats(txn, rec.Opponent)
		if err != nil {
			return err
		}
		switch {
		case rec.Result == "1/2-1/2":
			stats.Draws++
		case (rec.Result == "1-0") == (rec.BotColor == "white"):
			stats.Wins++
		default:
			stats.Losses++
		}
		data, err = json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set([]byte(prefixStats+rec.Opponent), data)
	})
}

// Game loads one game record by id.
func (s *Store) Game(id string) (*GameRecord, error) {
	var rec GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixGame + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("storage: no game %q", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Stats returns the tallies against one opponent; zeroes when unknown.
func (s *Store) Stats(opponent string) (*OpponentStats, error) {
	var stats *OpponentStats
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		stats, err = getStats(txn, opponent)
		return err
	})
	return stats, err
}

func getStats(txn *badger.Txn, opponent string) (*OpponentStats, error) {
	stats := &OpponentStats{Opponent: opponent}
	item, err := txn.Get([]byte(prefixStats + opponent))
	if err == badger.ErrKeyNotFound {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, item.Value(func(val []byte) error {
		return json.Unmarshal(val, stats)
	})
}

// EachGame iterates all stored games in key order.
func (s *Store) EachGame(fn func(GameRecord) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixGame)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec GameRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
