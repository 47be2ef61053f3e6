// Package archive persists tick snapshots and trade prints to a local
// Pebble database so long runs can be inspected or exported after the fact.
package archive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/zappabad/marketsim/internal/sim"
)

// TickRecord is one persisted tick snapshot.
type TickRecord struct {
	Time            sim.Timestamp        `json:"time"`
	Prices          map[string]sim.Price `json:"prices"`
	GlobalSentiment float64              `json:"globalSentiment"`
	TotalTrades     uint64               `json:"totalTrades"`
	TotalOrders     uint64               `json:"totalOrders"`
}

// Store wraps the Pebble database. Safe for one writer plus readers.
type Store struct {
	db  *pebble.DB
	seq atomic.Uint64
}

// Open opens (or creates) the archive at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error { return s.db.Close() }

// keys: t:<8-byte-be-time> for ticks, x:<8-byte-be-time><8-byte-be-seq>
// for trades. Big-endian times keep range scans in chronological order.
func kTick(ts sim.Timestamp) []byte {
	key := make([]byte, 2+8)
	copy(key, "t:")
	binary.BigEndian.PutUint64(key[2:], ts)
	return key
}

func kTrade(ts sim.Timestamp, seq uint64) []byte {
	key := make([]byte, 2+16)
	copy(key, "x:")
	binary.BigEndian.PutUint64(key[2:], ts)
	binary.BigEndian.PutUint64(key[10:], seq)
	return key
}

// SaveTick persists one tick snapshot. NoSync: losing the tail of the
// archive on a crash is acceptable.
func (s *Store) SaveTick(rec TickRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal tick record: %w", err)
	}
	if err := s.db.Set(kTick(rec.Time), data, pebble.NoSync); err != nil {
		return fmt.Errorf("save tick record: %w", err)
	}
	return nil
}

// SaveTrade persists one trade print.
func (s *Store) SaveTrade(t sim.Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	key := kTrade(t.Timestamp, s.seq.Add(1))
	if err := s.db.Set(key, data, pebble.NoSync); err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

// Ticks returns snapshots with from <= time < to, oldest first, capped at
// limit (0 means no cap).
func (s *Store) Ticks(from, to sim.Timestamp, limit int) ([]TickRecord, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: kTick(from),
		UpperBound: kTick(to),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []TickRecord
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var rec TickRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Trades returns prints with from <= time < to, oldest first, capped at
// limit (0 means no cap).
func (s *Store) Trades(from, to sim.Timestamp, limit int) ([]sim.Trade, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: kTrade(from, 0),
		UpperBound: kTrade(to, 0),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []sim.Trade
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var t sim.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
