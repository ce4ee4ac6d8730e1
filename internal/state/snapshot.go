package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"backtest/internal/model"
)

// Snapshot captures the account balance and open positions at the end of a
// replay.
type Snapshot struct {
	Timestamp   int64           `json:"timestamp"`
	LastSeq     uint64          `json:"lastSeq"`
	LastInstant time.Time       `json:"lastInstant"`
	Balance     decimal.Decimal `json:"balance"`
	Positions   []PositionEntry `json:"positions"`
}

// PositionEntry is a single open position.
type PositionEntry struct {
	BrokerID     string          `json:"brokerId"`
	Instrument   string          `json:"instrument"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
}

func (e PositionEntry) key() string {
	return e.BrokerID + "/" + e.Instrument + "/" + e.Symbol
}

// FromPositions builds a snapshot with entries sorted by key.
func FromPositions(positions []model.Position, balance decimal.Decimal, lastSeq uint64, lastInstant time.Time) Snapshot {
	entries := make([]PositionEntry, 0, len(positions))
	for _, p := range positions {
		entries = append(entries, PositionEntry{
			BrokerID:     p.BrokerID,
			Instrument:   p.Instrument.String(),
			Symbol:       p.Symbol,
			Side:         p.Side.String(),
			Quantity:     p.Quantity,
			AveragePrice: p.AveragePrice,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key() < entries[j].key()
	})
	return Snapshot{
		Timestamp:   time.Now().UTC().UnixNano(),
		LastSeq:     lastSeq,
		LastInstant: lastInstant.UTC(),
		Balance:     balance,
		Positions:   entries,
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks that two replays ended in the same state.
// Timestamps are ignored.
func CompareSnapshots(expected, actual Snapshot) error {
	if !expected.Balance.Equal(actual.Balance) {
		return fmt.Errorf("snapshot balance mismatch: expected=%s actual=%s", expected.Balance, actual.Balance)
	}
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	expectedMap := make(map[string]PositionEntry, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedMap[entry.key()] = entry
	}
	for _, entry := range actual.Positions {
		want, ok := expectedMap[entry.key()]
		if !ok {
			return fmt.Errorf("snapshot missing position: %s", entry.key())
		}
		if want.Side != entry.Side || !want.Quantity.Equal(entry.Quantity) {
			return fmt.Errorf("snapshot qty mismatch: %s expected=%s %s actual=%s %s",
				entry.key(), want.Side, want.Quantity, entry.Side, entry.Quantity)
		}
		if !want.AveragePrice.Equal(entry.AveragePrice) {
			return fmt.Errorf("snapshot price mismatch: %s expected=%s actual=%s", entry.key(), want.AveragePrice, entry.AveragePrice)
		}
	}
	return nil
}
