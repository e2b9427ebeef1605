package cache

import (
	"encoding/json"
	"time"
)

// entry holds an encoded value with its write time and lifetime.
type entry struct {
	storedAt time.Time
	data     []byte
	ttl      time.Duration
	strategy Strategy
}

// expired reports whether the entry has outlived its TTL at now.
func (e *entry) expired(now time.Time) bool {
	if e.ttl <= 0 {
		return false
	}
	return now.Sub(e.storedAt) >= e.ttl
}

// record is the persisted form of an entry inside a tier blob.
// Times are unix milliseconds.
type record struct {
	Value    json.RawMessage `json:"value"`
	StoredAt int64           `json:"storedAt"`
	TTL      int64           `json:"ttl"`
}

func newRecord(e *entry) record {
	return record{
		Value:    json.RawMessage(e.data),
		StoredAt: e.storedAt.UnixMilli(),
		TTL:      ttlMillis(e.ttl),
	}
}

// ttlMillis rounds a positive ttl up to whole milliseconds, so a sub-millisecond
// lifetime is not persisted as 0 (never expires).
func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return int64((ttl + time.Millisecond - 1) / time.Millisecond)
}

// entry converts a decoded record back into an entry.
// Records with missing or invalid fields are rejected.
func (r record) entry(strategy Strategy) (*entry, bool) {
	if len(r.Value) == 0 || r.StoredAt <= 0 || r.TTL < 0 {
		return nil, false
	}
	if !json.Valid(r.Value) {
		return nil, false
	}
	return &entry{
		data:     cloneBytes(r.Value),
		storedAt: time.UnixMilli(r.StoredAt),
		ttl:      time.Duration(r.TTL) * time.Millisecond,
		strategy: strategy,
	}, true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
