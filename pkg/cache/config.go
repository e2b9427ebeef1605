package cache

import (
	"fmt"
	"time"
)

// Strategy selects the durability tier an entry is mirrored to.
type Strategy uint8

const (
	// Ephemeral entries live in memory only.
	Ephemeral Strategy = iota
	// SessionDurable entries are mirrored to the session tier and survive
	// a restart within the same session.
	SessionDurable
	// ProcessDurable entries are mirrored to the durable tier and survive
	// process restarts.
	ProcessDurable
)

var strategyNames = [...]string{
	Ephemeral:      "ephemeral",
	SessionDurable: "session",
	ProcessDurable: "durable",
}

// String returns the text form of the strategy.
func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", s)
}

// Durable reports whether entries with this strategy are mirrored to a tier.
func (s Strategy) Durable() bool {
	return s == SessionDurable || s == ProcessDurable
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStrategy parses the text form produced by Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	for i, name := range strategyNames {
		if name == s {
			return Strategy(i), nil
		}
	}
	return Ephemeral, fmt.Errorf("cache: unknown strategy %q", s)
}

// Config describes how an entry is stored.
//
// The zero value stores an ephemeral entry that never time-expires.
type Config struct {
	// TTL is the maximum age of the entry. Zero means no time-based expiry.
	TTL time.Duration
	// Strategy selects the durability tier.
	Strategy Strategy
}
