// Package quota contains the per-identity daily usage quota model.
package quota

import (
	"fmt"
	"strings"
	"time"
)

// Tier is the quota class of a caller
type Tier string

const (
	TierGuest         Tier = "guest"
	TierAuthenticated Tier = "authenticated"
	TierAdmin         Tier = "admin"
)

// DateLayout is the calendar date format used in quota keys
const DateLayout = "2006-01-02"

// ParseTier maps a role claim onto a tier; unknown values fall back to guest
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return TierAdmin
	case "authenticated", "user":
		return TierAuthenticated
	default:
		return TierGuest
	}
}

// Policy is the immutable quota configuration handed to the gate
type Policy struct {
	Limits   map[Tier]int
	Location *time.Location
	FailOpen bool
}

// DefaultPolicy returns the production limits evaluated in Europe/Berlin
func DefaultPolicy() Policy {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		loc = time.UTC
	}
	return Policy{
		Limits: map[Tier]int{
			TierAdmin:         1000,
			TierAuthenticated: 20,
			TierGuest:         5,
		},
		Location: loc,
		FailOpen: true,
	}
}

// Limit returns the daily limit for a tier, using the guest limit for unknown tiers
func (p Policy) Limit(tier Tier) int {
	if limit, ok := p.Limits[tier]; ok {
		return limit
	}
	return p.Limits[TierGuest]
}

// Date returns the calendar date of t in the policy's fixed timezone
func (p Policy) Date(t time.Time) string {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// NextReset returns the start of the day after t in the policy's timezone
func (p Policy) NextReset(t time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// Validate checks that every tier has a positive limit
func (p Policy) Validate() error {
	for _, tier := range []Tier{TierGuest, TierAuthenticated, TierAdmin} {
		if p.Limits[tier] <= 0 {
			return fmt.Errorf("quota limit for tier %s must be positive", tier)
		}
	}
	return nil
}

// Key builds the storage key for an identity on a calendar date
func Key(identity, date string) string {
	return identity + "_" + date
}

// Record is the stored counter for one identity on one date
type Record struct {
	Key       string    `json:"key" firestore:"key"`
	Identity  string    `json:"identity" firestore:"identity"`
	Date      string    `json:"date" firestore:"date"`
	Count     int       `json:"count" firestore:"count"`
	Tier      Tier      `json:"tier" firestore:"tier"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Decision is the outcome of a consume or status call
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// UpdateFunc receives the current record (nil when absent) and returns the record to
// persist, or nil to leave storage unchanged. Stores may invoke it more than once when a
// transaction is retried, so it must not have side effects beyond its return values.
type UpdateFunc func(current *Record) (*Record, error)
