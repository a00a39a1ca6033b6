// Package engagement classifies a visiting session into a coarse, ordinal
// engagement tier from its page-view count and duration.
package engagement

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is the ordinal engagement level. The zero value is Low.
type Tier int

const (
	Low Tier = iota
	Medium
	High
)

// Thresholds. A session reaches a tier when either signal meets that tier's bound.
const (
	HighPageViews       = 10
	HighDurationSeconds = 300

	MediumPageViews       = 5
	MediumDurationSeconds = 120
)

// ErrInvalidArgument is returned when a page-view count or duration is negative.
var ErrInvalidArgument = errors.New("engagement: invalid argument")

var tierNames = map[Tier]string{
	Low:    "Low",
	Medium: "Medium",
	High:   "High",
}

// Classify maps a (pageViews, durationSeconds) pair to a Tier.
// Rules are evaluated in order and the first match wins:
//
//	High   if pageViews >= 10 or durationSeconds >= 300
//	Medium if pageViews >= 5  or durationSeconds >= 120
//	Low    otherwise
//
// Negative inputs are not clamped; they return ErrInvalidArgument.
func Classify(pageViews, durationSeconds int) (Tier, error) {
	if pageViews < 0 {
		return Low, fmt.Errorf("%w: page view count %d is negative", ErrInvalidArgument, pageViews)
	}
	if durationSeconds < 0 {
		return Low, fmt.Errorf("%w: session duration %ds is negative", ErrInvalidArgument, durationSeconds)
	}

	switch {
	case pageViews >= HighPageViews || durationSeconds >= HighDurationSeconds:
		return High, nil
	case pageViews >= MediumPageViews || durationSeconds >= MediumDurationSeconds:
		return Medium, nil
	default:
		return Low, nil
	}
}

// String returns "High", "Medium" or "Low".
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Valid reports whether t is one of the three defined tiers.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// Compare returns -1, 0 or +1 following the order Low < Medium < High.
func (t Tier) Compare(other Tier) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return High, nil
	case "medium":
		return Medium, nil
	case "low":
		return Low, nil
	}
	return Low, fmt.Errorf("%w: unknown tier %q", ErrInvalidArgument, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: tier %d", ErrInvalidArgument, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// All returns the tiers from highest to lowest, the order used for breakdowns.
func All() []Tier {
	return []Tier{High, Medium, Low}
}
