// Package models contains the data types shared by the journal packages.
package models

import "strings"

// Side represents the direction of a trade.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide normalizes the broker spellings of a trade direction.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "b", "l", "bot", "bought":
		return SideLong, true
	case "short", "sell", "s", "sld", "sold", "sell short", "sellshort":
		return SideShort, true
	default:
		return "", false
	}
}

// Sign returns +1 for long and -1 for short trades.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}
