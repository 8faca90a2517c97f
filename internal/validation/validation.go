// Package validation normalizes room codes and player display names.
// The same rules run on the server (authoritative) and in the Go client (pre-check).
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MinRoomCodeLength    = 4
	MaxRoomCodeLength    = 8
	MaxDisplayNameLength = 24
	DefaultDisplayName   = "Player"
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,8}$`)

// unicode.ToUpper is a 1:1 rune mapping; these runes uppercase to several
// letters, and only the ASCII part survives normalization.
var multiRuneUpper = strings.NewReplacer(
	"ß", "SS",
	"ﬀ", "FF",
	"ﬁ", "FI",
	"ﬂ", "FL",
	"ﬃ", "FFI",
	"ﬄ", "FFL",
	"ﬅ", "ST",
	"ﬆ", "ST",
	"ŉ", "N",
	"ǰ", "J",
	"ẖ", "H",
	"ẗ", "T",
	"ẘ", "W",
	"ẙ", "Y",
	"ẚ", "A",
)

// NormalizeRoomCode uppercases input, drops everything outside [A-Z0-9]
// and truncates the result to MaxRoomCodeLength characters.
func NormalizeRoomCode(input string) string {
	var b strings.Builder
	b.Grow(MaxRoomCodeLength)
	for _, r := range strings.ToUpper(multiRuneUpper.Replace(input)) {
		if b.Len() == MaxRoomCodeLength {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidRoomCode reports whether code is 4-8 uppercase letters or digits.
func IsValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// SanitizeDisplayName trims input, collapses whitespace runs into a single
// space and truncates to MaxDisplayNameLength runes. Empty or blank input
// yields DefaultDisplayName.
func SanitizeDisplayName(input string) string {
	collapsed := strings.Join(strings.FieldsFunc(input, unicode.IsSpace), " ")
	if collapsed == "" {
		return DefaultDisplayName
	}
	runes := []rune(collapsed)
	if len(runes) > MaxDisplayNameLength {
		runes = runes[:MaxDisplayNameLength]
	}
	return string(runes)
}
