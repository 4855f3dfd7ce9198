// Package config implements the protection engine's configuration snapshot
// and its lenient text parser: recognised keys are located as literal
// substrings and the number that follows is parsed, so the engine accepts
// free-form configuration text without depending on it being well-formed.
package config

import (
	"strconv"
	"strings"
)

const (
	// DefaultGlobalSensitivity is the risk threshold above which arming
	// occurs when the configuration text omits or malforms the value.
	DefaultGlobalSensitivity = 0.85
	// DefaultAttackMs is the envelope follower attack time default.
	DefaultAttackMs = 10.0
	// DefaultReleaseMs is the envelope follower release time default.
	DefaultReleaseMs = 50.0
)

// Snapshot is the configuration the protection engine acts on. It is
// replaced, never mutated in place, on every update.
type Snapshot struct {
	GlobalSensitivity float32
	KeywordCount      int
	AttackMs          float32
	ReleaseMs         float32
	Raw               string
}

// Default returns the snapshot in effect before any update_config call.
func Default() Snapshot {
	return Snapshot{
		GlobalSensitivity: DefaultGlobalSensitivity,
		AttackMs:          DefaultAttackMs,
		ReleaseMs:         DefaultReleaseMs,
	}
}

// Parse builds a Snapshot from free-form configuration text using a
// forgiving substring-then-number scan: each recognised key is located as a
// literal substring, spaces/colons/quotes after it are skipped, and a number
// is parsed from what remains. Absent keys or unparsable values fall back to
// documented defaults; unrecognised keys are ignored entirely. The raw text
// is retained verbatim for diagnostic readback.
func Parse(text string) Snapshot {
	s := Default()
	s.Raw = text
	s.GlobalSensitivity = parseFloatKey(text, "global_sensitivity", DefaultGlobalSensitivity)
	s.KeywordCount = parseKeywordCount(text)

	// The masking times conventionally arrive nested under a "masking"
	// object. Scan only the text from that key onward so a top-level
	// "attack"/"release" elsewhere cannot shadow them; if the "masking" key
	// is absent both fall back to defaults.
	if idx := strings.Index(text, `"masking"`); idx >= 0 {
		masking := text[idx:]
		s.AttackMs = parseFloatKey(masking, "attack", DefaultAttackMs)
		s.ReleaseMs = parseFloatKey(masking, "release", DefaultReleaseMs)
	}
	return s
}

// parseFloatKey locates `"key"` in text, skips separator characters, and
// parses the leading float literal that follows. Returns def if the key is
// absent or the following text does not start with a valid number.
func parseFloatKey(text, key string, def float32) float32 {
	idx := strings.Index(text, `"`+key+`"`)
	if idx < 0 {
		return def
	}
	rest := text[idx+len(key)+2:]
	rest = strings.TrimLeft(rest, " \t\r\n:\"")
	lit := leadingNumber(rest)
	if lit == "" {
		return def
	}
	v, err := strconv.ParseFloat(lit, 32)
	if err != nil {
		return def
	}
	return float32(v)
}

// parseKeywordCount counts the number of object entries ('{') inside the
// first `[...]` array that follows the "keywords" key, mirroring the
// original's shallow object-count diagnostic. Absent key yields 0.
func parseKeywordCount(text string) int {
	idx := strings.Index(text, `"keywords"`)
	if idx < 0 {
		return 0
	}
	rest := text[idx:]
	open := strings.IndexByte(rest, '[')
	if open < 0 {
		return 0
	}
	rest = rest[open+1:]
	closeIdx := strings.IndexByte(rest, ']')
	if closeIdx >= 0 {
		rest = rest[:closeIdx]
	}
	return strings.Count(rest, "{")
}

// leadingNumber returns the prefix of s made of an optional sign followed by
// digits and dots, or "" if that run holds no digit. Exponents are not
// recognised, and the prefix is not validated here (ParseFloat does that).
func leadingNumber(s string) string {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	sawDigit := false
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		if s[i] != '.' {
			sawDigit = true
		}
		i++
	}
	if !sawDigit {
		return ""
	}
	return s[:i]
}
