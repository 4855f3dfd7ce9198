// Package confusion loads the phonetic-variant confusion table — a simple
// key-to-variant-list text resource — and exposes string similarity used to
// fuzzily compare a detected phoneme against its known confusable variants.
package confusion

import (
	"fmt"
	"os"
	"strings"

	"github.com/antzucaro/matchr"
)

// Table is a process-wide variant lookup, loaded from a text resource. The
// zero value is an empty table.
type Table struct {
	variants map[string][]string
}

// New returns an empty Table.
func New() *Table {
	return &Table{variants: make(map[string][]string)}
}

// Load parses the resource at path into the table, replacing any prior
// contents — even on failure the table ends up empty. Returns an error if
// the file cannot be opened; the caller decides whether to retry.
func (t *Table) Load(path string) error {
	t.variants = make(map[string][]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("confusion: open %s: %w", path, err)
	}
	t.variants = parse(string(data))
	return nil
}

// Variants returns up to maxOut variant strings registered for target, or
// nil if target is absent. The returned slice points into the table's
// storage and must not be retained past the next call to Load.
func (t *Table) Variants(target string, maxOut int) []string {
	if maxOut <= 0 {
		return nil
	}
	vs, ok := t.variants[target]
	if !ok {
		return nil
	}
	if len(vs) > maxOut {
		vs = vs[:maxOut]
	}
	return vs
}

// parse implements the lenient key-to-string-array grammar of the resource
// format: scan for a quoted key, then a '[' ... ']' span, and collect every
// quoted substring inside that span as a variant. Anything that isn't a
// recognised key/array pair is skipped rather than rejected.
func parse(text string) map[string][]string {
	out := make(map[string][]string)
	pos := 0
	for pos < len(text) {
		keyStart := strings.IndexByte(text[pos:], '"')
		if keyStart < 0 {
			break
		}
		keyStart += pos
		keyEnd := strings.IndexByte(text[keyStart+1:], '"')
		if keyEnd < 0 {
			break
		}
		keyEnd += keyStart + 1
		key := text[keyStart+1 : keyEnd]

		arrayStart := strings.IndexByte(text[keyEnd:], '[')
		if arrayStart < 0 {
			break
		}
		arrayStart += keyEnd
		arrayEnd := strings.IndexByte(text[arrayStart:], ']')
		if arrayEnd < 0 {
			break
		}
		arrayEnd += arrayStart

		var values []string
		valStart := arrayStart + 1
		for valStart < arrayEnd {
			vStart := strings.IndexByte(text[valStart:], '"')
			if vStart < 0 {
				break
			}
			vStart += valStart
			if vStart > arrayEnd {
				break
			}
			vEnd := strings.IndexByte(text[vStart+1:], '"')
			if vEnd < 0 {
				break
			}
			vEnd += vStart + 1
			values = append(values, text[vStart+1:vEnd])
			valStart = vEnd + 1
		}
		out[key] = values
		pos = arrayEnd + 1
	}
	return out
}

// StringSimilarity returns 1 - editDistance(a, b) / max(len(a), len(b)),
// with unit-cost Levenshtein distance. Two empty strings compare equal
// (1.0).
func StringSimilarity(a, b string) float32 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	dist := matchr.Levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float32(dist)/float32(maxLen)
}

// PhonemeSimilarity is a placeholder contract: the pipeline does not decode
// posteriors into phoneme strings, so posterior-based similarity is
// declared but not implemented; it always returns 0.
func PhonemeSimilarity(a, b []float32) float32 {
	return 0.0
}
