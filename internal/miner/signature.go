package miner

import (
	"regexp"
	"strings"

	"github.com/habitlens/habitlens/internal/event"
)

// Canonical signatures collapse superficial DOM variation so that two
// occurrences of the same workflow hash identically: numeric indices are
// emptied, id selectors stripped, and runs of class selectors reduced to
// a single token. Tag and structural shape are preserved.
var (
	indexSegment = regexp.MustCompile(`\[\d+\]`)
	idSegment    = regexp.MustCompile(`#[A-Za-z0-9_-]+`)
	classRun     = regexp.MustCompile(`(\.[A-Za-z0-9_-]+)+`)
)

// SignatureSeparator joins step keys into a signature. The streaming
// detector builds its window signatures with the same separator so the
// batch and real-time paths hash identically.
const SignatureSeparator = "|"

// NormalizePath canonicalizes a DOM locator.
func NormalizePath(path string) string {
	p := indexSegment.ReplaceAllString(path, "[]")
	p = idSegment.ReplaceAllString(p, "")
	p = classRun.ReplaceAllString(p, ".c")
	return strings.TrimSpace(p)
}

// StepKey is the canonical form of a single event within a signature.
func StepKey(t event.Type, domPath string) string {
	return string(t) + ":" + NormalizePath(domPath)
}

// Signature derives the deterministic canonical key for a sequence of
// events. Identical input always yields an identical signature.
func Signature(events []event.Event) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, StepKey(e.Type, e.DOMPath))
	}
	return strings.Join(parts, SignatureSeparator)
}
