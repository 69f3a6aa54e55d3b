package promptguard

import (
	"strings"
	"unicode"
)

// DefaultMaxLength bounds prompt size to limit abuse through oversized inputs.
const DefaultMaxLength = 2000

// defaultMarkers are phrases commonly used to override or leak the system
// prompt. The list is intentionally small and high-precision; operators can
// replace it via WithMarkers.
var defaultMarkers = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"disregard all",
	"as an ai model",
	"you are now",
	"act as a",
	"output only",
	"generate content in json",
	"system prompt",
	"reveal your instructions",
}

// Result is the outcome of classifying a prompt.
type Result struct {
	Flagged bool
	Pattern string // marker that matched, or ReasonTooLong
}

// ReasonTooLong is reported when the prompt exceeds the configured length cap.
const ReasonTooLong = "input exceeds maximum length"

// Guard classifies prompts against a fixed marker list.
// Immutable after construction, safe for concurrent use.
type Guard struct {
	markers   []string
	maxLength int
}

// Option configures a Guard.
type Option func(*Guard)

// WithMarkers replaces the default marker list. Markers are matched
// case-insensitively; empty entries are dropped.
func WithMarkers(markers ...string) Option {
	return func(g *Guard) {
		g.markers = g.markers[:0]
		for _, m := range markers {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				g.markers = append(g.markers, m)
			}
		}
	}
}

// WithMaxLength sets the prompt length cap in runes. Zero disables the check.
func WithMaxLength(n int) Option {
	return func(g *Guard) { g.maxLength = n }
}

// New creates a Guard with the default marker list and length cap.
func New(opts ...Option) *Guard {
	g := &Guard{
		markers:   append([]string(nil), defaultMarkers...),
		maxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Classify reports whether the prompt matches a configured injection marker.
// The prompt is normalized (null bytes and control characters removed,
// whitespace trimmed, lowercased) before matching so trivial obfuscation
// does not bypass the list.
func (g *Guard) Classify(prompt string) Result {
	normalized := normalize(prompt)

	if g.maxLength > 0 && len([]rune(normalized)) > g.maxLength {
		return Result{Flagged: true, Pattern: ReasonTooLong}
	}

	lowered := strings.ToLower(normalized)
	for _, marker := range g.markers {
		if strings.Contains(lowered, marker) {
			return Result{Flagged: true, Pattern: marker}
		}
	}

	return Result{}
}

// normalize strips null bytes and non-printing control characters and trims
// surrounding whitespace. Newlines and tabs are collapsed to single spaces so
// markers split across lines still match.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\x00':
			// drop
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// drop
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
