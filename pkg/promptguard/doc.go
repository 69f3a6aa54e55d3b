// Package promptguard screens inbound prompts for known injection markers
// before they reach quota accounting or the generation provider.
//
// Classification is a pure function: case-insensitive substring matching
// against a configurable denylist, with no I/O and no shared mutable state.
// A single match flags the whole prompt. This is a heuristic filter, not a
// guarantee: absence of a match is the only "safe" signal.
//
// Basic usage:
//
//	guard := promptguard.New()
//	if res := guard.Classify(input); res.Flagged {
//	    // reject the request, res.Pattern names the matched marker
//	}
package promptguard
