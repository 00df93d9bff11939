package activity

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// Sdbm hashes s with the sdbm algorithm over its UTF-16 code units, wrapping
// at 32 bits. Identical strings always hash identically; collisions are
// possible and acceptable.
func Sdbm(s string) uint32 {
	var hash uint32
	for _, c := range utf16.Encode([]rune(s)) {
		hash = uint32(c) + (hash << 6) + (hash << 16) - hash
	}
	return hash
}

// Identifier returns the canonical identity string of an event.
func Identifier(e Event) string {
	switch e.Kind {
	case KindAggregated:
		return "aggregated::" + e.ID
	case KindTask:
		return "label::" + e.Label
	default:
		return "window::" + e.App + "::" + e.Title
	}
}

// Identify returns a copy of e with Hash set from its current identifier.
func Identify(e Event) Event {
	e.Hash = Sdbm(Identifier(e))
	return e
}

// TitleRules configures window title sanitization.
type TitleRules struct {
	// Suffixes maps an app name to a trailing suffix stripped from its titles.
	Suffixes map[string]string
	// EditorApps lists apps whose titles carry a "(Working Tree) (...)" marker.
	EditorApps []string
}

// DefaultTitleRules returns the built-in sanitization rules.
func DefaultTitleRules() TitleRules {
	return TitleRules{
		Suffixes: map[string]string{
			"chrome.exe":   " - Google Chrome",
			"Notepad3.exe": " - Notepad3",
			"Code.exe":     " - Visual Studio Code",
		},
		EditorApps: []string{"Code.exe", "code"},
	}
}

var (
	leadingMarkers = regexp.MustCompile(`^[●*]+\s*`)
	workingTree    = regexp.MustCompile(`\s*\(Working Tree\)\s*\(.*\)`)
)

// SanitizeTitle cleans a window title and returns the event with its identity
// hash recomputed from the final title.
func (r TitleRules) SanitizeTitle(e Event) Event {
	if e.Kind != KindWindow {
		return Identify(e)
	}
	title := leadingMarkers.ReplaceAllString(e.Title, "")

	for _, app := range r.EditorApps {
		if app == e.App {
			title = workingTree.ReplaceAllString(title, "")
			break
		}
	}

	if suffix, ok := r.Suffixes[e.App]; ok && suffix != "" {
		title = strings.TrimSuffix(title, suffix)
	}

	e.Title = strings.TrimSpace(title)
	return Identify(e)
}
