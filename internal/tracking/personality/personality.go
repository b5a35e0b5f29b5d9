package personality

import (
	"strings"

	"github.com/architect/interactive-content/internal/tracking/models"
)

// DefaultAccentColor is used when the tutor personality matches no known
// label (or the host supplied none).
const DefaultAccentColor = "#6c757d"

// accentColors maps known personality labels to a UI accent color.
// Matching is case-insensitive substring, so "Friendly Tutor v2" still
// lands on "friendly".
var accentColors = []struct {
	label string
	color string
}{
	{"friendly", "#28a745"},
	{"encouraging", "#17a2b8"},
	{"professional", "#007bff"},
	{"playful", "#ffc107"},
	{"strict", "#dc3545"},
	{"socratic", "#6f42c1"},
}

// AccentColor resolves the UI accent color for a tutor personality string.
// The personality itself is an opaque server-side concern; this is purely
// cosmetic.
func AccentColor(tutorPersonality string) string {
	needle := strings.ToLower(tutorPersonality)
	if needle == "" {
		return DefaultAccentColor
	}
	for _, entry := range accentColors {
		if strings.Contains(needle, entry.label) {
			return entry.color
		}
	}
	return DefaultAccentColor
}

// Known reports whether the personality string matches a known label.
func Known(tutorPersonality string) bool {
	return AccentColor(tutorPersonality) != DefaultAccentColor
}

// CaptureFunc records one interaction event.
type CaptureFunc func(models.InteractionEvent) bool

// TagListener wraps an interaction capture path so every event it sees is
// tagged for the server-side adaptation algorithm. No adaptation logic
// runs here; the tag is forwarded opaquely.
func TagListener(capture CaptureFunc, adaptationAlgorithm string) CaptureFunc {
	if adaptationAlgorithm == "" {
		return capture
	}
	return func(ev models.InteractionEvent) bool {
		ev.AdaptationTag = adaptationAlgorithm
		return capture(ev)
	}
}
