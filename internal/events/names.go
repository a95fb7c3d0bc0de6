package events

import "strings"

const (
	anonymousName = "Anonymous"
	fallbackName  = "Someone"
)

// tierLabel maps the platform's raw tier codes to the human labels shown
// on the overlay. Unknown codes default to Tier 1.
func tierLabel(code string) string {
	switch code {
	case "2000":
		return "Tier 2"
	case "3000":
		return "Tier 3"
	case "Prime", "prime":
		return "Prime"
	default:
		return "Tier 1"
	}
}

// displayName substitutes a default when an event arrives without one, for
// example an anonymous cheer or gift.
func displayName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

// containsInvitePrompt reports whether a chat message carries the community
// invite keyword or an invite link. Matching is case-insensitive.
func containsInvitePrompt(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "!discord") || strings.Contains(lower, "discord.gg/")
}
