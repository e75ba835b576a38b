package notify

import (
	"fmt"
	"strings"

	"github.com/keeperops/vaultward/internal/rotation"
)

// DefaultMaxLines caps how many candidates a message body lists before the
// remainder is summarized.
const DefaultMaxLines = 100

// cipherTypeLabels maps Vaultwarden cipher types to display labels.
var cipherTypeLabels = map[int]string{
	1: "Login",
	2: "SecureNote",
	3: "Card",
	4: "Identity",
}

// LooksEncrypted reports whether a display name appears to be
// ciphertext-shaped. Encrypted Vaultwarden strings look like
// "<encType>.<b64>|<b64>|<b64>" and are quite long.
func LooksEncrypted(s string) bool {
	if s == "" {
		return false
	}
	return (strings.Contains(s, "|") && strings.Contains(s, ".")) || len(s) > 60
}

// LabelFor renders a candidate's display label for message bodies. Names
// that look encrypted are replaced with a type label plus a short id prefix
// so opaque ciphertext never leaks into plaintext notification channels.
func LabelFor(c rotation.Candidate) string {
	name := c.Item.Name
	if name == "" {
		name = "(Unnamed)"
	}
	if !LooksEncrypted(name) {
		return name
	}

	shortID := c.Item.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	if shortID == "" {
		shortID = "unknown"
	}

	typeLabel, ok := cipherTypeLabels[c.Item.CipherType]
	if !ok {
		typeLabel = "Item"
	}
	return fmt.Sprintf("(%s) ID:%s", typeLabel, shortID)
}

// itemLink builds a deep link into the web vault for one item.
func itemLink(baseURL, itemID string) string {
	return strings.TrimRight(baseURL, "/") + "/#/vault?itemId=" + itemID
}

// BuildBody renders the plaintext notification body: one entry per candidate
// up to maxLines, then an "and N more" summary, followed by the policy
// one-liner. baseURL, when set, adds a web-vault deep link per entry.
func BuildBody(candidates []rotation.Candidate, policySummary, baseURL string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	lines := []string{
		"Hello,",
		"",
		"The following Vaultwarden entries are due for password rotation:",
		"",
	}

	for i, candidate := range candidates {
		if i >= maxLines {
			lines = append(lines, fmt.Sprintf("... and %d more", len(candidates)-maxLines))
			break
		}

		dueStr := candidate.DueAt.UTC().Format("2006-01-02 15:04 UTC")
		fullID := candidate.Item.ID
		if fullID == "" {
			fullID = "unknown-id"
		}

		lines = append(lines, fmt.Sprintf("- %s (due %s)", LabelFor(candidate), dueStr))
		lines = append(lines, "  ID: "+fullID)
		if baseURL != "" && fullID != "unknown-id" {
			lines = append(lines, "  Link: "+itemLink(baseURL, fullID))
		}
	}

	lines = append(lines,
		"",
		"Policy: "+policySummary,
		"",
		"Please rotate these passwords at your earliest convenience.",
		"If you have already updated them, you can ignore this reminder.",
		"",
		"-- Vaultward",
	)
	return strings.Join(lines, "\n")
}
