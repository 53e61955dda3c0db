// Package botfilter classifies request user-agents so crawler traffic never
// reaches the event store. Classification is deliberately cheap: a
// case-insensitive substring match against known crawler tokens.
package botfilter

import "strings"

// Known crawler tokens. Matched as substrings, so "googlebot" also catches
// "Googlebot-Image" and the generic "bot" token catches most long-tail
// crawlers.
var botTokens = []string{
	"bot",
	"crawl",
	"spider",
	"scrape",
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"facebookexternalhit",
}

// IsBot reports whether the user-agent belongs to a crawler. An empty
// user-agent is treated as a bot: real browsers always send one.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return true
	}

	ua := strings.ToLower(userAgent)
	for _, token := range botTokens {
		if strings.Contains(ua, token) {
			return true
		}
	}
	return false
}
