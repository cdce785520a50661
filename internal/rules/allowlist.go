package rules

import (
	"regexp"
	"strings"
)

// Allowlist patterns: values matching any of these are known placeholders
// and never reported. This is the main precision lever, so keep entries
// conservative and test each one.
var allowlist = []*regexp.Regexp{
	regexp.MustCompile(`^0+$`),
	regexp.MustCompile(`^(?i:x+)$`),
	regexp.MustCompile(`^\*+$`),
	regexp.MustCompile(`^(?i:true|false|null|none|undefined)$`),
	regexp.MustCompile(`(?i)example|sample|placeholder|dummy|fixme|changeme|change_me|redacted`),
	regexp.MustCompile(`(?i)your[_\-]?(?:api[_\-]?key|secret|token|password|key)`),
	regexp.MustCompile(`^\$\{[^}]*\}$`),   // shell/template interpolation
	regexp.MustCompile(`^<[^>]*>$`),       // <YOUR-KEY-HERE> style
	regexp.MustCompile(`^\{\{[^}]*\}\}$`), // template refs, incl. {{enveil:...}}
}

// Allowed reports whether value is a known placeholder that must be
// suppressed rather than reported.
func Allowed(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	for _, re := range allowlist {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// PlaceholderRef matches the sentinel left in source after remediation. It
// embeds the vault entry ID so tooling can map a placeholder back to its
// entry.
var PlaceholderRef = regexp.MustCompile(`\{\{enveil:([0-9a-f]{16})\}\}`)
