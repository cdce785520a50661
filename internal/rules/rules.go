// Package rules holds the static catalog of secret patterns and the
// allowlist of known placeholder values. A rule is plain data; matching is
// done by the detector as a pure function over the table.
package rules

import (
	"regexp"

	"github.com/enveil/enveil/internal/types"
)

// Rule describes one secret pattern. The catalog is loaded once at process
// start and never mutated.
type Rule struct {
	ID             string
	Label          string
	Kind           types.Kind
	Severity       types.Severity
	BaseConfidence float64

	// SecretGroup is the submatch index holding the secret value; 0 means
	// the whole match is the secret.
	SecretGroup int

	// Multiline rules match across line boundaries (e.g. PEM blocks) and
	// produce one finding covering the full block.
	Multiline bool

	// EntropyBoost marks rules whose confidence is raised by the entropy
	// score of the matched value. Fixed-shape provider tokens don't need
	// it; loose context rules do.
	EntropyBoost bool

	re *regexp.Regexp
}

// Regexp returns the compiled pattern for the rule.
func (r Rule) Regexp() *regexp.Regexp { return r.re }

func rule(id, label string, kind types.Kind, sev types.Severity, conf float64, pattern string) Rule {
	return Rule{ID: id, Label: label, Kind: kind, Severity: sev, BaseConfidence: conf, re: regexp.MustCompile(pattern)}
}

var catalog = []Rule{
	rule("aws_access_key", "AWS Access Key ID", types.KindCloudKey, types.SevHigh, 0.9,
		`\b(?:A3T[A-Z0-9]|AKIA|ASIA|ABIA|ACCA)[0-9A-Z]{16}\b`),
	withGroup(rule("aws_secret_key", "AWS Secret Access Key", types.KindCloudKey, types.SevHigh, 0.95,
		`(?i)(?:aws_secret_access_key|aws_secret_key|secretKey)["'\s:=]+([A-Za-z0-9/+=]{40})`), 1),
	rule("google_api_key", "Google API Key", types.KindCloudKey, types.SevHigh, 0.9,
		`\bAIza[0-9A-Za-z_\-]{35}\b`),
	withGroup(rule("azure_storage_key", "Azure Storage Account Key", types.KindCloudKey, types.SevHigh, 0.9,
		`(?i)AccountKey=([A-Za-z0-9+/=]{64,})`), 1),
	rule("github_token", "GitHub Token", types.KindAccessToken, types.SevHigh, 0.95,
		`\bgh[pousr]_[A-Za-z0-9]{36}\b`),
	rule("gitlab_token", "GitLab Personal Access Token", types.KindAccessToken, types.SevHigh, 0.9,
		`\bglpat-[A-Za-z0-9_\-]{20}\b`),
	rule("slack_token", "Slack Token", types.KindAccessToken, types.SevHigh, 0.9,
		`\bxox[baprs]-[0-9]{10,13}-[A-Za-z0-9\-]{10,}\b`),
	rule("slack_webhook", "Slack Webhook URL", types.KindAccessToken, types.SevMed, 0.9,
		`https://hooks\.slack\.com/services/T[A-Za-z0-9_]+/B[A-Za-z0-9_]+/[A-Za-z0-9]{20,}`),
	rule("stripe_secret_key", "Stripe Secret Key", types.KindAccessToken, types.SevHigh, 0.95,
		`\b(?:sk|rk)_(?:live|test)_[A-Za-z0-9]{24,}\b`),
	rule("sendgrid_api_key", "SendGrid API Key", types.KindAccessToken, types.SevHigh, 0.95,
		`\bSG\.[A-Za-z0-9_\-]{22}\.[A-Za-z0-9_\-]{43}\b`),
	rule("anthropic_api_key", "Anthropic API Key", types.KindAccessToken, types.SevHigh, 0.9,
		`\bsk-ant-[A-Za-z0-9_\-]{24,}\b`),
	boosted(rule("openai_api_key", "OpenAI API Key", types.KindAccessToken, types.SevHigh, 0.7,
		`\bsk-[A-Za-z0-9_\-]{32,}\b`)),
	rule("npm_token", "npm Access Token", types.KindAccessToken, types.SevHigh, 0.9,
		`\bnpm_[A-Za-z0-9]{36}\b`),
	rule("pypi_token", "PyPI Upload Token", types.KindAccessToken, types.SevHigh, 0.95,
		`\bpypi-AgEIcHlwaS5vcmc[A-Za-z0-9_\-]{50,}\b`),
	rule("twilio_api_key", "Twilio API Key SID", types.KindAccessToken, types.SevMed, 0.8,
		`\bSK[0-9a-f]{32}\b`),
	rule("telegram_bot_token", "Telegram Bot Token", types.KindAccessToken, types.SevHigh, 0.9,
		`\b[0-9]{8,10}:AA[A-Za-z0-9_\-]{33}\b`),
	boosted(rule("jwt", "JSON Web Token", types.KindAccessToken, types.SevMed, 0.75,
		`\beyJ[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\.[A-Za-z0-9_\-]{8,}\b`)),
	multiline(rule("private_key_block", "Private Key Block", types.KindPrivateKeyBlock, types.SevHigh, 0.99,
		`-----BEGIN (?:[A-Z ]*)PRIVATE KEY-----(?s:.*?)-----END (?:[A-Z ]*)PRIVATE KEY-----`)),
	withGroup(rule("connection_uri_creds", "Connection URI With Credentials", types.KindConnectionURI, types.SevHigh, 0.85,
		`(?i)\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp|mssql)://[^\s'"@/]+:([^\s'"@]+)@[^\s'"]+`), 1),
	boosted(withGroup(rule("generic_api_key", "Generic API Key Assignment", types.KindGenericToken, types.SevMed, 0.6,
		`(?i)(?:api[_\-]?key|apikey|auth[_\-]?token|access[_\-]?token|client[_\-]?secret)["'\s]*[:=]\s*["']?([A-Za-z0-9_\-]{20,64})`), 1)),
	boosted(withGroup(rule("password_assignment", "Password Assignment", types.KindGenericToken, types.SevMed, 0.55,
		`(?i)(?:password|passwd|pwd)\s*[:=]\s*["']([^"'\s]{8,64})["']`), 1)),
}

func withGroup(r Rule, group int) Rule { r.SecretGroup = group; return r }
func boosted(r Rule) Rule              { r.EntropyBoost = true; return r }
func multiline(r Rule) Rule            { r.Multiline = true; return r }

// Catalog returns the built-in rule table. Callers must not mutate it.
func Catalog() []Rule { return catalog }

// IDs returns all rule IDs in catalog order.
func IDs() []string {
	out := make([]string, 0, len(catalog))
	for _, r := range catalog {
		out = append(out, r.ID)
	}
	return out
}

// ByID returns the rule with the given ID, if present.
func ByID(id string) (Rule, bool) {
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}
