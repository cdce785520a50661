// Package detect implements the scanning engine for a single piece of
// content: pattern rules from the catalog, an independent entropy sweep,
// allowlist suppression, and span-level deduplication.
package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/enveil/enveil/internal/entropy"
	"github.com/enveil/enveil/internal/rules"
	"github.com/enveil/enveil/internal/types"
)

// Options tunes the detection pipeline. Zero values fall back to defaults.
type Options struct {
	// MinConfidence drops findings scoring below the floor.
	MinConfidence float64
	// EntropyThreshold is the minimum entropy.Score for the generic sweep.
	EntropyThreshold float64
	// MinTokenLength is the shortest token the entropy sweep considers.
	MinTokenLength int
}

// DefaultOptions returns the tuned defaults. The entropy threshold was
// calibrated so that long dictionary-word strings stay below it while
// random base64-ish tokens clear it comfortably.
func DefaultOptions() Options {
	return Options{
		MinConfidence:    0.5,
		EntropyThreshold: 0.5,
		MinTokenLength:   20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinConfidence <= 0 {
		o.MinConfidence = d.MinConfidence
	}
	if o.EntropyThreshold <= 0 {
		o.EntropyThreshold = d.EntropyThreshold
	}
	if o.MinTokenLength <= 0 {
		o.MinTokenLength = d.MinTokenLength
	}
	return o
}

// inlineIgnore suppresses findings on lines carrying this marker.
const inlineIgnore = "enveil:ignore"

// reSweepToken matches token-like runs the entropy sweep inspects. '=' is
// deliberately excluded: it joins KEY=value pairs into one run and inflates
// scores for ordinary assignments. Length is enforced separately via
// Options.MinTokenLength.
var reSweepToken = regexp.MustCompile(`[A-Za-z0-9+/_\-]{12,}`)

// Scan runs the default detection pipeline over content. All input is
// treated as untrusted text; binary-looking content yields no findings.
func Scan(data []byte, path string) []types.Finding {
	return ScanWithOptions(data, path, DefaultOptions())
}

// ScanWithOptions runs the detection pipeline with explicit tuning. The
// result is deduplicated by (path, span) keeping the highest confidence,
// filtered by the confidence floor, and ordered by span start.
func ScanWithOptions(data []byte, path string, opts Options) []types.Finding {
	if len(data) == 0 || LooksBinary(data) {
		return nil
	}
	opts = opts.withDefaults()
	content := string(data)

	var found []types.Finding
	for _, r := range rules.Catalog() {
		if r.Multiline {
			found = append(found, matchMultiline(content, path, r)...)
		}
	}
	forEachLine(content, func(lineNo, lineStart int, line string) {
		if strings.Contains(line, inlineIgnore) {
			return
		}
		for _, r := range rules.Catalog() {
			if r.Multiline {
				continue
			}
			found = append(found, matchLine(line, lineNo, lineStart, path, r)...)
		}
		found = append(found, sweepLine(line, lineNo, lineStart, path, opts)...)
	})

	found = dedupe(found)
	found = dropWeak(found, opts.MinConfidence)
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Path != found[j].Path {
			return found[i].Path < found[j].Path
		}
		return found[i].Start < found[j].Start
	})
	return found
}

// forEachLine walks content line by line, tracking the byte offset of each
// line start so findings can carry exact spans. bufio.Scanner is avoided
// here: it hides offsets and caps token length.
func forEachLine(content string, fn func(lineNo, lineStart int, line string)) {
	lineNo := 0
	start := 0
	for start <= len(content) {
		end := strings.IndexByte(content[start:], '\n')
		var line string
		if end < 0 {
			line = content[start:]
			if line == "" {
				return
			}
			end = len(content) - start
		} else {
			line = content[start : start+end]
		}
		lineNo++
		fn(lineNo, start, strings.TrimSuffix(line, "\r"))
		start += end + 1
	}
}

func matchLine(line string, lineNo, lineStart int, path string, r rules.Rule) []types.Finding {
	idxs := r.Regexp().FindAllStringSubmatchIndex(line, -1)
	if idxs == nil {
		return nil
	}
	var out []types.Finding
	for _, m := range idxs {
		g := r.SecretGroup * 2
		if g+1 >= len(m) || m[g] < 0 {
			continue
		}
		secret := line[m[g]:m[g+1]]
		if rules.Allowed(secret) {
			continue
		}
		out = append(out, types.Finding{
			Path:       path,
			Line:       lineNo,
			Column:     m[g] + 1,
			Start:      lineStart + m[g],
			End:        lineStart + m[g+1],
			Match:      secret,
			Rule:       r.ID,
			Kind:       r.Kind,
			Severity:   r.Severity,
			Confidence: confidence(r, secret),
			Context:    line,
		})
	}
	return out
}

// matchMultiline handles rules like private-key blocks: one finding covers
// the full block, even across line boundaries.
func matchMultiline(content, path string, r rules.Rule) []types.Finding {
	idxs := r.Regexp().FindAllStringIndex(content, -1)
	if idxs == nil {
		return nil
	}
	var out []types.Finding
	for _, m := range idxs {
		block := content[m[0]:m[1]]
		if rules.Allowed(block) {
			continue
		}
		lineNo, col := lineAt(content, m[0])
		out = append(out, types.Finding{
			Path:       path,
			Line:       lineNo,
			Column:     col,
			Start:      m[0],
			End:        m[1],
			Match:      block,
			Rule:       r.ID,
			Kind:       r.Kind,
			Severity:   r.Severity,
			Confidence: r.BaseConfidence,
			Context:    firstLine(block),
		})
	}
	return out
}

// sweepLine flags token-like runs whose entropy score clears the threshold.
// These carry a lower base confidence than pattern matches: randomness
// alone is weaker evidence than a known token shape.
func sweepLine(line string, lineNo, lineStart int, path string, opts Options) []types.Finding {
	var out []types.Finding
	for _, m := range reSweepToken.FindAllStringIndex(line, -1) {
		tok := line[m[0]:m[1]]
		if len(tok) < opts.MinTokenLength {
			continue
		}
		if rules.Allowed(tok) {
			continue
		}
		score := entropy.Score(tok)
		if score < opts.EntropyThreshold {
			continue
		}
		out = append(out, types.Finding{
			Path:       path,
			Line:       lineNo,
			Column:     m[0] + 1,
			Start:      lineStart + m[0],
			End:        lineStart + m[1],
			Match:      tok,
			Rule:       types.RuleEntropyHeuristic,
			Kind:       types.KindEntropyHeuristic,
			Severity:   types.SevMed,
			Confidence: 0.4 + 0.35*score,
			Context:    line,
		})
	}
	return out
}

func confidence(r rules.Rule, secret string) float64 {
	c := r.BaseConfidence
	if r.EntropyBoost {
		c += (1 - c) * 0.6 * entropy.Score(secret)
	}
	if c > 1 {
		c = 1
	}
	return c
}

// dedupe keeps the highest-confidence finding per exact span, then prunes
// entropy-heuristic findings whose span lies inside a pattern match: the
// rule already covers that evidence.
func dedupe(fs []types.Finding) []types.Finding {
	best := map[string]types.Finding{}
	order := []string{}
	for _, f := range fs {
		k := f.SpanKey()
		if prev, ok := best[k]; ok {
			if f.Confidence > prev.Confidence {
				best[k] = f
			}
			continue
		}
		best[k] = f
		order = append(order, k)
	}
	var out []types.Finding
	for _, k := range order {
		f := best[k]
		if f.Rule == types.RuleEntropyHeuristic && coveredByRule(f, best) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func coveredByRule(f types.Finding, best map[string]types.Finding) bool {
	for _, other := range best {
		if other.Rule == types.RuleEntropyHeuristic || other.Path != f.Path {
			continue
		}
		if other.Start <= f.Start && f.End <= other.End {
			return true
		}
		// A pattern match inside the swept token also supersedes it
		// (e.g. a prefixed key embedded in a longer run).
		if f.Start <= other.Start && other.End <= f.End {
			return true
		}
	}
	return false
}

func dropWeak(fs []types.Finding, floor float64) []types.Finding {
	var out []types.Finding
	for _, f := range fs {
		if f.Confidence >= floor {
			out = append(out, f)
		}
	}
	return out
}

func lineAt(content string, offset int) (line, col int) {
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(content); i++ {
		if content[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, offset - lineStart + 1
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// LooksBinary reports whether content is likely non-text: a NUL byte or a
// high ratio of non-printable bytes in the sniff window.
func LooksBinary(b []byte) bool {
	const sniff = 800
	n := len(b)
	if n > sniff {
		n = sniff
	}
	nonPrint := 0
	for i := 0; i < n; i++ {
		c := b[i]
		if c == 0 {
			return true
		}
		if c < 0x09 || (c > 0x0d && c < 0x20) {
			nonPrint++
		}
	}
	return n > 0 && float64(nonPrint)/float64(n) > 0.3
}
