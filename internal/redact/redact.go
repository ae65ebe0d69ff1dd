// Package redact removes credentials from candidate text before it leaves
// the service. Candidates paste code, and code carries keys.
package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Placeholder replaces every redacted span.
const Placeholder = "[REDACTED]"

// Rule detects one kind of credential.
type Rule struct {
	ID      string
	Pattern string
	// Keywords gate the rule: when set, at least one must appear
	// (case-insensitively) before the pattern runs.
	Keywords []string
}

// Config configures a Redactor.
type Config struct {
	Rules []Rule
	// AllowList holds patterns for matches that are left in place, such as
	// documented placeholder keys.
	AllowList []string
}

// Finding is one redacted span. The matched text is never kept.
type Finding struct {
	RuleID string `json:"rule_id"`
	Line   int    `json:"line"`
}

// Result is the outcome of Redact.
type Result struct {
	Text     string
	Findings []Finding
}

// RuleIDs returns the distinct rules that matched, sorted.
func (r Result) RuleIDs() []string {
	seen := make(map[string]bool, len(r.Findings))
	ids := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	sort.Strings(ids)
	return ids
}

type compiledRule struct {
	id       string
	pattern  *regexp.Regexp
	keywords []string
}

// Redactor scrubs credentials. It is safe for concurrent use.
type Redactor struct {
	rules []compiledRule
	allow []*regexp.Regexp
}

// New compiles cfg. A nil cfg selects DefaultRules.
func New(cfg *Config) (*Redactor, error) {
	if cfg == nil {
		cfg = &Config{Rules: DefaultRules()}
	}

	r := &Redactor{rules: make([]compiledRule, 0, len(cfg.Rules))}
	for i, rule := range cfg.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", rule.ID)
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}
		kws := make([]string, len(rule.Keywords))
		for j, kw := range rule.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		r.rules = append(r.rules, compiledRule{id: rule.ID, pattern: re, keywords: kws})
	}
	for i, p := range cfg.AllowList {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("allow list %d: %w", i, err)
		}
		r.allow = append(r.allow, re)
	}
	return r, nil
}

type span struct{ start, end int }

// Redact replaces every credential in text with Placeholder. Overlapping
// matches collapse into a single placeholder.
func (r *Redactor) Redact(text string) Result {
	res := Result{Text: text}
	if text == "" {
		return res
	}

	lower := strings.ToLower(text)
	var spans []span
	for _, rule := range r.rules {
		if !hasKeyword(lower, rule.keywords) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(text, -1) {
			if r.allowed(text[m[0]:m[1]]) {
				continue
			}
			res.Findings = append(res.Findings, Finding{
				RuleID: rule.id,
				Line:   strings.Count(text[:m[0]], "\n") + 1,
			})
			spans = append(spans, span{m[0], m[1]})
		}
	}
	if len(spans) == 0 {
		return res
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, s := range merge(spans) {
		b.WriteString(text[pos:s.start])
		b.WriteString(Placeholder)
		pos = s.end
	}
	b.WriteString(text[pos:])
	res.Text = b.String()

	sort.SliceStable(res.Findings, func(i, j int) bool { return res.Findings[i].Line < res.Findings[j].Line })
	return res
}

func (r *Redactor) allowed(match string) bool {
	for _, re := range r.allow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

func hasKeyword(lower string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// merge joins overlapping or touching spans. spans must be sorted by start.
func merge(spans []span) []span {
	out := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		out = append(out, s)
	}
	return out
}
