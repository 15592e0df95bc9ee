package scanner

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// RuleSpec is the declarative, uncompiled form of one site's link rules.
type RuleSpec struct {
	Domain           string   `yaml:"domain"`
	BaseURL          string   `yaml:"baseUrl"`
	Allow            []string `yaml:"allow"`
	Deny             []string `yaml:"deny"`
	Extract          []string `yaml:"extract"`
	HrefOnly         bool     `yaml:"hrefOnly"`
	DropTrailingDash bool     `yaml:"dropTrailingDash"`
	Feed             bool     `yaml:"feed"`
}

// Rule is a compiled RuleSpec.
type Rule struct {
	Domain           string
	BaseURL          string
	HrefOnly         bool
	DropTrailingDash bool
	Feed             bool

	allow   []*regexp.Regexp
	deny    []*regexp.Regexp
	extract []*regexp.Regexp
}

// Compile validates and compiles every pattern of a RuleSpec.
func Compile(spec RuleSpec) (*Rule, error) {
	domain := strings.ToLower(strings.TrimSpace(spec.Domain))
	if domain == "" {
		return nil, fmt.Errorf("site rule: empty domain")
	}
	if spec.BaseURL != "" {
		base, err := url.Parse(spec.BaseURL)
		if err != nil || base.Host == "" {
			return nil, fmt.Errorf("site %s: invalid base url %q", domain, spec.BaseURL)
		}
	}

	rule := &Rule{
		Domain:           domain,
		BaseURL:          strings.TrimRight(spec.BaseURL, "/"),
		HrefOnly:         spec.HrefOnly,
		DropTrailingDash: spec.DropTrailingDash,
		Feed:             spec.Feed,
	}

	var err error
	if rule.allow, err = compileAll(spec.Allow); err != nil {
		return nil, fmt.Errorf("site %s allow: %w", domain, err)
	}
	if rule.deny, err = compileAll(spec.Deny); err != nil {
		return nil, fmt.Errorf("site %s deny: %w", domain, err)
	}
	if rule.extract, err = compileAll(spec.Extract); err != nil {
		return nil, fmt.Errorf("site %s extract: %w", domain, err)
	}
	return rule, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Keep applies the allow, deny and trailing-dash predicates to a normalized URL.
func (r *Rule) Keep(raw string) bool {
	if len(r.allow) > 0 && !matchAny(r.allow, raw) {
		return false
	}
	if matchAny(r.deny, raw) {
		return false
	}
	if r.DropTrailingDash {
		parsed, err := url.Parse(raw)
		if err != nil || strings.HasSuffix(parsed.Path, "-") {
			return false
		}
	}
	return true
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Table keeps compiled rules keyed by source website.
type Table struct {
	rules map[string]*Rule
}

// NewTable compiles every spec; any invalid pattern fails the whole table.
func NewTable(specs []RuleSpec) (*Table, error) {
	t := &Table{rules: make(map[string]*Rule, len(specs))}
	for _, spec := range specs {
		rule, err := Compile(spec)
		if err != nil {
			return nil, err
		}
		t.Register(rule)
	}
	return t, nil
}

// Register adds or replaces a rule.
func (t *Table) Register(rule *Rule) {
	if t.rules == nil {
		t.rules = map[string]*Rule{}
	}
	t.rules[rule.Domain] = rule
}

// Resolve returns the rule for a source website, if configured.
func (t *Table) Resolve(source string) (*Rule, bool) {
	if t == nil {
		return nil, false
	}
	rule, ok := t.rules[strings.ToLower(strings.TrimSpace(source))]
	return rule, ok
}

// Domains lists configured sites in stable order.
func (t *Table) Domains() []string {
	out := make([]string, 0, len(t.rules))
	for domain := range t.rules {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}
