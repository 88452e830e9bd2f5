// Package validator screens raw caller text before it reaches the executor.
//
// Detection is regex-based and best-effort: the catalogue is defense in
// depth at an application trust boundary, not a security guarantee. Rules
// are supplied as data at construction so the catalogue can grow without
// touching control flow.
package validator

import (
	"regexp"
	"strings"
)

// Rule is one named detection pattern.
type Rule struct {
	Name    string
	Pattern string
}

// Finding reports a single rule match. Matches are reported per rule, not
// deduplicated across rules.
type Finding struct {
	Rule string
}

// DefaultInjectionRules is the stock threat-signature catalogue.
var DefaultInjectionRules = []Rule{
	{Name: "script_tag", Pattern: `(?is)<script[^>]*>.*?</script>`},
	{Name: "javascript_url", Pattern: `(?i)javascript:`},
	{Name: "data_html_url", Pattern: `(?i)data:text/html`},
	{Name: "eval_call", Pattern: `(?i)eval\s*\(`},
	{Name: "exec_call", Pattern: `(?i)exec\s*\(`},
	{Name: "import_statement", Pattern: `(?i)\bimport\s+`},
	{Name: "dynamic_import", Pattern: `(?i)__import__`},
	{Name: "getattr_call", Pattern: `(?i)getattr\s*\(`},
	{Name: "setattr_call", Pattern: `(?i)setattr\s*\(`},
}

// DefaultSensitiveRules matches PII shapes. Findings from these rules are
// advisory: they feed logging and anonymization, never admission.
var DefaultSensitiveRules = []Rule{
	{Name: "ssn", Pattern: `\b\d{3}-\d{2}-\d{4}\b`},
	{Name: "credit_card", Pattern: `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`},
	{Name: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`},
	{Name: "phone", Pattern: `\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`},
}

// DefaultMaxLength bounds sanitized input.
const DefaultMaxLength = 1000

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

// Validator sanitizes and scans caller text. All methods are side-effect-free
// and safe for concurrent use.
type Validator struct {
	maxLength   int
	injection   []compiledRule
	sensitive   []compiledRule
	scriptBlock *regexp.Regexp
	markupTag   *regexp.Regexp
}

// Option configures a Validator.
type Option func(*options)

type options struct {
	maxLength int
	injection []Rule
	sensitive []Rule
}

// WithMaxLength overrides the sanitization truncation limit.
func WithMaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// WithInjectionRules replaces the injection catalogue.
func WithInjectionRules(rules []Rule) Option {
	return func(o *options) { o.injection = rules }
}

// WithSensitiveRules replaces the sensitive-info catalogue.
func WithSensitiveRules(rules []Rule) Option {
	return func(o *options) { o.sensitive = rules }
}

// New compiles the catalogue into a Validator. Invalid patterns are rejected
// at construction rather than surfacing as silent non-matches later.
func New(opts ...Option) (*Validator, error) {
	o := options{
		maxLength: DefaultMaxLength,
		injection: DefaultInjectionRules,
		sensitive: DefaultSensitiveRules,
	}
	for _, opt := range opts {
		opt(&o)
	}

	v := &Validator{
		maxLength:   o.maxLength,
		scriptBlock: regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		markupTag:   regexp.MustCompile(`<[^>]*>`),
	}

	var err error
	if v.injection, err = compile(o.injection); err != nil {
		return nil, err
	}
	if v.sensitive, err = compile(o.sensitive); err != nil {
		return nil, err
	}
	return v, nil
}

func compile(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{name: r.Name, re: re})
	}
	return compiled, nil
}

// Sanitize strips script blocks and remaining markup, then truncates to the
// configured maximum length.
func (v *Validator) Sanitize(text string) string {
	cleaned := v.scriptBlock.ReplaceAllString(text, "")
	cleaned = v.markupTag.ReplaceAllString(cleaned, "")
	if runes := []rune(cleaned); len(runes) > v.maxLength {
		cleaned = string(runes[:v.maxLength])
	}
	return strings.TrimSpace(cleaned)
}

// DetectInjectionPatterns reports every injection rule the text matches.
func (v *Validator) DetectInjectionPatterns(text string) []Finding {
	return scan(v.injection, text)
}

// DetectSensitiveInfo reports every PII shape the text matches. Advisory only.
func (v *Validator) DetectSensitiveInfo(text string) []Finding {
	return scan(v.sensitive, text)
}

func scan(rules []compiledRule, text string) []Finding {
	var findings []Finding
	for _, r := range rules {
		if r.re.MatchString(text) {
			findings = append(findings, Finding{Rule: r.name})
		}
	}
	return findings
}

// Validate runs the full screen. Only injection findings (or an empty query)
// fail closed; sensitive-info findings become warnings without flipping
// safety. That asymmetry is the contract: PII detection informs logging and
// anonymization, not admission.
func (v *Validator) Validate(text string) (bool, []string) {
	if strings.TrimSpace(text) == "" {
		return false, []string{"empty query"}
	}

	var warnings []string
	injections := v.DetectInjectionPatterns(text)
	for _, f := range injections {
		warnings = append(warnings, "injection pattern detected: "+f.Rule)
	}
	for _, f := range v.DetectSensitiveInfo(text) {
		warnings = append(warnings, "possible sensitive information: "+f.Rule)
	}

	return len(injections) == 0, warnings
}
