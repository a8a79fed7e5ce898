package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Rule rewrites paths matching Regexp into the VName template. Template
// fields use ${n} group references.
type Rule struct {
	*regexp.Regexp
	VName VName
}

// Apply reports whether the rule matches input and, if so, returns the
// expanded VName.
func (r Rule) Apply(input string) (VName, bool) {
	m := r.FindStringSubmatchIndex(input)
	if m == nil {
		return VName{}, false
	}
	return VName{
		Corpus:    r.expand(m, input, r.VName.Corpus),
		Root:      r.expand(m, input, r.VName.Root),
		Path:      r.expand(m, input, r.VName.Path),
		Language:  r.expand(m, input, r.VName.Language),
		Signature: r.expand(m, input, r.VName.Signature),
	}, true
}

func (r Rule) expand(match []int, input, template string) string {
	return string(r.ExpandString(nil, template, input, match))
}

// Rules are applied in order; the first matching rule wins.
type Rules []Rule

// Apply returns the result of the first rule matching input.
func (rs Rules) Apply(input string) (VName, bool) {
	for _, r := range rs {
		if v, ok := r.Apply(input); ok {
			return v, true
		}
	}
	return VName{}, false
}

// ApplyDefault acts as Apply but returns def when no rule matches.
func (rs Rules) ApplyDefault(input string, def VName) VName {
	if v, ok := rs.Apply(input); ok {
		return v
	}
	return def
}

// RuleSpec is the JSON form of a Rule.
type RuleSpec struct {
	Pattern string `json:"pattern"`
	VName   VName  `json:"vname"`
}

// CompileRule anchors the rule pattern at both ends and rewrites @n@
// template markers to regexp expansion syntax.
func CompileRule(rs RuleSpec) (Rule, error) {
	pattern := "^" + strings.TrimSuffix(strings.TrimPrefix(rs.Pattern, "^"), "$") + "$"
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("manifest: invalid rule pattern %q: %w", rs.Pattern, err)
	}
	return Rule{
		Regexp: re,
		VName: VName{
			Corpus:    fixTemplate(rs.VName.Corpus),
			Root:      fixTemplate(rs.VName.Root),
			Path:      fixTemplate(rs.VName.Path),
			Language:  fixTemplate(rs.VName.Language),
			Signature: fixTemplate(rs.VName.Signature),
		},
	}, nil
}

var fieldRE = regexp.MustCompile(`@(\w+)@`)

func fixTemplate(s string) string {
	if s == "" {
		return ""
	}
	return fieldRE.ReplaceAllStringFunc(strings.ReplaceAll(s, "$", "$$"), func(m string) string {
		return "${" + strings.Trim(m, "@") + "}"
	})
}

// ParseRules parses a JSON array of rule specs.
func ParseRules(data []byte) (Rules, error) { return ReadRules(bytes.NewReader(data)) }

// ReadRules parses a JSON array of rule specs from r.
func ReadRules(r io.Reader) (Rules, error) {
	var specs []RuleSpec
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&specs); err != nil {
		return nil, fmt.Errorf("manifest: decode rules: %w", err)
	}
	rules := make(Rules, 0, len(specs))
	for _, s := range specs {
		rule, err := CompileRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRules reads rules from the file at path. An empty path yields no rules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open rules: %w", err)
	}
	defer f.Close()
	return ReadRules(f)
}
