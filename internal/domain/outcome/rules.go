package outcome

import (
	"regexp"
	"strings"

	"github.com/iacscan/iacscan/internal/domain"
)

// RuleKind selects how raw tool output becomes a status.
type RuleKind int

const (
	// RuleEmpty passes when the output is empty.
	RuleEmpty RuleKind = iota
	// RulePositive passes when the output contains Marker.
	RulePositive
	// RuleNegative fails when the output contains Marker.
	RuleNegative
	// RuleInfo always yields StatusInfo.
	RuleInfo
	// RuleANSIPositive strips ANSI escapes and newlines, stores the cleaned
	// text as the log, then applies RulePositive.
	RuleANSIPositive
)

// Rule is a tagged classification rule.
type Rule struct {
	Kind   RuleKind
	Marker string
}

// DefaultRules maps check names to their classification rule.
// Checks missing here resolve to StatusUnsupported.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"tfsec":             {Kind: RuleANSIPositive, Marker: "No problems detected!"},
		"git-leaks":         {Kind: RulePositive, Marker: "No leaks found"},
		"git-secrets":       {Kind: RuleEmpty},
		"terrascan":         {Kind: RuleEmpty},
		"tflint":            {Kind: RuleEmpty},
		"checkstyle":        {Kind: RuleEmpty},
		"shellcheck":        {Kind: RuleEmpty},
		"hadolint":          {Kind: RuleEmpty},
		"ansible-lint":      {Kind: RuleEmpty},
		"steampunk-scanner": {Kind: RuleEmpty},
		"htmlhint":          {Kind: RulePositive, Marker: "no errors"},
		"pylint":            {Kind: RulePositive, Marker: "no problems"},
		"bandit":            {Kind: RulePositive, Marker: "No issues identified."},
		"es-lint":           {Kind: RuleNegative, Marker: "wrong"},
		"ts-lint":           {Kind: RuleNegative, Marker: "wrong"},
		"yamllint":          {Kind: RuleNegative, Marker: "error"},
		"cloc":              {Kind: RuleInfo},
	}
}

var ansiColor = regexp.MustCompile(`\[[0-9]*m`)

// StripANSI removes color sequences and replaces ESC bytes and newlines with spaces.
func StripANSI(s string) string {
	s = ansiColor.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\x1b", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// Apply classifies raw and returns the status with the log to store.
func (r Rule) Apply(raw string) (domain.Status, string) {
	switch r.Kind {
	case RuleEmpty:
		return passIf(raw == ""), raw
	case RulePositive:
		return passIf(strings.Contains(raw, r.Marker)), raw
	case RuleNegative:
		return passIf(!strings.Contains(raw, r.Marker)), raw
	case RuleInfo:
		return domain.StatusInfo, raw
	case RuleANSIPositive:
		clean := StripANSI(raw)
		return passIf(strings.Contains(clean, r.Marker)), clean
	default:
		return domain.StatusUnsupported, raw
	}
}

func passIf(ok bool) domain.Status {
	if ok {
		return domain.StatusPassed
	}
	return domain.StatusProblems
}
