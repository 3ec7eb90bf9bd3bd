package outcome

import (
	"maps"
	"strings"
	"sync"

	"github.com/iacscan/iacscan/internal/domain"
)

// Classifier turns raw tool output into a CheckOutcome. It is pure: the same
// inputs always produce the same outcome.
type Classifier struct {
	rules  map[string]Rule
	matrix domain.CompatibilityMatrix
}

func NewClassifier(rules map[string]Rule, matrix domain.CompatibilityMatrix) *Classifier {
	return &Classifier{rules: rules, matrix: matrix}
}

// NewDefaultClassifier uses DefaultRules and the default compatibility matrix.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultRules(), domain.DefaultCompatibility())
}

// Classify applies the check's rule to raw and attributes scanned files.
// Files come from the last matrix tag listing the check.
func (c *Classifier) Classify(check, raw string, index domain.ScannedFileIndex) domain.CheckOutcome {
	out := domain.CheckOutcome{Files: c.attributeFiles(check, index)}

	rule, ok := c.rules[check]
	if !ok {
		out.Status, out.Log = domain.StatusUnsupported, raw
		return out
	}
	out.Status, out.Log = rule.Apply(raw)
	return out
}

func (c *Classifier) attributeFiles(check string, index domain.ScannedFileIndex) string {
	tags := c.matrix.TagsFor(check)
	if len(tags) == 0 {
		return ""
	}
	return FormatFileList(index[tags[len(tags)-1]])
}

// FormatFileList renders files as a quoted list, e.g. ['a.tf', 'b.tf'].
func FormatFileList(files []string) string {
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "'" + f + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Summary collects the outcomes of one scan. Workers record into it
// concurrently; Outcomes is read after they have all finished.
type Summary struct {
	classifier *Classifier

	mu       sync.Mutex
	outcomes map[string]domain.CheckOutcome
}

func NewSummary(c *Classifier) *Summary {
	return &Summary{classifier: c, outcomes: make(map[string]domain.CheckOutcome)}
}

// SummarizeOutcome classifies raw, records it under check and returns the status.
func (s *Summary) SummarizeOutcome(check, raw string, index domain.ScannedFileIndex) domain.Status {
	o := s.classifier.Classify(check, raw, index)
	s.record(check, o)
	return o.Status
}

// MarkNoFiles records that no applicable input was found for check.
func (s *Summary) MarkNoFiles(check string) {
	s.record(check, domain.CheckOutcome{Status: domain.StatusNoFiles})
}

// MarkProblems records a forced Problems outcome, used when the tool timed out.
func (s *Summary) MarkProblems(check, log string, index domain.ScannedFileIndex) {
	o := s.classifier.Classify(check, log, index)
	o.Status, o.Log = domain.StatusProblems, log
	s.record(check, o)
}

func (s *Summary) record(check string, o domain.CheckOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[check] = o
}

// Outcomes returns a copy of everything recorded so far.
func (s *Summary) Outcomes() map[string]domain.CheckOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.outcomes)
}
