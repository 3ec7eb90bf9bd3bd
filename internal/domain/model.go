package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the normalized classification of a single check run.
type Status string

const (
	StatusPassed      Status = "Passed"
	StatusProblems    Status = "Problems"
	StatusInfo        Status = "Info"
	StatusNoFiles     Status = "No files"
	StatusUnsupported Status = "Not fully supported yet"
)

// TimeLayout is the human-readable layout of ScanResult.Time.
const TimeLayout = "01/02/2006, 15:04:05"

// Metadata keys of the flattened outcome document.
const (
	KeyUUID              = "uuid"
	KeyTime              = "time"
	KeyArchive           = "archive"
	KeyExecutionDuration = "execution-duration"
	KeyVerdict           = "verdict"
	KeyProjectID         = "project_id"
	KeyCommitHash        = "commit_hash"
	KeyParameters        = "parameters"
)

var metadataKeys = []string{
	KeyUUID, KeyTime, KeyArchive, KeyExecutionDuration,
	KeyVerdict, KeyProjectID, KeyCommitHash, KeyParameters,
}

// IsMetadataKey reports whether key names a scan-level field rather than a check.
func IsMetadataKey(key string) bool { return slices.Contains(metadataKeys, key) }

// CheckOutcome is the classified result of one check.
// A StatusNoFiles outcome always has an empty Log and Files.
type CheckOutcome struct {
	Status Status `json:"status"`
	Log    string `json:"log"`
	Files  string `json:"files"`
}

// ScanResult is the aggregated outcome of one scan.
// It serializes to a flat document: metadata keys next to one entry per check.
type ScanResult struct {
	UUID              string
	Archive           string
	Time              string
	ExecutionDuration string
	Verdict           Status
	ProjectID         string
	CommitHash        string
	Parameters        map[string]any
	Outcomes          map[string]CheckOutcome
}

// ComputeVerdict returns StatusProblems if any outcome has status Problems.
func ComputeVerdict(outcomes map[string]CheckOutcome) Status {
	for name, o := range outcomes {
		if IsMetadataKey(name) {
			continue
		}
		if o.Status == StatusProblems {
			return StatusProblems
		}
	}
	return StatusPassed
}

// FormatDuration renders seconds with three decimals, trimming trailing zeros
// the same way a float round-trip would ("1.5", "0.123", "2.0").
func FormatDuration(d time.Duration) string {
	s := fmt.Sprintf("%.3f", d.Seconds())
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// StartedAt parses Time in the local zone.
func (r *ScanResult) StartedAt() (time.Time, error) {
	if r.Time == "" {
		return time.Time{}, fmt.Errorf("scan %s has no timestamp", r.UUID)
	}
	t, err := time.ParseInLocation(TimeLayout, r.Time, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("scan %s has malformed timestamp %q: %w", r.UUID, r.Time, err)
	}
	return t, nil
}

// AgeInDays is the number of whole days between the scan start and now.
func (r *ScanResult) AgeInDays(now time.Time) (int, error) {
	started, err := r.StartedAt()
	if err != nil {
		return 0, err
	}
	return int(now.Sub(started).Hours() / 24), nil
}

func (r *ScanResult) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(r.Outcomes)+len(metadataKeys))
	for name, o := range r.Outcomes {
		doc[name] = o
	}
	doc[KeyUUID] = r.UUID
	doc[KeyArchive] = r.Archive
	doc[KeyTime] = r.Time
	doc[KeyExecutionDuration] = r.ExecutionDuration
	doc[KeyVerdict] = r.Verdict
	if r.ProjectID != "" {
		doc[KeyProjectID] = r.ProjectID
	}
	if r.CommitHash != "" {
		doc[KeyCommitHash] = r.CommitHash
	}
	if len(r.Parameters) > 0 {
		doc[KeyParameters] = r.Parameters
	}
	return json.Marshal(doc)
}

func (r *ScanResult) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	str := func(key string) (string, error) {
		raw, ok := doc[key]
		if !ok {
			return "", nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding %s: %w", key, err)
		}
		return s, nil
	}

	var (
		res ScanResult
		err error
	)
	fields := []struct {
		key string
		dst *string
	}{
		{KeyUUID, &res.UUID},
		{KeyArchive, &res.Archive},
		{KeyTime, &res.Time},
		{KeyExecutionDuration, &res.ExecutionDuration},
		{KeyProjectID, &res.ProjectID},
		{KeyCommitHash, &res.CommitHash},
	}
	for _, f := range fields {
		if *f.dst, err = str(f.key); err != nil {
			return err
		}
	}
	verdict, err := str(KeyVerdict)
	if err != nil {
		return err
	}
	res.Verdict = Status(verdict)

	if raw, ok := doc[KeyParameters]; ok {
		if err := json.Unmarshal(raw, &res.Parameters); err != nil {
			return fmt.Errorf("decoding %s: %w", KeyParameters, err)
		}
	}

	res.Outcomes = make(map[string]CheckOutcome)
	for key, raw := range doc {
		if IsMetadataKey(key) {
			continue
		}
		var o CheckOutcome
		if err := json.Unmarshal(raw, &o); err != nil {
			return fmt.Errorf("decoding outcome %s: %w", key, err)
		}
		res.Outcomes[key] = o
	}

	*r = res
	return nil
}

// NamedOutcome pairs a check name with its outcome.
type NamedOutcome struct {
	Check string
	CheckOutcome
}

// Priority orders statuses for reports: Problems, then Info, then
// Passed and No files, then unsupported checks.
func Priority(s Status) int {
	switch s {
	case StatusProblems:
		return 0
	case StatusInfo:
		return 1
	case StatusPassed, StatusNoFiles:
		return 2
	default:
		return 3
	}
}

// PrioritizedOutcomes returns the outcomes sorted by Priority, then by check name.
func PrioritizedOutcomes(outcomes map[string]CheckOutcome) []NamedOutcome {
	out := make([]NamedOutcome, 0, len(outcomes))
	for name, o := range outcomes {
		out = append(out, NamedOutcome{Check: name, CheckOutcome: o})
	}
	slices.SortFunc(out, func(a, b NamedOutcome) int {
		if pa, pb := Priority(a.Status), Priority(b.Status); pa != pb {
			return pa - pb
		}
		return strings.Compare(a.Check, b.Check)
	})
	return out
}

// CountByStatus tallies outcomes per status.
func CountByStatus(outcomes map[string]CheckOutcome) map[Status]int {
	counts := make(map[Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}
