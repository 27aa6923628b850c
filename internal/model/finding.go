package model

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// AtLeast reports whether s is as severe as other or worse.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Worst returns the most severe of the given severities, info when none is given.
func Worst(severities ...Severity) Severity {
	worst := SeverityInfo
	for _, s := range severities {
		if s.rank() > worst.rank() {
			worst = s
		}
	}
	return worst
}

// Finding is one individual observation made by a validation stage.
type Finding struct {
	Stage         string     `json:"stage"`
	Code          string     `json:"code"`
	Severity      Severity   `json:"severity"`
	Message       string     `json:"message"`
	Field         string     `json:"field,omitempty"`
	Value         *float64   `json:"value,omitempty"`
	Threshold     *float64   `json:"threshold,omitempty"`
	RelatedTripID *uuid.UUID `json:"related_trip_id,omitempty"`
}

type Findings []Finding

func (f Findings) Worst() Severity {
	worst := SeverityInfo
	for _, item := range f {
		worst = Worst(worst, item.Severity)
	}
	return worst
}

func (f Findings) BySeverity(severity Severity) Findings {
	out := make(Findings, 0, len(f))
	for _, item := range f {
		if item.Severity == severity {
			out = append(out, item)
		}
	}
	return out
}

func (f Findings) HasErrors() bool {
	return f.Worst().AtLeast(SeverityError)
}

func (f Findings) Messages() []string {
	out := make([]string, 0, len(f))
	for _, item := range f {
		out = append(out, item.Message)
	}
	return out
}

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w TimeWindow) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.End.After(w.Start)
}

// Overlaps is symmetric: a.Overlaps(b) == b.Overlaps(a).
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Intersection returns the overlapping duration, zero when the windows do not overlap.
func (w TimeWindow) Intersection(other TimeWindow) time.Duration {
	if !w.Overlaps(other) {
		return 0
	}
	start := w.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := w.End
	if other.End.Before(end) {
		end = other.End
	}
	return end.Sub(start)
}

type OverlapType string

const (
	OverlapExactDuplicate         OverlapType = "exact_duplicate"
	OverlapNewContainedInExisting OverlapType = "new_contained_in_existing"
	OverlapExistingContainedInNew OverlapType = "existing_contained_in_new"
	OverlapAtStart                OverlapType = "overlap_at_start"
	OverlapAtEnd                  OverlapType = "overlap_at_end"
)

// ClassifyOverlap describes how candidate intersects existing. It is diagnostic only
// and returns an empty type when the windows do not overlap.
func ClassifyOverlap(candidate, existing TimeWindow) OverlapType {
	if !candidate.Overlaps(existing) {
		return ""
	}
	switch {
	case candidate.Start.Equal(existing.Start) && candidate.End.Equal(existing.End):
		return OverlapExactDuplicate
	case !candidate.Start.Before(existing.Start) && !candidate.End.After(existing.End):
		return OverlapNewContainedInExisting
	case !existing.Start.Before(candidate.Start) && !existing.End.After(candidate.End):
		return OverlapExistingContainedInNew
	case candidate.Start.After(existing.Start):
		return OverlapAtStart
	default:
		return OverlapAtEnd
	}
}

// IsContainment reports duplicates and containment in either direction.
func (t OverlapType) IsContainment() bool {
	return t == OverlapExactDuplicate || t == OverlapNewContainedInExisting || t == OverlapExistingContainedInNew
}
