package model

import "time"

// IncidentReport is a secondary record with its own numbering sequence. It
// has the same ordering and validation shape as Incident minus location,
// state and rangers.
type IncidentReport struct {
	Number        int
	Summary       *string
	Created       *time.Time
	ReportEntries []ReportEntry
	Version       string
}

func (r IncidentReport) Normalized() IncidentReport {
	out := r
	out.ReportEntries = NormalizeEntries(r.ReportEntries)
	return out
}

func (r IncidentReport) Validate() error {
	if r.Number < 0 {
		return invalid("number", "must be non-negative, got %d", r.Number)
	}
	if r.Created == nil {
		return invalid("created", "is required")
	}
	for _, e := range r.ReportEntries {
		if err := nested("reportEntries", e.Validate()); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares all fields except Version.
func (r IncidentReport) Equal(other IncidentReport) bool {
	if r.Number != other.Number ||
		!equalStringPtr(r.Summary, other.Summary) ||
		!equalTimePtr(r.Created, other.Created) {
		return false
	}
	a, b := NormalizeEntries(r.ReportEntries), NormalizeEntries(other.ReportEntries)
	if len(a) != len(b) {
		return false
	}
	for n := range a {
		if !a[n].Equal(b[n]) {
			return false
		}
	}
	return true
}

func (r IncidentReport) SummaryOrDerived() string {
	if r.Summary != nil && *r.Summary != "" {
		return *r.Summary
	}
	entries := NormalizeEntries(r.ReportEntries)
	if len(entries) > 0 {
		return entries[0].FirstLine()
	}
	return ""
}
