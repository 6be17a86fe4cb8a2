package model

import (
	"sort"
	"time"
)

// Incident is the primary tracked record. Nil pointer fields are
// unspecified, which is distinct from an explicit empty value; this lets the
// same type carry either a complete incident or a sparse edit request.
//
// Version is an opaque change-detection token assigned by storage. It is
// never persisted and never part of equality.
type Incident struct {
	Number        int
	Priority      *int
	Summary       *string
	Location      *Location
	Rangers       []Ranger
	IncidentTypes []string
	ReportEntries []ReportEntry
	Created       *time.Time
	State         *State
	Version       string
}

// Normalized returns a copy with set fields deduplicated and sorted and
// report entries sorted by their total order with value duplicates removed.
// Two structurally equal inputs normalize to identical representations.
func (i Incident) Normalized() Incident {
	out := i
	if i.Location != nil {
		loc := i.Location.Normalized()
		if loc.Name == nil && loc.Address == nil {
			// A location carrying nothing is no location at all.
			out.Location = nil
		} else {
			out.Location = &loc
		}
	}
	out.Rangers = normalizeRangers(i.Rangers)
	out.IncidentTypes = normalizeStrings(i.IncidentTypes)
	out.ReportEntries = NormalizeEntries(i.ReportEntries)
	return out
}

func (i Incident) Validate() error {
	if i.Number < 0 {
		return invalid("number", "must be non-negative, got %d", i.Number)
	}
	if i.Priority == nil {
		return invalid("priority", "is required")
	}
	if *i.Priority < 1 || *i.Priority > 5 {
		return invalid("priority", "must be in 1..5, got %d", *i.Priority)
	}
	if i.Created == nil {
		return invalid("created", "is required")
	}
	if i.State != nil && !i.State.valid() {
		return invalid("state", "unknown state %d", int(*i.State))
	}
	if i.Location != nil {
		if err := i.Location.Validate(); err != nil {
			return err
		}
	}
	for _, r := range i.Rangers {
		if err := nested("rangers", r.Validate()); err != nil {
			return err
		}
	}
	for _, e := range i.ReportEntries {
		if err := nested("reportEntries", e.Validate()); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares all fields except Version.
func (i Incident) Equal(other Incident) bool {
	if i.Number != other.Number ||
		!equalIntPtr(i.Priority, other.Priority) ||
		!equalStringPtr(i.Summary, other.Summary) ||
		!equalTimePtr(i.Created, other.Created) ||
		!equalStatePtr(i.State, other.State) {
		return false
	}
	a, b := i.Normalized(), other.Normalized()
	if (a.Location == nil) != (b.Location == nil) {
		return false
	}
	if a.Location != nil && !a.Location.Equal(*b.Location) {
		return false
	}
	if len(a.Rangers) != len(b.Rangers) ||
		len(a.IncidentTypes) != len(b.IncidentTypes) ||
		len(a.ReportEntries) != len(b.ReportEntries) {
		return false
	}
	for n := range a.Rangers {
		if !a.Rangers[n].Equal(b.Rangers[n]) {
			return false
		}
	}
	for n := range a.IncidentTypes {
		if a.IncidentTypes[n] != b.IncidentTypes[n] {
			return false
		}
	}
	for n := range a.ReportEntries {
		if !a.ReportEntries[n].Equal(b.ReportEntries[n]) {
			return false
		}
	}
	return true
}

// Before orders incidents by number only.
func (i Incident) Before(other Incident) bool { return i.Number < other.Number }

// SummaryOrDerived returns the summary, or the first line of the earliest
// report entry when no summary was set.
func (i Incident) SummaryOrDerived() string {
	if i.Summary != nil && *i.Summary != "" {
		return *i.Summary
	}
	entries := NormalizeEntries(i.ReportEntries)
	if len(entries) > 0 {
		return entries[0].FirstLine()
	}
	return ""
}

// NormalizeEntries sorts entries by their total order and removes value
// duplicates.
func NormalizeEntries(entries []ReportEntry) []ReportEntry {
	if entries == nil {
		return nil
	}
	out := make([]ReportEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Less(out[b]) })
	deduped := out[:0]
	for _, e := range out {
		dup := false
		for _, kept := range deduped {
			if kept.Equal(e) {
				dup = true
				break
			}
		}
		if !dup {
			deduped = append(deduped, e)
		}
	}
	return deduped
}

func normalizeRangers(rangers []Ranger) []Ranger {
	if rangers == nil {
		return nil
	}
	byHandle := make(map[string]Ranger, len(rangers))
	handles := make([]string, 0, len(rangers))
	for _, r := range rangers {
		if _, seen := byHandle[r.Handle]; !seen {
			handles = append(handles, r.Handle)
		}
		byHandle[r.Handle] = r
	}
	sort.Strings(handles)
	out := make([]Ranger, 0, len(handles))
	for _, h := range handles {
		out = append(out, byHandle[h])
	}
	return out
}

func normalizeStrings(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func equalTimePtr(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Equal(*b)
}

func equalStatePtr(a, b *State) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
