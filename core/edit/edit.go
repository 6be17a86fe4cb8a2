// Package edit computes a new incident state from a base incident and a
// sparse edit request, synthesizing a human-readable audit trail of what
// changed. It is a pure function of its inputs: no side effects, no retries,
// and neither input is ever mutated.
package edit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ranger-ims/core/model"
)

// NotAllowedError reports an edit that violates an immutability or
// authorship rule.
type NotAllowedError struct {
	Reason string
}

func (e *NotAllowedError) Error() string { return "edit not allowed: " + e.Reason }

func notAllowed(format string, args ...any) error {
	return &NotAllowedError{Reason: fmt.Sprintf(format, args...)}
}

const noValue = "<no value>"

// Apply merges a sparse edit into base on behalf of author and returns a
// brand-new incident. Nil fields in the edit mean "no change requested". All
// synthesized audit lines are joined into a single system report entry
// authored by the editor, appended only when something actually changed.
func Apply(base, edit *model.Incident, author string) (*model.Incident, error) {
	if author == "" {
		return nil, notAllowed("author is required")
	}
	if edit.Number != base.Number {
		return nil, notAllowed("incident number is immutable (%d != %d)", edit.Number, base.Number)
	}
	if edit.Created != nil && (base.Created == nil || !edit.Created.Equal(*base.Created)) {
		return nil, notAllowed("created time is immutable")
	}

	result := base.Normalized()
	var lines []string

	if edit.Priority != nil && !equalInt(result.Priority, edit.Priority) {
		v := *edit.Priority
		result.Priority = &v
		lines = append(lines, changed("priority", strconv.Itoa(v)))
	}
	if edit.Summary != nil && !equalString(result.Summary, edit.Summary) {
		v := *edit.Summary
		result.Summary = &v
		lines = append(lines, changed("summary", renderString(v)))
	}
	if edit.State != nil && !equalState(result.State, edit.State) {
		v := *edit.State
		result.State = &v
		lines = append(lines, changed("state", v.Label()))
	}

	if edit.Rangers != nil {
		lines = append(lines, diffSet("rangers", handleSet(result.Rangers), handleSet(edit.Rangers))...)
		result.Rangers = edit.Normalized().Rangers
	}
	if edit.IncidentTypes != nil {
		lines = append(lines, diffSet("incident types", stringSet(result.IncidentTypes), stringSet(edit.IncidentTypes))...)
		result.IncidentTypes = edit.Normalized().IncidentTypes
	}

	locLines := applyLocation(&result, edit)
	lines = append(lines, locLines...)

	if len(lines) > 0 {
		audit := model.NewReportEntry(author, strings.Join(lines, "\n"), true)
		result.ReportEntries = append(result.ReportEntries, audit)
	}

	for _, entry := range edit.ReportEntries {
		entry.Author = author
		if entry.Created.IsZero() {
			entry.Created = time.Now().UTC().Truncate(time.Second)
		}
		if containsEntry(result.ReportEntries, entry) {
			continue
		}
		result.ReportEntries = append(result.ReportEntries, entry)
	}

	result = result.Normalized()
	return &result, nil
}

func changed(field, value string) string {
	return fmt.Sprintf("Changed %s to: %s", field, value)
}

func renderString(s string) string {
	if s == "" {
		return noValue
	}
	return s
}

// diffSet emits up to two audit lines for a set edit: the values newly added
// and the values removed, each line only when non-empty. Equal sets are a
// no-op.
func diffSet(field string, base, edit map[string]struct{}) []string {
	var added, removed []string
	for v := range edit {
		if _, ok := base[v]; !ok {
			added = append(added, v)
		}
	}
	for v := range base {
		if _, ok := edit[v]; !ok {
			removed = append(removed, v)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	var lines []string
	if len(added) > 0 {
		lines = append(lines, fmt.Sprintf("Added to %s: %s", field, strings.Join(added, ", ")))
	}
	if len(removed) > 0 {
		lines = append(lines, fmt.Sprintf("Removed from %s: %s", field, strings.Join(removed, ", ")))
	}
	return lines
}

// applyLocation unpacks a location edit field-by-field rather than replacing
// the location wholesale.
func applyLocation(result *model.Incident, edit *model.Incident) []string {
	if edit.Location == nil {
		return nil
	}
	editLoc := edit.Location.Normalized()

	if result.Location == nil {
		adopted := editLoc
		result.Location = &adopted
		rendered := adopted.String()
		if rendered == "" {
			rendered = noValue
		}
		return []string{changed("location", rendered)}
	}

	loc := result.Location.Normalized()
	var lines []string

	if editLoc.Name != nil && !equalString(loc.Name, editLoc.Name) {
		v := *editLoc.Name
		loc.Name = &v
		lines = append(lines, changed("location name", renderString(v)))
	}

	if editLoc.Address != nil {
		addr := model.Address{Kind: model.AddressText}
		if loc.Address != nil {
			addr = *loc.Address
		}
		if addr.Kind != editLoc.Address.Kind {
			addr = addr.Convert(editLoc.Address.Kind)
			lines = append(lines, changed("location address type", addressTypeLabel(addr.Kind)))
		}
		if editLoc.Address.Description != nil && !equalString(addr.Description, editLoc.Address.Description) {
			v := *editLoc.Address.Description
			addr.Description = &v
			lines = append(lines, changed("location description", renderString(v)))
		}
		if addr.Kind == model.AddressRodGarett {
			lines = append(lines, applyClearable("location concentric", &addr.Concentric, editLoc.Address.Concentric)...)
			lines = append(lines, applyClearable("location radial hour", &addr.RadialHour, editLoc.Address.RadialHour)...)
			lines = append(lines, applyClearable("location radial minute", &addr.RadialMinute, editLoc.Address.RadialMinute)...)
		}
		loc.Address = &addr
	}

	loc = loc.Normalized()
	result.Location = &loc
	return lines
}

// applyClearable applies a numeric coordinate edit where -1 is the sentinel
// for "clear this field to absent".
func applyClearable(field string, target **int, edit *int) []string {
	if edit == nil {
		return nil
	}
	if *edit == -1 {
		if *target == nil {
			return nil
		}
		*target = nil
		return []string{changed(field, noValue)}
	}
	if *target != nil && **target == *edit {
		return nil
	}
	v := *edit
	*target = &v
	return []string{changed(field, strconv.Itoa(v))}
}

func addressTypeLabel(kind model.AddressKind) string {
	if kind == model.AddressRodGarett {
		return "Rod Garett"
	}
	return "text"
}

func handleSet(rangers []model.Ranger) map[string]struct{} {
	out := make(map[string]struct{}, len(rangers))
	for _, r := range rangers {
		out[r.Handle] = struct{}{}
	}
	return out
}

func stringSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func containsEntry(entries []model.ReportEntry, entry model.ReportEntry) bool {
	for _, e := range entries {
		if e.Equal(entry) {
			return true
		}
	}
	return false
}

func equalInt(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}

func equalString(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func equalState(a, b *model.State) bool {
	return a != nil && b != nil && *a == *b
}
