package store

import (
	"strconv"
	"strings"
	"time"

	"ranger-ims/core/model"
)

// placeholderAuthor is assigned on read to legacy report entries that were
// recorded without an author, so they still pass validation.
const placeholderAuthor = "(unknown)"

// patchedCreated hard-patches creation times for specific historical records
// that predate reliable timestamps and cannot be repaired any other way.
var patchedCreated = map[int]time.Time{
	1369: time.Date(2013, time.August, 31, 21, 0, 0, 0, time.UTC),
}

// cleanupIncident repairs known-bad legacy record shapes before validation.
// It runs on read only; newly written data never goes through it.
func cleanupIncident(incident *model.Incident) {
	for i := range incident.ReportEntries {
		if incident.ReportEntries[i].Author == "" {
			incident.ReportEntries[i].Author = placeholderAuthor
		}
	}
	if incident.Created == nil {
		if t := earliestEntryTime(incident.ReportEntries); t != nil {
			incident.Created = t
		} else if t, ok := patchedCreated[incident.Number]; ok {
			incident.Created = &t
		}
	}
}

func cleanupReport(report *model.IncidentReport) {
	for i := range report.ReportEntries {
		if report.ReportEntries[i].Author == "" {
			report.ReportEntries[i].Author = placeholderAuthor
		}
	}
	if report.Created == nil {
		if t := earliestEntryTime(report.ReportEntries); t != nil {
			report.Created = t
		}
	}
}

func earliestEntryTime(entries []model.ReportEntry) *time.Time {
	var earliest *time.Time
	for _, e := range entries {
		if e.Created.IsZero() {
			continue
		}
		if earliest == nil || e.Created.Before(*earliest) {
			t := e.Created
			earliest = &t
		}
	}
	return earliest
}

// matchQuery applies SearchQuery semantics to one incident.
func matchQuery(incident *model.Incident, query SearchQuery) bool {
	if !query.ShowClosed && incident.State != nil && *incident.State == model.StateClosed {
		return false
	}
	if query.Since != nil || query.Until != nil {
		if !anyEntryInWindow(incident.ReportEntries, query.Since, query.Until) {
			return false
		}
	}
	if len(query.Terms) > 0 {
		haystacks := searchableStrings(incident)
		for _, term := range query.Terms {
			needle := strings.ToLower(term)
			matched := false
			for _, hay := range haystacks {
				if strings.Contains(hay, needle) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// The window filter checks report-entry timestamps only, never the
// incident's own creation time.
func anyEntryInWindow(entries []model.ReportEntry, since, until *time.Time) bool {
	for _, e := range entries {
		if e.Created.IsZero() {
			continue
		}
		if since != nil && e.Created.Before(*since) {
			continue
		}
		if until != nil && e.Created.After(*until) {
			continue
		}
		return true
	}
	return false
}

func searchableStrings(incident *model.Incident) []string {
	out := []string{strconv.Itoa(incident.Number)}
	for _, e := range incident.ReportEntries {
		out = append(out, strings.ToLower(e.Text))
	}
	return out
}
