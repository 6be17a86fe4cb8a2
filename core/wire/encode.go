package wire

import (
	"encoding/json"

	"ranger-ims/core/model"
)

type incidentJSON struct {
	Number        int              `json:"number"`
	Priority      *int             `json:"priority,omitempty"`
	Summary       *string          `json:"summary,omitempty"`
	Location      *locationOutJSON `json:"location,omitempty"`
	RangerHandles []string         `json:"ranger_handles,omitempty"`
	IncidentTypes []string         `json:"incident_types,omitempty"`
	ReportEntries []entryOutJSON   `json:"report_entries,omitempty"`
	Timestamp     string           `json:"timestamp,omitempty"`
	State         string           `json:"state,omitempty"`
}

type locationOutJSON struct {
	Name *string `json:"name,omitempty"`
	Type string  `json:"type"`
	// Every location declares its address kind, so description is emitted
	// even when null.
	Description  *string `json:"description"`
	Concentric   *int    `json:"concentric,omitempty"`
	RadialHour   *int    `json:"radial_hour,omitempty"`
	RadialMinute *int    `json:"radial_minute,omitempty"`
}

type entryOutJSON struct {
	Author      string `json:"author"`
	Text        string `json:"text"`
	Created     string `json:"created,omitempty"`
	SystemEntry bool   `json:"system_entry"`
}

// EncodeIncident serializes an incident in the current canonical shape.
// Absent optional fields are omitted; legacy shapes are never written.
func EncodeIncident(inc *model.Incident) ([]byte, error) {
	norm := inc.Normalized()
	out := incidentJSON{
		Number:        norm.Number,
		Priority:      norm.Priority,
		Summary:       norm.Summary,
		RangerHandles: rangerHandles(norm.Rangers),
		IncidentTypes: norm.IncidentTypes,
		ReportEntries: encodeEntries(norm.ReportEntries),
	}
	if norm.Location != nil {
		out.Location = encodeLocation(*norm.Location)
	}
	if norm.Created != nil {
		out.Timestamp = norm.Created.UTC().Format(TimeFormat)
	}
	if norm.State != nil {
		out.State = stateNames[*norm.State]
	}
	return json.Marshal(out)
}

func encodeLocation(loc model.Location) *locationOutJSON {
	out := locationOutJSON{Name: loc.Name, Type: addressTypeNames[model.AddressText]}
	if loc.Address != nil {
		out.Type = addressTypeNames[loc.Address.Kind]
		out.Description = loc.Address.Description
		if loc.Address.Kind == model.AddressRodGarett {
			out.Concentric = loc.Address.Concentric
			out.RadialHour = loc.Address.RadialHour
			out.RadialMinute = loc.Address.RadialMinute
		}
	}
	return &out
}

func encodeEntries(entries []model.ReportEntry) []entryOutJSON {
	if len(entries) == 0 {
		return nil
	}
	out := make([]entryOutJSON, 0, len(entries))
	for _, e := range entries {
		ej := entryOutJSON{Author: e.Author, Text: e.Text, SystemEntry: e.SystemEntry}
		if !e.Created.IsZero() {
			ej.Created = e.Created.UTC().Format(TimeFormat)
		}
		out = append(out, ej)
	}
	return out
}

func rangerHandles(rangers []model.Ranger) []string {
	if len(rangers) == 0 {
		return nil
	}
	handles := make([]string, 0, len(rangers))
	for _, r := range rangers {
		handles = append(handles, r.Handle)
	}
	return handles
}
