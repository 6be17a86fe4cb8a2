package wire

import (
	"bytes"
	"encoding/json"
	"time"

	"ranger-ims/core/model"
)

// TimeFormat is the only accepted timestamp shape: RFC 3339 to the second,
// normalized to UTC with a literal trailing Z. Fractional seconds and
// non-Zulu offsets are rejected.
const TimeFormat = "2006-01-02T15:04:05Z"

// DecodeIncident maps a stored JSON payload onto the model. The payload's
// number, when present, must match expectedNumber. With strict set, the
// decoded incident is fully validated; without it a possibly-invalid sparse
// value is returned, which is what edit payloads need.
func DecodeIncident(data []byte, expectedNumber int, strict bool) (*model.Incident, error) {
	payload, err := parseObject(data)
	if err != nil {
		return nil, err
	}
	for key := range payload {
		if _, ok := incidentKeys[key]; !ok {
			return nil, decodeErr(key, "unknown field")
		}
	}

	inc := model.Incident{Number: expectedNumber}

	if raw, ok := present(payload, keyNumber); ok {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, decodeErr(keyNumber, "not an integer")
		}
		if n != expectedNumber {
			return nil, decodeErr(keyNumber, "payload number %d does not match expected %d", n, expectedNumber)
		}
	}

	if raw, ok := present(payload, keyPriority); ok {
		var p int
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, decodeErr(keyPriority, "not an integer")
		}
		inc.Priority = &p
	}

	if s, ok, err := stringField(payload, keySummary); err != nil {
		return nil, err
	} else if ok {
		inc.Summary = &s
	}

	loc, err := resolveLocation(payload)
	if err != nil {
		return nil, err
	}
	inc.Location = loc

	if raw, ok := present(payload, keyRangerHandles); ok {
		var handles []string
		if err := json.Unmarshal(raw, &handles); err != nil {
			return nil, decodeErr(keyRangerHandles, "not an array of strings")
		}
		rangers := make([]model.Ranger, 0, len(handles))
		for _, h := range handles {
			rangers = append(rangers, model.Ranger{Handle: h})
		}
		inc.Rangers = rangers
	}

	if raw, ok := present(payload, keyIncidentTypes); ok {
		var types []string
		if err := json.Unmarshal(raw, &types); err != nil {
			return nil, decodeErr(keyIncidentTypes, "not an array of strings")
		}
		inc.IncidentTypes = types
	}

	entries, err := decodeEntries(payload)
	if err != nil {
		return nil, err
	}
	inc.ReportEntries = entries

	created, err := resolveCreated(payload)
	if err != nil {
		return nil, err
	}
	inc.Created = created

	state, err := resolveState(payload)
	if err != nil {
		return nil, err
	}
	inc.State = state

	inc = inc.Normalized()
	if strict {
		if err := inc.Validate(); err != nil {
			return nil, &DecodeError{Field: "", Reason: err.Error()}
		}
	}
	return &inc, nil
}

func parseObject(data []byte) (map[string]json.RawMessage, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, decodeErr("", "not a JSON object: %v", err)
	}
	return payload, nil
}

// present reports a key that exists and is not JSON null.
func present(payload map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := payload[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(payload map[string]json.RawMessage, key string) (string, bool, error) {
	raw, ok := present(payload, key)
	if !ok {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, decodeErr(key, "not a string")
	}
	return s, true, nil
}

// timeField decodes a timestamp key. An empty or absent value is an absent
// timestamp, not an error.
func timeField(payload map[string]json.RawMessage, key string) (*time.Time, error) {
	s, ok, err := stringField(payload, key)
	if err != nil || !ok || s == "" {
		return nil, err
	}
	t, perr := time.Parse(TimeFormat, s)
	if perr != nil {
		return nil, decodeErr(key, "malformed timestamp %q", s)
	}
	t = t.UTC()
	return &t, nil
}

// Shape matchers implement the backward-compatibility fallback chains. Each
// matcher either fully consumes the shape it recognizes or declines, and
// they are tried in priority order.

type locationMatcher func(map[string]json.RawMessage) (*model.Location, bool, error)

var locationMatchers = []locationMatcher{
	matchStructuredLocation,
	matchFlatLocation,
}

func resolveLocation(payload map[string]json.RawMessage) (*model.Location, error) {
	for _, match := range locationMatchers {
		loc, ok, err := match(payload)
		if err != nil {
			return nil, err
		}
		if ok {
			return loc, nil
		}
	}
	return nil, nil
}

type locationJSON struct {
	Name         *string `json:"name"`
	Type         *string `json:"type"`
	Description  *string `json:"description"`
	Concentric   *int    `json:"concentric"`
	RadialHour   *int    `json:"radial_hour"`
	RadialMinute *int    `json:"radial_minute"`
}

func matchStructuredLocation(payload map[string]json.RawMessage) (*model.Location, bool, error) {
	raw, ok := present(payload, keyLocation)
	if !ok {
		return nil, false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var lj locationJSON
	if err := dec.Decode(&lj); err != nil {
		return nil, false, decodeErr(keyLocation, "malformed location: %v", err)
	}
	if lj.Type == nil {
		return nil, false, decodeErr(keyLocation, "missing address type")
	}
	kind, known := addressKindsByName[*lj.Type]
	if !known {
		return nil, false, decodeErr(keyLocation, "unknown address type %q", *lj.Type)
	}
	loc := model.Location{Name: lj.Name}
	addr := model.Address{Kind: kind, Description: lj.Description}
	if kind == model.AddressRodGarett {
		addr.Concentric = lj.Concentric
		addr.RadialHour = lj.RadialHour
		addr.RadialMinute = lj.RadialMinute
	}
	// A text address with nothing in it is canonically no address at all.
	if kind == model.AddressText && addr.Description == nil {
		if lj.Name == nil {
			return nil, true, nil
		}
	} else {
		loc.Address = &addr
	}
	return &loc, true, nil
}

func matchFlatLocation(payload map[string]json.RawMessage) (*model.Location, bool, error) {
	name, hasName, err := stringField(payload, keyLocationName)
	if err != nil {
		return nil, false, err
	}
	desc, hasDesc, err := stringField(payload, keyLocationAddress)
	if err != nil {
		return nil, false, err
	}
	if !hasName && !hasDesc {
		return nil, false, nil
	}
	loc := model.Location{}
	if hasName {
		loc.Name = &name
	}
	if hasDesc {
		loc.Address = &model.Address{Kind: model.AddressText, Description: &desc}
	}
	return &loc, true, nil
}

type stateMatcher func(map[string]json.RawMessage) (*model.State, bool, error)

var stateMatchers = []stateMatcher{
	matchExplicitState,
	matchLegacyStateTimestamps,
}

func resolveState(payload map[string]json.RawMessage) (*model.State, error) {
	for _, match := range stateMatchers {
		state, ok, err := match(payload)
		if err != nil {
			return nil, err
		}
		if ok {
			return state, nil
		}
	}
	return nil, nil
}

func matchExplicitState(payload map[string]json.RawMessage) (*model.State, bool, error) {
	name, ok, err := stringField(payload, keyState)
	if err != nil || !ok {
		return nil, false, err
	}
	state, known := statesByName[name]
	if !known {
		return nil, false, decodeErr(keyState, "unknown state %q", name)
	}
	return &state, true, nil
}

// matchLegacyStateTimestamps infers state from pre-2014 per-state timestamp
// keys. The check order picks the most advanced state implied by whatever
// timestamps are present.
func matchLegacyStateTimestamps(payload map[string]json.RawMessage) (*model.State, bool, error) {
	checks := []struct {
		key   string
		state model.State
	}{
		{keyClosed, model.StateClosed},
		{keyOnScene, model.StateOnScene},
		{keyDispatched, model.StateDispatched},
		{keyCreated, model.StateNew},
	}
	for _, c := range checks {
		t, err := timeField(payload, c.key)
		if err != nil {
			return nil, false, err
		}
		if t != nil {
			state := c.state
			return &state, true, nil
		}
	}
	return nil, false, nil
}

type createdMatcher func(map[string]json.RawMessage) (*time.Time, bool, error)

var createdMatchers = []createdMatcher{
	func(p map[string]json.RawMessage) (*time.Time, bool, error) {
		t, err := timeField(p, keyTimestamp)
		return t, t != nil, err
	},
	func(p map[string]json.RawMessage) (*time.Time, bool, error) {
		t, err := timeField(p, keyCreated)
		return t, t != nil, err
	},
}

func resolveCreated(payload map[string]json.RawMessage) (*time.Time, error) {
	for _, match := range createdMatchers {
		t, ok, err := match(payload)
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}

type entryJSON struct {
	Author      string `json:"author"`
	Text        string `json:"text"`
	Created     string `json:"created"`
	SystemEntry bool   `json:"system_entry"`
}

func decodeEntries(payload map[string]json.RawMessage) ([]model.ReportEntry, error) {
	raw, ok := present(payload, keyReportEntries)
	if !ok {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var ejs []entryJSON
	if err := dec.Decode(&ejs); err != nil {
		return nil, decodeErr(keyReportEntries, "malformed report entries: %v", err)
	}
	entries := make([]model.ReportEntry, 0, len(ejs))
	for _, ej := range ejs {
		entry := model.ReportEntry{
			Author:      ej.Author,
			Text:        ej.Text,
			SystemEntry: ej.SystemEntry,
		}
		if ej.Created != "" {
			t, err := time.Parse(TimeFormat, ej.Created)
			if err != nil {
				return nil, decodeErr(keyReportEntries, "malformed timestamp %q", ej.Created)
			}
			entry.Created = t.UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
