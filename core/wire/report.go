package wire

import (
	"encoding/json"

	"ranger-ims/core/model"
)

// DecodeReport maps a stored incident report payload onto the model. Same
// contract as DecodeIncident, over the report's smaller allow-list.
func DecodeReport(data []byte, expectedNumber int, strict bool) (*model.IncidentReport, error) {
	payload, err := parseObject(data)
	if err != nil {
		return nil, err
	}
	for key := range payload {
		if _, ok := reportKeys[key]; !ok {
			return nil, decodeErr(key, "unknown field")
		}
	}

	report := model.IncidentReport{Number: expectedNumber}

	if raw, ok := present(payload, keyNumber); ok {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, decodeErr(keyNumber, "not an integer")
		}
		if n != expectedNumber {
			return nil, decodeErr(keyNumber, "payload number %d does not match expected %d", n, expectedNumber)
		}
	}

	if s, ok, err := stringField(payload, keySummary); err != nil {
		return nil, err
	} else if ok {
		report.Summary = &s
	}

	entries, err := decodeEntries(payload)
	if err != nil {
		return nil, err
	}
	report.ReportEntries = entries

	created, err := resolveCreated(payload)
	if err != nil {
		return nil, err
	}
	report.Created = created

	report = report.Normalized()
	if strict {
		if err := report.Validate(); err != nil {
			return nil, &DecodeError{Field: "", Reason: err.Error()}
		}
	}
	return &report, nil
}

type reportJSON struct {
	Number        int            `json:"number"`
	Summary       *string        `json:"summary,omitempty"`
	ReportEntries []entryOutJSON `json:"report_entries,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`
}

// EncodeReport serializes an incident report in the canonical shape.
func EncodeReport(report *model.IncidentReport) ([]byte, error) {
	norm := report.Normalized()
	out := reportJSON{
		Number:        norm.Number,
		Summary:       norm.Summary,
		ReportEntries: encodeEntries(norm.ReportEntries),
	}
	if norm.Created != nil {
		out.Timestamp = norm.Created.UTC().Format(TimeFormat)
	}
	return json.Marshal(out)
}
