package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ranger-ims/core/model"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func TestIncidentRoundTrip(t *testing.T) {
	created := time.Date(2025, 8, 30, 21, 15, 0, 0, time.UTC)
	entryTime := created.Add(2 * time.Minute)
	state := model.StateOnScene
	inc := &model.Incident{
		Number:   42,
		Priority: intPtr(2),
		Summary:  strPtr("Lost child near Esplanade"),
		Location: &model.Location{
			Name: strPtr("Medic Station 3"),
			Address: &model.Address{
				Kind:         model.AddressRodGarett,
				Description:  strPtr("next to the flag"),
				Concentric:   intPtr(4),
				RadialHour:   intPtr(7),
				RadialMinute: intPtr(30),
			},
		},
		Rangers:       []model.Ranger{{Handle: "Wombat"}, {Handle: "Echo"}},
		IncidentTypes: []string{"Lost Person"},
		ReportEntries: []model.ReportEntry{
			{Author: "Echo", Text: "child located", Created: entryTime},
		},
		Created: &created,
		State:   &state,
	}

	data, err := EncodeIncident(inc)
	require.NoError(t, err)

	got, err := DecodeIncident(data, 42, true)
	require.NoError(t, err)
	assert.True(t, inc.Equal(*got))

	// A second encode of the decoded value is byte-identical.
	again, err := EncodeIncident(got)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestDecodeRejectsUnknownKey(t *testing.T) {
	payload := []byte(`{"number": 1, "priority": 3, "timestamp": "2025-08-30T12:00:00Z", "bogus": true}`)
	_, err := DecodeIncident(payload, 1, true)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bogus", de.Field)
}

func TestDecodeRejectsNumberMismatch(t *testing.T) {
	payload := []byte(`{"number": 7, "priority": 3, "timestamp": "2025-08-30T12:00:00Z"}`)
	_, err := DecodeIncident(payload, 8, true)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "number", de.Field)
}

func TestDecodeFlatLocation(t *testing.T) {
	payload := []byte(`{
		"number": 3,
		"priority": 4,
		"timestamp": "2014-08-25T01:10:00Z",
		"state": "closed",
		"location_name": "Center Camp",
		"location_address": "opposite the fountain"
	}`)
	inc, err := DecodeIncident(payload, 3, true)
	require.NoError(t, err)
	require.NotNil(t, inc.Location)
	require.NotNil(t, inc.Location.Name)
	assert.Equal(t, "Center Camp", *inc.Location.Name)
	require.NotNil(t, inc.Location.Address)
	assert.Equal(t, model.AddressText, inc.Location.Address.Kind)
	require.NotNil(t, inc.Location.Address.Description)
	assert.Equal(t, "opposite the fountain", *inc.Location.Address.Description)

	// Re-encode writes the structured shape only.
	data, err := EncodeIncident(inc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "location_name")
	assert.Contains(t, string(data), `"type":"text"`)
}

func TestDecodeStructuredLocationPreferredOverFlat(t *testing.T) {
	payload := []byte(`{
		"number": 5,
		"priority": 3,
		"timestamp": "2025-08-30T12:00:00Z",
		"location": {"name": "HQ", "type": "text", "description": "under the antenna"},
		"location_name": "stale"
	}`)
	inc, err := DecodeIncident(payload, 5, true)
	require.NoError(t, err)
	require.NotNil(t, inc.Location)
	assert.Equal(t, "HQ", *inc.Location.Name)
	assert.Equal(t, "under the antenna", *inc.Location.Address.Description)
}

func TestEmptyLocationRoundTrip(t *testing.T) {
	created := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	inc := &model.Incident{
		Number:   9,
		Priority: intPtr(3),
		Location: &model.Location{},
		Created:  &created,
	}
	data, err := EncodeIncident(inc)
	require.NoError(t, err)

	got, err := DecodeIncident(data, 9, true)
	require.NoError(t, err)
	assert.True(t, inc.Equal(*got))
	assert.True(t, got.Equal(*inc))

	// A location with only a name survives and keeps its type tag.
	inc.Location = &model.Location{Name: strPtr("HQ")}
	data, err = EncodeIncident(inc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"text"`)
	got, err = DecodeIncident(data, 9, true)
	require.NoError(t, err)
	assert.True(t, inc.Equal(*got))
}

func TestDecodeEmptyTextLocationIsNoLocation(t *testing.T) {
	payload := []byte(`{
		"number": 5,
		"priority": 3,
		"timestamp": "2025-08-30T12:00:00Z",
		"location": {"type": "text", "description": null}
	}`)
	inc, err := DecodeIncident(payload, 5, true)
	require.NoError(t, err)
	assert.Nil(t, inc.Location)
}

func TestDecodeLegacyStateTimestamps(t *testing.T) {
	cases := []struct {
		payload string
		want    model.State
	}{
		{`{"number":1,"priority":3,"created":"2013-08-29T20:00:00Z"}`, model.StateNew},
		{`{"number":1,"priority":3,"created":"2013-08-29T20:00:00Z","dispatched":"2013-08-29T20:05:00Z"}`, model.StateDispatched},
		{`{"number":1,"priority":3,"created":"2013-08-29T20:00:00Z","on_scene":"2013-08-29T20:15:00Z"}`, model.StateOnScene},
		{`{"number":1,"priority":3,"created":"2013-08-29T20:00:00Z","dispatched":"2013-08-29T20:05:00Z","closed":"2013-08-29T21:00:00Z"}`, model.StateClosed},
	}
	for _, c := range cases {
		inc, err := DecodeIncident([]byte(c.payload), 1, true)
		require.NoError(t, err, c.payload)
		require.NotNil(t, inc.State, c.payload)
		assert.Equal(t, c.want, *inc.State, c.payload)
	}
}

func TestDecodeCreatedFallsBackToLegacyKey(t *testing.T) {
	payload := []byte(`{"number":1,"priority":3,"created":"2013-08-29T20:00:00Z"}`)
	inc, err := DecodeIncident(payload, 1, true)
	require.NoError(t, err)
	require.NotNil(t, inc.Created)
	assert.Equal(t, time.Date(2013, 8, 29, 20, 0, 0, 0, time.UTC), *inc.Created)
}

func TestDecodeRejectsBadTimestamps(t *testing.T) {
	bad := []string{
		`{"number":1,"priority":3,"timestamp":"2025-08-30T12:00:00+07:00"}`,
		`{"number":1,"priority":3,"timestamp":"2025-08-30T12:00:00.123Z"}`,
		`{"number":1,"priority":3,"timestamp":"2025-08-30 12:00:00"}`,
	}
	for _, payload := range bad {
		_, err := DecodeIncident([]byte(payload), 1, true)
		var de *DecodeError
		require.ErrorAs(t, err, &de, payload)
		assert.Equal(t, "timestamp", de.Field, payload)
	}
}

func TestDecodeEmptyTimestampMeansAbsent(t *testing.T) {
	payload := []byte(`{"number":1,"priority":3,"timestamp":""}`)
	inc, err := DecodeIncident(payload, 1, false)
	require.NoError(t, err)
	assert.Nil(t, inc.Created)
}

func TestStrictDecodeValidates(t *testing.T) {
	payload := []byte(`{"number":1,"timestamp":"2025-08-30T12:00:00Z"}`)
	_, err := DecodeIncident(payload, 1, true)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Reason, "priority")

	// The same payload passes as a sparse decode.
	inc, err := DecodeIncident(payload, 1, false)
	require.NoError(t, err)
	assert.Nil(t, inc.Priority)
}

func TestDecodeRangerHandles(t *testing.T) {
	payload := []byte(`{
		"number": 2,
		"priority": 1,
		"timestamp": "2025-08-30T12:00:00Z",
		"ranger_handles": ["Wombat", "Echo", "Wombat"]
	}`)
	inc, err := DecodeIncident(payload, 2, true)
	require.NoError(t, err)
	require.Len(t, inc.Rangers, 2)
	assert.Equal(t, "Echo", inc.Rangers[0].Handle)
	assert.Equal(t, "Wombat", inc.Rangers[1].Handle)
}

func TestDecodeRejectsUnknownEntryField(t *testing.T) {
	payload := []byte(`{
		"number": 2,
		"priority": 1,
		"timestamp": "2025-08-30T12:00:00Z",
		"report_entries": [{"author": "Echo", "text": "x", "extra": 1}]
	}`)
	_, err := DecodeIncident(payload, 2, true)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "report_entries", de.Field)
}

func TestReportRoundTrip(t *testing.T) {
	created := time.Date(2025, 8, 30, 9, 0, 0, 0, time.UTC)
	report := &model.IncidentReport{
		Number:  7,
		Summary: strPtr("found wallet"),
		ReportEntries: []model.ReportEntry{
			{Author: "Echo", Text: "turned in to HQ", Created: created.Add(time.Minute)},
		},
		Created: &created,
	}
	data, err := EncodeReport(report)
	require.NoError(t, err)

	got, err := DecodeReport(data, 7, true)
	require.NoError(t, err)
	assert.True(t, report.Equal(*got))
}

func TestReportRejectsIncidentOnlyKeys(t *testing.T) {
	payload := []byte(`{"number":7,"timestamp":"2025-08-30T09:00:00Z","state":"new"}`)
	_, err := DecodeReport(payload, 7, true)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "state", de.Field)
}
