package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func statePtr(s State) *State { return &s }

func validIncident() Incident {
	created := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	return Incident{
		Number:   1,
		Priority: intPtr(3),
		Created:  timePtr(created),
		State:    statePtr(StateNew),
	}
}

func TestIncidentValidate(t *testing.T) {
	inc := validIncident()
	require.NoError(t, inc.Validate())

	bad := inc
	bad.Number = -1
	var ide *InvalidDataError
	require.ErrorAs(t, bad.Validate(), &ide)
	assert.Equal(t, "number", ide.Field)

	bad = inc
	bad.Priority = nil
	require.ErrorAs(t, bad.Validate(), &ide)
	assert.Equal(t, "priority", ide.Field)

	bad = inc
	bad.Priority = intPtr(6)
	require.ErrorAs(t, bad.Validate(), &ide)
	assert.Equal(t, "priority", ide.Field)

	bad = inc
	bad.Created = nil
	require.ErrorAs(t, bad.Validate(), &ide)
	assert.Equal(t, "created", ide.Field)

	bad = inc
	bad.Rangers = []Ranger{{}}
	require.ErrorAs(t, bad.Validate(), &ide)
	assert.Equal(t, "rangers.ranger.handle", ide.Field)

	bad = inc
	bad.ReportEntries = []ReportEntry{{Text: "no author"}}
	require.ErrorAs(t, bad.Validate(), &ide)
	assert.Equal(t, "reportEntries.reportEntry.author", ide.Field)
}

func TestAddressValidate(t *testing.T) {
	text := Address{Kind: AddressText, Description: strPtr("by the fence")}
	require.NoError(t, text.Validate())

	bad := text
	bad.Concentric = intPtr(2)
	assert.Error(t, bad.Validate())

	garett := Address{
		Kind:         AddressRodGarett,
		Concentric:   intPtr(0),
		RadialHour:   intPtr(9),
		RadialMinute: intPtr(45),
	}
	require.NoError(t, garett.Validate())

	for _, mutate := range []func(*Address){
		func(a *Address) { a.Concentric = intPtr(-1) },
		func(a *Address) { a.RadialHour = intPtr(0) },
		func(a *Address) { a.RadialHour = intPtr(13) },
		func(a *Address) { a.RadialMinute = intPtr(60) },
	} {
		a := garett
		mutate(&a)
		assert.Error(t, a.Validate())
	}
}

func TestAddressConvertKeepsDescriptionOnly(t *testing.T) {
	garett := Address{
		Kind:         AddressRodGarett,
		Description:  strPtr("near the man"),
		Concentric:   intPtr(3),
		RadialHour:   intPtr(6),
		RadialMinute: intPtr(30),
	}
	text := garett.Convert(AddressText)
	assert.Equal(t, AddressText, text.Kind)
	require.NotNil(t, text.Description)
	assert.Equal(t, "near the man", *text.Description)
	assert.Nil(t, text.Concentric)
	assert.Nil(t, text.RadialHour)
	assert.Nil(t, text.RadialMinute)

	// Same-kind conversion is the identity.
	same := garett.Convert(AddressRodGarett)
	assert.True(t, garett.Equal(same))
}

func TestLocationNormalizedCollapsesEmptyTextAddress(t *testing.T) {
	loc := Location{
		Name:    strPtr("Ranger HQ"),
		Address: &Address{Kind: AddressText},
	}
	norm := loc.Normalized()
	assert.Nil(t, norm.Address)

	bare := Location{Name: strPtr("Ranger HQ")}
	assert.True(t, loc.Equal(bare))
}

func TestIncidentNormalizedCollapsesEmptyLocation(t *testing.T) {
	inc := validIncident()
	inc.Location = &Location{}
	assert.Nil(t, inc.Normalized().Location)

	other := validIncident()
	assert.True(t, inc.Equal(other))
	assert.True(t, other.Equal(inc))

	inc.Location = &Location{Address: &Address{Kind: AddressText}}
	assert.Nil(t, inc.Normalized().Location)
	assert.True(t, inc.Equal(other))
}

func TestStateOrder(t *testing.T) {
	states := States()
	require.Equal(t, []State{StateNew, StateOnHold, StateDispatched, StateOnScene, StateClosed}, states)
	for i := 0; i < len(states); i++ {
		for j := i + 1; j < len(states); j++ {
			assert.True(t, states[i].Precedes(states[j]))
			assert.True(t, states[j].Follows(states[i]))
		}
	}
	assert.False(t, StateNew.Precedes(StateNew))
	assert.Equal(t, "On Scene", StateOnScene.Label())
	assert.Equal(t, "Unknown", State(42).Label())
}

func TestReportEntryOrder(t *testing.T) {
	t0 := time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	early := ReportEntry{Author: "zoe", Text: "b", Created: t0}
	late := ReportEntry{Author: "abe", Text: "a", Created: t1}
	assert.True(t, early.Less(late))
	assert.False(t, late.Less(early))

	// Ties: system first, then author, then text.
	system := ReportEntry{Author: "zoe", Text: "b", Created: t0, SystemEntry: true}
	assert.True(t, system.Less(early))
	byAuthor := ReportEntry{Author: "abe", Text: "z", Created: t0}
	assert.True(t, byAuthor.Less(early))
	byText := ReportEntry{Author: "zoe", Text: "a", Created: t0}
	assert.True(t, byText.Less(early))
}

func TestNormalizeEntriesSortsAndDedupes(t *testing.T) {
	t0 := time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC)
	a := ReportEntry{Author: "abe", Text: "first", Created: t0}
	b := ReportEntry{Author: "abe", Text: "second", Created: t0.Add(time.Minute)}

	entries := NormalizeEntries([]ReportEntry{b, a, b})
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Equal(a))
	assert.True(t, entries[1].Equal(b))

	assert.Nil(t, NormalizeEntries(nil))
}

func TestIncidentNormalized(t *testing.T) {
	inc := validIncident()
	inc.Rangers = []Ranger{
		{Handle: "Wombat"},
		{Handle: "Echo", Name: "stale"},
		{Handle: "Echo", Name: "fresh"},
	}
	inc.IncidentTypes = []string{"Medical", "Fire", "Medical"}

	norm := inc.Normalized()
	require.Len(t, norm.Rangers, 2)
	assert.Equal(t, "Echo", norm.Rangers[0].Handle)
	// Last occurrence of a duplicated handle wins.
	assert.Equal(t, "fresh", norm.Rangers[0].Name)
	assert.Equal(t, "Wombat", norm.Rangers[1].Handle)
	assert.Equal(t, []string{"Fire", "Medical"}, norm.IncidentTypes)
}

func TestIncidentEqualIgnoresVersionAndOrder(t *testing.T) {
	a := validIncident()
	a.Rangers = []Ranger{{Handle: "Wombat"}, {Handle: "Echo"}}
	a.Version = "etag-a"

	b := validIncident()
	b.Rangers = []Ranger{{Handle: "Echo"}, {Handle: "Wombat"}}
	b.Version = "etag-b"

	assert.True(t, a.Equal(b))

	b.Rangers = append(b.Rangers, Ranger{Handle: "Foxtrot"})
	assert.False(t, a.Equal(b))
}

func TestSummaryOrDerived(t *testing.T) {
	inc := validIncident()
	assert.Equal(t, "", inc.SummaryOrDerived())

	t0 := time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC)
	inc.ReportEntries = []ReportEntry{
		{Author: "abe", Text: "later note", Created: t0.Add(time.Hour)},
		{Author: "abe", Text: "\nfirst line\nsecond line", Created: t0},
	}
	assert.Equal(t, "first line", inc.SummaryOrDerived())

	inc.Summary = strPtr("Dust storm at 9:00")
	assert.Equal(t, "Dust storm at 9:00", inc.SummaryOrDerived())
}

func TestRangerEqualByHandle(t *testing.T) {
	a := Ranger{Handle: "Echo", Name: "A", Email: strPtr("a@example.org")}
	b := Ranger{Handle: "Echo", Name: "B"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Ranger{Handle: "Foxtrot"}))
}

func TestIncidentReportEqual(t *testing.T) {
	created := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	a := IncidentReport{Number: 7, Created: timePtr(created), Version: "x"}
	b := IncidentReport{Number: 7, Created: timePtr(created), Version: "y"}
	assert.True(t, a.Equal(b))

	b.Summary = strPtr("found wallet")
	assert.False(t, a.Equal(b))

	require.Error(t, IncidentReport{Number: -2, Created: timePtr(created)}.Validate())
	require.Error(t, IncidentReport{Number: 7}.Validate())
}
