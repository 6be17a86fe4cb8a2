package model

import "strings"

// AddressKind discriminates the closed set of address variants.
type AddressKind int

const (
	// AddressText is a free-form textual address.
	AddressText AddressKind = iota
	// AddressRodGarett is a concentric/radial coordinate address.
	AddressRodGarett
)

// Address is a tagged union: a text-only address carries Description only; a
// Rod Garett address additionally carries Concentric and a radial clock
// position. Nil fields are unspecified.
type Address struct {
	Kind         AddressKind
	Description  *string
	Concentric   *int
	RadialHour   *int
	RadialMinute *int
}

// Convert migrates the address to another variant. Only Description survives
// a variant change; converting to the same kind returns the address as is.
func (a Address) Convert(kind AddressKind) Address {
	if a.Kind == kind {
		return a
	}
	return Address{Kind: kind, Description: a.Description}
}

func (a Address) Validate() error {
	switch a.Kind {
	case AddressText:
		if a.Concentric != nil || a.RadialHour != nil || a.RadialMinute != nil {
			return invalid("address", "text address cannot carry coordinates")
		}
	case AddressRodGarett:
		if a.Concentric != nil && *a.Concentric < 0 {
			return invalid("address.concentric", "must be non-negative, got %d", *a.Concentric)
		}
		if a.RadialHour != nil && (*a.RadialHour < 1 || *a.RadialHour > 12) {
			return invalid("address.radialHour", "must be in 1..12, got %d", *a.RadialHour)
		}
		if a.RadialMinute != nil && (*a.RadialMinute < 0 || *a.RadialMinute > 59) {
			return invalid("address.radialMinute", "must be in 0..59, got %d", *a.RadialMinute)
		}
	default:
		return invalid("address", "unknown variant %d", a.Kind)
	}
	return nil
}

func (a Address) Equal(other Address) bool {
	return a.Kind == other.Kind &&
		equalStringPtr(a.Description, other.Description) &&
		equalIntPtr(a.Concentric, other.Concentric) &&
		equalIntPtr(a.RadialHour, other.RadialHour) &&
		equalIntPtr(a.RadialMinute, other.RadialMinute)
}

// Location is a named place, optionally with an address.
type Location struct {
	Name    *string
	Address *Address
}

func (l Location) Validate() error {
	if l.Address != nil {
		return nested("location", l.Address.Validate())
	}
	return nil
}

// Normalized collapses a text address carrying no description into no
// address at all; the two shapes are the same location.
func (l Location) Normalized() Location {
	if l.Address != nil && l.Address.Kind == AddressText && l.Address.Description == nil {
		l.Address = nil
	}
	return l
}

func (l Location) Equal(other Location) bool {
	l, other = l.Normalized(), other.Normalized()
	if !equalStringPtr(l.Name, other.Name) {
		return false
	}
	if (l.Address == nil) != (other.Address == nil) {
		return false
	}
	if l.Address != nil && !l.Address.Equal(*other.Address) {
		return false
	}
	return true
}

// String renders the location for audit lines and indexes.
func (l Location) String() string {
	var parts []string
	if l.Name != nil && *l.Name != "" {
		parts = append(parts, *l.Name)
	}
	if l.Address != nil && l.Address.Description != nil && *l.Address.Description != "" {
		parts = append(parts, "("+*l.Address.Description+")")
	}
	return strings.Join(parts, " ")
}

func equalStringPtr(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func equalIntPtr(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
