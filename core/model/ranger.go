package model

// Ranger references a staff member by handle. Name and Status are display
// fields; the remaining fields are directory metadata carried through but
// never compared.
type Ranger struct {
	Handle   string
	Name     string
	Status   string
	DMSID    *int64
	Email    *string
	OnSite   *bool
	Password *string
}

func (r Ranger) Validate() error {
	if r.Handle == "" {
		return invalid("ranger.handle", "must not be empty")
	}
	return nil
}

// Equal compares by handle only. Two Ranger values with the same handle are
// the same ranger regardless of directory metadata.
func (r Ranger) Equal(other Ranger) bool {
	return r.Handle == other.Handle
}
