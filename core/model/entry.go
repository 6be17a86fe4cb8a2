package model

import (
	"strings"
	"time"
)

// ReportEntry is one authored, timestamped note in an incident's log.
// SystemEntry marks machine-synthesized audit lines.
type ReportEntry struct {
	Author      string
	Text        string
	Created     time.Time
	SystemEntry bool
}

// NewReportEntry builds an entry stamped with the current time.
func NewReportEntry(author, text string, systemEntry bool) ReportEntry {
	return ReportEntry{
		Author:      author,
		Text:        text,
		Created:     time.Now().UTC().Truncate(time.Second),
		SystemEntry: systemEntry,
	}
}

func (e ReportEntry) Validate() error {
	if e.Author == "" {
		return invalid("reportEntry.author", "must not be empty")
	}
	return nil
}

func (e ReportEntry) Equal(other ReportEntry) bool {
	return e.Author == other.Author &&
		e.Text == other.Text &&
		e.Created.Equal(other.Created) &&
		e.SystemEntry == other.SystemEntry
}

// Less defines the total order over entries: created ascending, system
// entries before user entries on ties, then author, then text.
func (e ReportEntry) Less(other ReportEntry) bool {
	if !e.Created.Equal(other.Created) {
		return e.Created.Before(other.Created)
	}
	if e.SystemEntry != other.SystemEntry {
		return e.SystemEntry
	}
	if e.Author != other.Author {
		return e.Author < other.Author
	}
	return e.Text < other.Text
}

// FirstLine returns the first line of the entry text.
func (e ReportEntry) FirstLine() string {
	text := strings.TrimLeft(e.Text, "\n")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
