// Package store provides per-event durable storage for incidents and
// incident reports: persistence, monotonic numbering, content-hash change
// detection, search, and per-event access lists. Two backends implement the
// same contract: a file-backed store (canonical layout, one JSON record per
// number) and a SQLite-backed store.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ranger-ims/core/model"
	"ranger-ims/core/wire"
)

var (
	ErrNoSuchIncident = errors.New("no such incident")
	ErrNoSuchReport   = errors.New("no such incident report")
)

// StorageError reports an I/O or internal consistency failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func storagef(op, format string, args ...any) error {
	return &StorageError{Op: op, Err: fmt.Errorf(format, args...)}
}

// Entry pairs a record number with its content-hash etag.
type Entry struct {
	Number int
	ETag   string
}

// SearchQuery filters a linear scan over all incidents. Every term must
// case-insensitively match some searchable string (the number rendered as
// text, or any report entry's text). The optional time window keeps only
// incidents with at least one report entry inside it.
type SearchQuery struct {
	Terms      []string
	ShowClosed bool
	Since      *time.Time
	Until      *time.Time
}

// EventStore is the per-event storage contract. One store per event; events
// are independent partitions with their own numbering, ACLs and streets.
type EventStore interface {
	ReadByNumber(ctx context.Context, number int) (*model.Incident, error)
	ReadRawByNumber(ctx context.Context, number int) ([]byte, error)
	ETagFor(ctx context.Context, number int) (string, error)
	List(ctx context.Context) ([]Entry, error)
	Write(ctx context.Context, incident *model.Incident) error
	NextNumber(ctx context.Context) (int, error)
	Search(ctx context.Context, query SearchQuery) ([]Entry, error)
	Locations(ctx context.Context) ([]model.Location, error)

	ReadersOf(ctx context.Context) ([]string, error)
	WritersOf(ctx context.Context) ([]string, error)
	SetReaders(ctx context.Context, principals []string) error
	SetWriters(ctx context.Context, principals []string) error
	ConcentricStreets(ctx context.Context) (map[string]string, error)
	AddConcentricStreet(ctx context.Context, name, id string) error

	NextReportNumber(ctx context.Context) (int, error)
	WriteReport(ctx context.Context, report *model.IncidentReport) error
	ReadReportByNumber(ctx context.Context, number int) (*model.IncidentReport, error)
	ListReports(ctx context.Context) ([]Entry, error)
}

// Root opens per-event stores over one storage backing.
type Root interface {
	Event(name string) (EventStore, error)
	ListEvents(ctx context.Context) ([]string, error)
	Close() error
}

// decodeIncidentRecord decodes stored bytes, repairs known-bad legacy
// shapes, validates, and stamps the change token.
func decodeIncidentRecord(raw []byte, number int, etag string) (*model.Incident, error) {
	incident, err := wire.DecodeIncident(raw, number, false)
	if err != nil {
		return nil, fmt.Errorf("incident %d: %w", number, err)
	}
	cleanupIncident(incident)
	if err := incident.Validate(); err != nil {
		return nil, fmt.Errorf("incident %d: %w", number, err)
	}
	incident.Version = etag
	return incident, nil
}

func decodeReportRecord(raw []byte, number int, etag string) (*model.IncidentReport, error) {
	report, err := wire.DecodeReport(raw, number, false)
	if err != nil {
		return nil, fmt.Errorf("incident report %d: %w", number, err)
	}
	cleanupReport(report)
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("incident report %d: %w", number, err)
	}
	report.Version = etag
	return report, nil
}
