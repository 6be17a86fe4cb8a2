package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"ranger-ims/core/model"
	"ranger-ims/core/utils"
	"ranger-ims/core/wire"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	accessModeRead  = "read"
	accessModeWrite = "write"
)

// SQLiteRoot backs event stores with a single SQLite database: one row per
// (event, number) holding the canonical encoded record. Number allocation
// uses a counter row updated atomically, which closes the allocate/write
// race the file layout cannot.
type SQLiteRoot struct {
	db     *sql.DB
	logger *utils.Logger

	mu     sync.Mutex
	stores map[string]*sqliteStore
}

func OpenSQLiteRoot(path string, logger *utils.Logger) (*SQLiteRoot, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open database", err)
	}
	// modernc sqlite misbehaves with concurrent writers on one handle
	db.SetMaxOpenConns(1)
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRoot{db: db, logger: logger, stores: make(map[string]*sqliteStore)}, nil
}

func applyMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return storageErr("migrate", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return storageErr("migrate", err)
	}
	return nil
}

func (r *SQLiteRoot) Event(name string) (EventStore, error) {
	if name == "" {
		return nil, storagef("open event", "invalid event name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[name]; ok {
		return s, nil
	}
	s := &sqliteStore{db: r.db, event: name, logger: r.logger}
	r.stores[name] = s
	return s, nil
}

func (r *SQLiteRoot) ListEvents(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event FROM incidents
		UNION SELECT event FROM incident_counters
		UNION SELECT event FROM incident_reports
		UNION SELECT event FROM incident_report_counters`)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	defer rows.Close()
	var events []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, storageErr("list events", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list events", err)
	}
	sort.Strings(events)
	return events, nil
}

func (r *SQLiteRoot) Close() error { return r.db.Close() }

type sqliteStore struct {
	db     *sql.DB
	event  string
	logger *utils.Logger
}

func (s *sqliteStore) ReadByNumber(ctx context.Context, number int) (*model.Incident, error) {
	var body, etag string
	err := s.db.QueryRowContext(ctx,
		`SELECT body, etag FROM incidents WHERE event=? AND number=?`, s.event, number).
		Scan(&body, &etag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("incident %d: %w", number, ErrNoSuchIncident)
	}
	if err != nil {
		return nil, storageErr("read incident", err)
	}
	return decodeIncidentRecord([]byte(body), number, etag)
}

func (s *sqliteStore) ReadRawByNumber(ctx context.Context, number int) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM incidents WHERE event=? AND number=?`, s.event, number).
		Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("incident %d: %w", number, ErrNoSuchIncident)
	}
	if err != nil {
		return nil, storageErr("read incident", err)
	}
	return []byte(body), nil
}

func (s *sqliteStore) ETagFor(ctx context.Context, number int) (string, error) {
	var etag string
	err := s.db.QueryRowContext(ctx,
		`SELECT etag FROM incidents WHERE event=? AND number=?`, s.event, number).
		Scan(&etag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("incident %d: %w", number, ErrNoSuchIncident)
	}
	if err != nil {
		return "", storageErr("read incident", err)
	}
	return etag, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, "incidents")
}

func (s *sqliteStore) ListReports(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, "incident_reports")
}

func (s *sqliteStore) list(ctx context.Context, table string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, etag FROM `+table+` WHERE event=? ORDER BY number ASC`, s.event)
	if err != nil {
		return nil, storageErr("list records", err)
	}
	defer rows.Close()
	var listing []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Number, &e.ETag); err != nil {
			return nil, storageErr("list records", err)
		}
		listing = append(listing, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list records", err)
	}
	return listing, nil
}

func (s *sqliteStore) Write(ctx context.Context, incident *model.Incident) error {
	if err := incident.Validate(); err != nil {
		return err
	}
	data, err := wire.EncodeIncident(incident)
	if err != nil {
		return storageErr("encode incident", err)
	}
	var seq int
	err = s.db.QueryRowContext(ctx,
		`SELECT seq FROM incident_counters WHERE event=?`, s.event).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		seq = 0
	} else if err != nil {
		return storageErr("write incident", err)
	}
	if incident.Number > seq {
		return storagef("write incident", "number %d exceeds maximum allocation %d", incident.Number, seq)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO incidents(event, number, body, etag) VALUES(?,?,?,?)
		ON CONFLICT(event, number) DO UPDATE SET body=excluded.body, etag=excluded.etag`,
		s.event, incident.Number, string(data), utils.Sha256Hex(data))
	if err != nil {
		return storageErr("write incident", err)
	}
	return nil
}

func (s *sqliteStore) NextNumber(ctx context.Context) (int, error) {
	return s.nextSeq(ctx, "incident_counters")
}

func (s *sqliteStore) NextReportNumber(ctx context.Context) (int, error) {
	return s.nextSeq(ctx, "incident_report_counters")
}

func (s *sqliteStore) nextSeq(ctx context.Context, table string) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO `+table+`(event, seq) VALUES(?, 1)
		ON CONFLICT(event) DO UPDATE SET seq = `+table+`.seq + 1
		RETURNING seq`, s.event).Scan(&seq)
	if err != nil {
		return 0, storageErr("allocate number", err)
	}
	return seq, nil
}

func (s *sqliteStore) Search(ctx context.Context, query SearchQuery) ([]Entry, error) {
	listing, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []Entry
	for _, entry := range listing {
		incident, err := s.ReadByNumber(ctx, entry.Number)
		if err != nil {
			return nil, err
		}
		if matchQuery(incident, query) {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

func (s *sqliteStore) Locations(ctx context.Context) ([]model.Location, error) {
	listing, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	locations := []model.Location{}
	for _, entry := range listing {
		incident, err := s.ReadByNumber(ctx, entry.Number)
		if err != nil {
			return nil, err
		}
		if incident.Location == nil {
			continue
		}
		loc := incident.Location.Normalized()
		dup := false
		for _, seen := range locations {
			if seen.Equal(loc) {
				dup = true
				break
			}
		}
		if !dup {
			locations = append(locations, loc)
		}
	}
	return locations, nil
}

func (s *sqliteStore) ReadersOf(ctx context.Context) ([]string, error) {
	return s.readAccess(ctx, accessModeRead)
}

func (s *sqliteStore) WritersOf(ctx context.Context) ([]string, error) {
	return s.readAccess(ctx, accessModeWrite)
}

func (s *sqliteStore) readAccess(ctx context.Context, mode string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT principal FROM event_access WHERE event=? AND mode=? ORDER BY principal ASC`,
		s.event, mode)
	if err != nil {
		return nil, storageErr("read access list", err)
	}
	defer rows.Close()
	var principals []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, storageErr("read access list", err)
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

func (s *sqliteStore) SetReaders(ctx context.Context, principals []string) error {
	return s.setAccess(ctx, accessModeRead, principals)
}

func (s *sqliteStore) SetWriters(ctx context.Context, principals []string) error {
	return s.setAccess(ctx, accessModeWrite, principals)
}

func (s *sqliteStore) setAccess(ctx context.Context, mode string, principals []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("set access list", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event_access WHERE event=? AND mode=?`, s.event, mode); err != nil {
		tx.Rollback()
		return storageErr("set access list", err)
	}
	for _, p := range principals {
		if p == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO event_access(event, mode, principal) VALUES(?,?,?)`,
			s.event, mode, p); err != nil {
			tx.Rollback()
			return storageErr("set access list", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("set access list", err)
	}
	return nil
}

func (s *sqliteStore) ConcentricStreets(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, id FROM concentric_streets WHERE event=?`, s.event)
	if err != nil {
		return nil, storageErr("read streets", err)
	}
	defer rows.Close()
	streets := map[string]string{}
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return nil, storageErr("read streets", err)
		}
		streets[name] = id
	}
	return streets, rows.Err()
}

func (s *sqliteStore) AddConcentricStreet(ctx context.Context, name, id string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO concentric_streets(event, name, id) VALUES(?,?,?)
		ON CONFLICT(event, name) DO UPDATE SET id=excluded.id`,
		s.event, name, id)
	if err != nil {
		return storageErr("write street", err)
	}
	return nil
}

func (s *sqliteStore) WriteReport(ctx context.Context, report *model.IncidentReport) error {
	if err := report.Validate(); err != nil {
		return err
	}
	data, err := wire.EncodeReport(report)
	if err != nil {
		return storageErr("encode incident report", err)
	}
	var seq int
	err = s.db.QueryRowContext(ctx,
		`SELECT seq FROM incident_report_counters WHERE event=?`, s.event).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		seq = 0
	} else if err != nil {
		return storageErr("write incident report", err)
	}
	if report.Number > seq {
		return storagef("write incident report", "number %d exceeds maximum allocation %d", report.Number, seq)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO incident_reports(event, number, body, etag) VALUES(?,?,?,?)
		ON CONFLICT(event, number) DO UPDATE SET body=excluded.body, etag=excluded.etag`,
		s.event, report.Number, string(data), utils.Sha256Hex(data))
	if err != nil {
		return storageErr("write incident report", err)
	}
	return nil
}

func (s *sqliteStore) ReadReportByNumber(ctx context.Context, number int) (*model.IncidentReport, error) {
	var body, etag string
	err := s.db.QueryRowContext(ctx,
		`SELECT body, etag FROM incident_reports WHERE event=? AND number=?`, s.event, number).
		Scan(&body, &etag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("incident report %d: %w", number, ErrNoSuchReport)
	}
	if err != nil {
		return nil, storageErr("read incident report", err)
	}
	return decodeReportRecord([]byte(body), number, etag)
}
