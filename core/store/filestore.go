package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/uuid/v5"

	"ranger-ims/core/model"
	"ranger-ims/core/utils"
	"ranger-ims/core/wire"
)

const (
	readersFile = "readers"
	writersFile = "writers"
	streetsFile = "streets.json"
	reportsDir  = "reports"
)

// FileRoot opens file-backed event stores under one data directory. Each
// event is a subdirectory holding numbered incident records and sidecar
// files.
type FileRoot struct {
	dir    string
	logger *utils.Logger

	mu     sync.Mutex
	stores map[string]*fileStore
}

func NewFileRoot(dir string, logger *utils.Logger) *FileRoot {
	return &FileRoot{dir: dir, logger: logger, stores: make(map[string]*fileStore)}
}

func (r *FileRoot) Event(name string) (EventStore, error) {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, "/\\") {
		return nil, storagef("open event", "invalid event name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[name]; ok {
		return s, nil
	}
	s := newFileStore(filepath.Join(r.dir, name), r.logger)
	r.stores[name] = s
	return s, nil
}

func (r *FileRoot) ListEvents(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("list events", err)
	}
	var events []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			events = append(events, e.Name())
		}
	}
	sort.Strings(events)
	return events, nil
}

func (r *FileRoot) Close() error { return nil }

// fileStore is one event's file-backed store. Derived state (etags, listing,
// location set, maximum allocated numbers) lives in an explicit cache owned
// by the store, invalidated eagerly by the write path and recomputed lazily
// on the next read. The mutex also sequences NextNumber against Write so the
// allocate-then-write pair cannot race in-process.
type fileStore struct {
	dir    string
	logger *utils.Logger

	mu    sync.Mutex
	cache fileCache
}

type fileCache struct {
	etags       map[int]string
	reportEtags map[int]string
	listing     []Entry
	reports     []Entry
	locations   []model.Location
	maxIncident int // -1 until computed
	maxReport   int // -1 until computed
}

func newFileStore(dir string, logger *utils.Logger) *fileStore {
	return &fileStore{
		dir:    dir,
		logger: logger,
		cache: fileCache{
			etags:       make(map[int]string),
			reportEtags: make(map[int]string),
			maxIncident: -1,
			maxReport:   -1,
		},
	}
}

func (s *fileStore) incidentPath(number int) string {
	return filepath.Join(s.dir, strconv.Itoa(number))
}

func (s *fileStore) reportPath(number int) string {
	return filepath.Join(s.dir, reportsDir, strconv.Itoa(number))
}

func (s *fileStore) ReadByNumber(ctx context.Context, number int) (*model.Incident, error) {
	raw, err := s.ReadRawByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	etag, ok := s.cache.etags[number]
	if !ok {
		etag = utils.Sha256Hex(raw)
		s.cache.etags[number] = etag
	}
	s.mu.Unlock()
	return decodeIncidentRecord(raw, number, etag)
}

func (s *fileStore) ReadRawByNumber(ctx context.Context, number int) ([]byte, error) {
	raw, err := os.ReadFile(s.incidentPath(number))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("incident %d: %w", number, ErrNoSuchIncident)
	}
	if err != nil {
		return nil, storageErr("read incident", err)
	}
	return raw, nil
}

func (s *fileStore) ETagFor(ctx context.Context, number int) (string, error) {
	s.mu.Lock()
	if etag, ok := s.cache.etags[number]; ok {
		s.mu.Unlock()
		return etag, nil
	}
	s.mu.Unlock()

	raw, err := s.ReadRawByNumber(ctx, number)
	if err != nil {
		return "", err
	}
	etag := utils.Sha256Hex(raw)
	s.mu.Lock()
	s.cache.etags[number] = etag
	s.mu.Unlock()
	return etag, nil
}

func (s *fileStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	if s.cache.listing != nil {
		listing := s.cache.listing
		s.mu.Unlock()
		return listing, nil
	}
	s.mu.Unlock()

	numbers, err := scanRecordDir(s.dir)
	if err != nil {
		return nil, err
	}
	listing := make([]Entry, 0, len(numbers))
	for _, n := range numbers {
		etag, err := s.ETagFor(ctx, n)
		if err != nil {
			return nil, err
		}
		listing = append(listing, Entry{Number: n, ETag: etag})
	}
	s.mu.Lock()
	s.cache.listing = listing
	s.mu.Unlock()
	return listing, nil
}

func (s *fileStore) Write(ctx context.Context, incident *model.Incident) error {
	if err := incident.Validate(); err != nil {
		return err
	}
	data, err := wire.EncodeIncident(incident)
	if err != nil {
		return storageErr("encode incident", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureMaxIncidentLocked(); err != nil {
		return err
	}
	if incident.Number > s.cache.maxIncident {
		return storagef("write incident", "number %d exceeds maximum allocation %d", incident.Number, s.cache.maxIncident)
	}
	if err := writeFileAtomic(s.dir, s.incidentPath(incident.Number), data); err != nil {
		return err
	}
	s.cache.etags[incident.Number] = utils.Sha256Hex(data)
	s.cache.listing = nil
	s.cache.locations = nil
	return nil
}

func (s *fileStore) NextNumber(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return 0, storageErr("provision event directory", err)
	}
	if err := s.ensureMaxIncidentLocked(); err != nil {
		return 0, err
	}
	s.cache.maxIncident++
	return s.cache.maxIncident, nil
}

func (s *fileStore) ensureMaxIncidentLocked() error {
	if s.cache.maxIncident >= 0 {
		return nil
	}
	numbers, err := scanRecordDir(s.dir)
	if err != nil {
		return err
	}
	max := 0
	for _, n := range numbers {
		if n > max {
			max = n
		}
	}
	s.cache.maxIncident = max
	return nil
}

func (s *fileStore) Search(ctx context.Context, query SearchQuery) ([]Entry, error) {
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

func (s *fileStore) Locations(ctx context.Context) ([]model.Location, error) {
	s.mu.Lock()
	if s.cache.locations != nil {
		locations := s.cache.locations
		s.mu.Unlock()
		return locations, nil
	}
	s.mu.Unlock()

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
	s.mu.Lock()
	s.cache.locations = locations
	s.mu.Unlock()
	return locations, nil
}

func (s *fileStore) ReadersOf(ctx context.Context) ([]string, error) {
	return s.readACL(readersFile)
}

func (s *fileStore) WritersOf(ctx context.Context) ([]string, error) {
	return s.readACL(writersFile)
}

func (s *fileStore) SetReaders(ctx context.Context, principals []string) error {
	return s.writeACL(readersFile, principals)
}

func (s *fileStore) SetWriters(ctx context.Context, principals []string) error {
	return s.writeACL(writersFile, principals)
}

func (s *fileStore) readACL(name string) ([]string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read access list", err)
	}
	var principals []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			principals = append(principals, line)
		}
	}
	return principals, nil
}

func (s *fileStore) writeACL(name string, principals []string) error {
	var b strings.Builder
	for _, p := range principals {
		p = strings.TrimSpace(p)
		if p != "" {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}
	return writeFileAtomic(s.dir, filepath.Join(s.dir, name), []byte(b.String()))
}

// ConcentricStreets loads the per-event street mapping sidecar. Missing or
// malformed data degrades to an empty mapping rather than failing the read.
func (s *fileStore) ConcentricStreets(ctx context.Context) (map[string]string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, streetsFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, storageErr("read streets", err)
	}
	var streets map[string]string
	if err := json.Unmarshal(raw, &streets); err != nil {
		if s.logger != nil {
			s.logger.Warnf("malformed streets sidecar in %s: %v", s.dir, err)
		}
		return map[string]string{}, nil
	}
	return streets, nil
}

func (s *fileStore) AddConcentricStreet(ctx context.Context, name, id string) error {
	streets, err := s.ConcentricStreets(ctx)
	if err != nil {
		return err
	}
	streets[name] = id
	data, err := json.Marshal(streets)
	if err != nil {
		return storageErr("encode streets", err)
	}
	return writeFileAtomic(s.dir, filepath.Join(s.dir, streetsFile), data)
}

func (s *fileStore) NextReportNumber(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := filepath.Join(s.dir, reportsDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return 0, storageErr("provision reports directory", err)
	}
	if err := s.ensureMaxReportLocked(); err != nil {
		return 0, err
	}
	s.cache.maxReport++
	return s.cache.maxReport, nil
}

func (s *fileStore) ensureMaxReportLocked() error {
	if s.cache.maxReport >= 0 {
		return nil
	}
	numbers, err := scanRecordDir(filepath.Join(s.dir, reportsDir))
	if err != nil {
		return err
	}
	max := 0
	for _, n := range numbers {
		if n > max {
			max = n
		}
	}
	s.cache.maxReport = max
	return nil
}

func (s *fileStore) WriteReport(ctx context.Context, report *model.IncidentReport) error {
	if err := report.Validate(); err != nil {
		return err
	}
	data, err := wire.EncodeReport(report)
	if err != nil {
		return storageErr("encode incident report", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureMaxReportLocked(); err != nil {
		return err
	}
	if report.Number > s.cache.maxReport {
		return storagef("write incident report", "number %d exceeds maximum allocation %d", report.Number, s.cache.maxReport)
	}
	dir := filepath.Join(s.dir, reportsDir)
	if err := writeFileAtomic(dir, s.reportPath(report.Number), data); err != nil {
		return err
	}
	s.cache.reportEtags[report.Number] = utils.Sha256Hex(data)
	s.cache.reports = nil
	return nil
}

func (s *fileStore) ReadReportByNumber(ctx context.Context, number int) (*model.IncidentReport, error) {
	raw, err := os.ReadFile(s.reportPath(number))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("incident report %d: %w", number, ErrNoSuchReport)
	}
	if err != nil {
		return nil, storageErr("read incident report", err)
	}
	s.mu.Lock()
	etag, ok := s.cache.reportEtags[number]
	if !ok {
		etag = utils.Sha256Hex(raw)
		s.cache.reportEtags[number] = etag
	}
	s.mu.Unlock()
	return decodeReportRecord(raw, number, etag)
}

func (s *fileStore) ListReports(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	if s.cache.reports != nil {
		reports := s.cache.reports
		s.mu.Unlock()
		return reports, nil
	}
	s.mu.Unlock()

	dir := filepath.Join(s.dir, reportsDir)
	numbers, err := scanRecordDir(dir)
	if err != nil {
		return nil, err
	}
	listing := make([]Entry, 0, len(numbers))
	for _, n := range numbers {
		raw, err := os.ReadFile(filepath.Join(dir, strconv.Itoa(n)))
		if err != nil {
			return nil, storageErr("read incident report", err)
		}
		etag := utils.Sha256Hex(raw)
		s.mu.Lock()
		s.cache.reportEtags[n] = etag
		s.mu.Unlock()
		listing = append(listing, Entry{Number: n, ETag: etag})
	}
	s.mu.Lock()
	s.cache.reports = listing
	s.mu.Unlock()
	return listing, nil
}

// scanRecordDir enumerates valid numeric record names. Dot-prefixed entries,
// non-numeric names and zero-padded names are ignored. A missing directory
// is an empty store, not an error.
func scanRecordDir(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scan records", err)
	}
	var numbers []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		n, err := strconv.Atoi(name)
		if err != nil || n < 0 || strconv.Itoa(n) != name {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// writeFileAtomic writes via a uniquely named temp file in the same
// directory, then renames into place.
func writeFileAtomic(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return storageErr("provision event directory", err)
	}
	token, err := uuid.NewV4()
	if err != nil {
		return storageErr("write record", err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+token.String())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return storageErr("write record", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return storageErr("write record", err)
	}
	return nil
}
