// Package backup exports complete point-in-time archives of event stores.
// Failures are logged and surfaced to the caller; nothing here retries.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"

	"ranger-ims/config"
	"ranger-ims/core/store"
	"ranger-ims/core/utils"
	"ranger-ims/core/wire"
)

type Service struct {
	cfg    config.BackupsConfig
	root   store.Root
	logger *utils.Logger
}

func NewService(cfg config.BackupsConfig, root store.Root, logger *utils.Logger) *Service {
	return &Service{cfg: cfg, root: root, logger: logger}
}

type Manifest struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"created_at"`
	Incidents int       `json:"incidents"`
	Reports   int       `json:"reports"`
	Schema    int       `json:"schema"`
}

const archiveSchema = 1

type archive struct {
	Manifest  Manifest                   `json:"manifest"`
	Incidents map[string]json.RawMessage `json:"incidents"`
	Reports   map[string]json.RawMessage `json:"reports"`
	Readers   []string                   `json:"readers"`
	Writers   []string                   `json:"writers"`
	Streets   map[string]string          `json:"streets"`
}

// ExportEvent writes one event's full record set (raw records plus sidecar
// data) into a single archive file and returns its path.
func (s *Service) ExportEvent(ctx context.Context, event string) (string, error) {
	es, err := s.root.Event(event)
	if err != nil {
		return "", err
	}
	listing, err := es.List(ctx)
	if err != nil {
		return "", err
	}
	incidents := make(map[string]json.RawMessage, len(listing))
	for _, entry := range listing {
		raw, err := es.ReadRawByNumber(ctx, entry.Number)
		if err != nil {
			return "", err
		}
		incidents[strconv.Itoa(entry.Number)] = json.RawMessage(raw)
	}
	reportListing, err := es.ListReports(ctx)
	if err != nil {
		return "", err
	}
	reports := make(map[string]json.RawMessage, len(reportListing))
	for _, entry := range reportListing {
		report, err := es.ReadReportByNumber(ctx, entry.Number)
		if err != nil {
			return "", err
		}
		// Archive the canonical wire record, same as the incident path.
		body, err := wire.EncodeReport(report)
		if err != nil {
			return "", fmt.Errorf("encode report %d: %w", entry.Number, err)
		}
		reports[strconv.Itoa(entry.Number)] = body
	}
	readers, err := es.ReadersOf(ctx)
	if err != nil {
		return "", err
	}
	writers, err := es.WritersOf(ctx)
	if err != nil {
		return "", err
	}
	streets, err := es.ConcentricStreets(ctx)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	doc := archive{
		Manifest: Manifest{
			ID:        id.String(),
			Event:     event,
			CreatedAt: time.Now().UTC(),
			Incidents: len(incidents),
			Reports:   len(reports),
			Schema:    archiveSchema,
		},
		Incidents: incidents,
		Reports:   reports,
		Readers:   readers,
		Writers:   writers,
		Streets:   streets,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode archive: %w", err)
	}
	if err := os.MkdirAll(s.cfg.Path, 0o700); err != nil {
		return "", fmt.Errorf("provision backup directory: %w", err)
	}
	path := filepath.Join(s.cfg.Path, fmt.Sprintf("ims-%s-%s.json", event, id.String()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	if s.logger != nil {
		s.logger.Infof("exported event %s to %s (%d incidents, %d reports)",
			event, path, len(incidents), len(reports))
	}
	return path, nil
}

// ExportAll exports every known event. The first failure stops the run.
func (s *Service) ExportAll(ctx context.Context) error {
	events, err := s.root.ListEvents(ctx)
	if err != nil {
		return err
	}
	for _, event := range events {
		if _, err := s.ExportEvent(ctx, event); err != nil {
			if s.logger != nil {
				s.logger.Errorf("export of event %s failed: %v", event, err)
			}
			return err
		}
	}
	return nil
}
