package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/squallbio/squall/internal/mapper"
)

// BeginRun registers a new mapping run and returns its id. The id is a
// UUIDv7 so runs sort chronologically.
func (s *Store) BeginRun(ctx context.Context, indexPath, modelPath string) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, index_path, model_path)
		VALUES (?, ?, ?)
	`, id, indexPath, modelPath)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WriteMapping inserts one read's result.
// Uses ON CONFLICT DO NOTHING for idempotency - a retried write of the
// same (run, channel, read number) is silently ignored.
func (s *Store) WriteMapping(ctx context.Context, runID string, loc mapper.ReadLoc) error {
	var refName any
	var refSt, refEn, fwd, matches any
	if loc.Mapped() {
		refName = loc.RfName
		refSt = loc.RfSt
		refEn = loc.RfEn
		fwd = loc.Fwd
		matches = loc.Matches
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mappings
		(run_id, read_name, channel, read_number, events, mapped,
		 ref_name, ref_start, ref_end, fwd, matches, time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		loc.Name,
		loc.Channel,
		loc.Number,
		loc.RdLen,
		loc.Mapped(),
		refName,
		refSt,
		refEn,
		fwd,
		matches,
		float64(loc.Time)/float64(time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return nil
}
