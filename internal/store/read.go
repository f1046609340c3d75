package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/squallbio/squall/internal/mapper"
)

// RunSummary aggregates one run's outcomes.
type RunSummary struct {
	RunID    string
	Total    int
	Mapped   int
	MeanTime time.Duration
}

// Mappings returns the results recorded for a run, in write order.
func (s *Store) Mappings(ctx context.Context, runID string) ([]mapper.ReadLoc, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT read_name, channel, read_number, events, mapped,
		       ref_name, ref_start, ref_end, fwd, matches, time_ms
		FROM mappings
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var out []mapper.ReadLoc
	for rows.Next() {
		loc, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan mappings: %w", err)
	}
	return out, nil
}

// Summary aggregates counts and mean mapping time for a run.
func (s *Store) Summary(ctx context.Context, runID string) (RunSummary, error) {
	var sum RunSummary
	sum.RunID = runID
	var meanMs sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(mapped), 0), AVG(time_ms)
		FROM mappings
		WHERE run_id = ?
	`, runID).Scan(&sum.Total, &sum.Mapped, &meanMs)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run summary: %w", err)
	}
	if meanMs.Valid {
		sum.MeanTime = time.Duration(meanMs.Float64 * float64(time.Millisecond))
	}
	return sum, nil
}

func scanMapping(rows *sql.Rows) (mapper.ReadLoc, error) {
	var (
		loc     mapper.ReadLoc
		mapped  bool
		refName sql.NullString
		refSt   sql.NullInt64
		refEn   sql.NullInt64
		fwd     sql.NullBool
		matches sql.NullInt64
		timeMs  float64
	)
	err := rows.Scan(&loc.Name, &loc.Channel, &loc.Number, &loc.RdLen, &mapped,
		&refName, &refSt, &refEn, &fwd, &matches, &timeMs)
	if err != nil {
		return mapper.ReadLoc{}, fmt.Errorf("scan mapping: %w", err)
	}
	loc.Time = time.Duration(timeMs * float64(time.Millisecond))
	if mapped {
		loc.RfName = refName.String
		loc.RfSt = refSt.Int64
		loc.RfEn = refEn.Int64
		loc.Fwd = fwd.Bool
		loc.Matches = int(matches.Int64)
		loc.SetMapped()
	}
	return loc, nil
}
