package repository

import (
	"context"
	"fmt"
	"time"
)

// CountSchoolsByStatus returns school counts grouped by status in one query,
// so the per-status numbers come from the same snapshot.
func (s *Store) CountSchoolsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM escola_configuracao GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count schools by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) CountAlunos(ctx context.Context) (int64, error) {
	return s.countAll(ctx, `SELECT COUNT(*) FROM alunos`)
}

func (s *Store) CountTurmas(ctx context.Context) (int64, error) {
	return s.countAll(ctx, `SELECT COUNT(*) FROM turmas`)
}

func (s *Store) CountUserRoles(ctx context.Context) (int64, error) {
	return s.countAll(ctx, `SELECT COUNT(*) FROM user_roles`)
}

// CountPresencasOn counts attendance rows for one calendar date. Callers
// pass the UTC date of the moment the stats call started.
func (s *Store) CountPresencasOn(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM presencas WHERE data_chamada = $1`, day.Format("2006-01-02")).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count presencas: %w", err)
	}
	return n, nil
}

func (s *Store) countAll(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
