package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/ayltonkaua/super-admin-api/internal/model"
)

// The count queries run concurrently, so expectations must match in any order.
func expectStatsQueries(mock pgxmock.PgxPoolIface, presencasErr error) {
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM escola_configuracao GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pendente", int64(3)).
			AddRow("aprovada", int64(2)).
			AddRow("rejeitada", int64(1)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM alunos`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(120)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_roles`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(9)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM turmas`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(14)))

	presencas := mock.ExpectQuery(`SELECT COUNT\(\*\) FROM presencas WHERE data_chamada = \$1`).
		WithArgs(pgxmock.AnyArg())
	if presencasErr != nil {
		presencas.WillReturnError(presencasErr)
	} else {
		presencas.WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))
	}
}

func fetchStats(t *testing.T, srv *Server) model.DashboardStats {
	t.Helper()
	rec := doRequest(t, srv, http.MethodGet, "/v1/stats", accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec.Body.Bytes())
	require.True(t, env.Success)
	var stats model.DashboardStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	return stats
}

func TestStats(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)
	expectStatsQueries(mock, nil)

	stats := fetchStats(t, srv)
	require.EqualValues(t, 6, stats.TotalEscolas)
	require.EqualValues(t, 3, stats.EscolasPendentes)
	require.EqualValues(t, 2, stats.EscolasAtivas)
	require.EqualValues(t, 1, stats.EscolasRejeitadas)
	require.EqualValues(t, 120, stats.TotalAlunos)
	require.EqualValues(t, 9, stats.TotalUsuarios)
	require.EqualValues(t, 14, stats.TotalTurmas)
	require.EqualValues(t, 42, stats.ChamadasHoje)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsPartialFailure(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)
	expectStatsQueries(mock, errors.New(`relation "presencas" does not exist`))

	// A failed counter zeroes its own field; everything else still lands.
	stats := fetchStats(t, srv)
	require.EqualValues(t, 6, stats.TotalEscolas)
	require.EqualValues(t, 120, stats.TotalAlunos)
	require.EqualValues(t, 9, stats.TotalUsuarios)
	require.EqualValues(t, 14, stats.TotalTurmas)
	require.Zero(t, stats.ChamadasHoje)
	require.NoError(t, mock.ExpectationsWereMet())
}
