package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

const (
	escolaA = "3f1d9a52-8f0e-4c94-9c71-0b3c5a7d2e10"
	escolaB = "7a2b4c6d-1e3f-4a5b-8c9d-0e1f2a3b4c5d"
)

func escolaColumns() []string {
	return []string{"id", "nome", "email", "telefone", "endereco", "status", "criado_em", "atualizado_em"}
}

func TestListEscolasFiltersByStatus(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM escola_configuracao WHERE status = \$1`).
		WithArgs("pendente").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(`FROM escola_configuracao WHERE status = \$1 ORDER BY criado_em DESC LIMIT \$2`).
		WithArgs("pendente", 20).
		WillReturnRows(pgxmock.NewRows(escolaColumns()).
			AddRow(escolaB, "Escola B", "b@escola.br", nil, nil, "pendente", now, nil).
			AddRow(escolaA, "Escola A", "a@escola.br", nil, nil, "pendente", now.Add(-time.Hour), nil))
	mock.ExpectQuery(`FROM alunos WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaB, escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}).AddRow(escolaB, int64(15)))
	mock.ExpectQuery(`FROM turmas WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaB, escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}).AddRow(escolaB, int64(4)))

	rec := doRequest(t, srv, http.MethodGet, "/v1/escolas?status=pendente", accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success    bool             `json:"success"`
		Data       []escolaResponse `json:"data"`
		Pagination pagination       `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Len(t, body.Data, 2)
	for _, escola := range body.Data {
		require.Equal(t, "pendente", escola.Status)
	}
	// Newest first, enriched with child counts.
	require.Equal(t, escolaB, body.Data[0].ID)
	require.EqualValues(t, 15, body.Data[0].TotalAlunos)
	require.EqualValues(t, 4, body.Data[0].TotalTurmas)
	require.Zero(t, body.Data[1].TotalAlunos)
	require.EqualValues(t, 2, body.Pagination.Total)
	require.Equal(t, 20, body.Pagination.Limit)
	require.Zero(t, body.Pagination.Offset)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEscolasEmptyPage(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM escola_configuracao`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`FROM escola_configuracao ORDER BY criado_em DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows(escolaColumns()))

	rec := doRequest(t, srv, http.MethodGet, "/v1/escolas", accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	// An empty page is an empty array, never null.
	require.Contains(t, rec.Body.String(), `"data":[]`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEscolaInvalidID(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)

	rec := doRequest(t, srv, http.MethodGet, "/v1/escolas/not-a-uuid", accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "ID da escola inválido")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEscolaNotFound(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)
	mock.ExpectQuery(`FROM escola_configuracao WHERE id = \$1`).
		WithArgs(escolaA).
		WillReturnError(pgx.ErrNoRows)

	rec := doRequest(t, srv, http.MethodGet, "/v1/escolas/"+escolaA, accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Escola não encontrada")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEscola(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM escola_configuracao WHERE id = \$1`).
		WithArgs(escolaA).
		WillReturnRows(pgxmock.NewRows(escolaColumns()).
			AddRow(escolaA, "Escola A", "a@escola.br", nil, nil, "aprovada", now, &now))
	mock.ExpectQuery(`FROM alunos WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}).AddRow(escolaA, int64(7)))
	mock.ExpectQuery(`FROM turmas WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}))

	rec := doRequest(t, srv, http.MethodGet, "/v1/escolas/"+escolaA, accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec.Body.Bytes())
	require.True(t, env.Success)
	var escola escolaResponse
	require.NoError(t, json.Unmarshal(env.Data, &escola))
	require.Equal(t, escolaA, escola.ID)
	require.EqualValues(t, 7, escola.TotalAlunos)
	require.Zero(t, escola.TotalTurmas)
	require.NotEmpty(t, escola.CriadoEm)
	require.NotNil(t, escola.AtualizadoEm)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAprovarEscola(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	token := accessToken(t, "user-1", "a@b.com")

	// Approving twice succeeds both times; the update is prior-state blind.
	for i := 0; i < 2; i++ {
		expectRoleGrant(mock, "user-1", true)
		mock.ExpectExec(`UPDATE escola_configuracao SET status = \$1, atualizado_em = \$2 WHERE id = \$3`).
			WithArgs("aprovada", pgxmock.AnyArg(), escolaA).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		rec := doRequest(t, srv, http.MethodPatch, "/v1/escolas/"+escolaA+"/aprovar", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec.Body.Bytes())
		require.True(t, env.Success)
		require.Equal(t, "Escola aprovada com sucesso", env.Message)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRejeitarEscola(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)
	mock.ExpectExec(`UPDATE escola_configuracao SET status = \$1, atualizado_em = \$2 WHERE id = \$3`).
		WithArgs("rejeitada", pgxmock.AnyArg(), escolaA).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := doRequest(t, srv, http.MethodPatch, "/v1/escolas/"+escolaA+"/rejeitar", accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Escola rejeitada")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEscolaWithDependents(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)

	mock.ExpectQuery(`FROM alunos WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}).AddRow(escolaA, int64(3)))
	mock.ExpectQuery(`FROM turmas WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}))

	rec := doRequest(t, srv, http.MethodDelete, "/v1/escolas/"+escolaA, accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	require.False(t, env.Success)
	require.Equal(t, "Não é possível deletar escola com alunos ou turmas. Remova-os primeiro.", env.Error)
	// No DELETE statement was queued, so the mock confirms none ran.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEscola(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)

	mock.ExpectQuery(`FROM alunos WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}))
	mock.ExpectQuery(`FROM turmas WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaA}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}))
	mock.ExpectExec(`DELETE FROM escola_configuracao WHERE id = \$1`).
		WithArgs(escolaA).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	rec := doRequest(t, srv, http.MethodDelete, "/v1/escolas/"+escolaA, accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Escola removida com sucesso")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEscolaNotFound(t *testing.T) {
	srv, mock, _ := newTestServer(t)
	expectRoleGrant(mock, "user-1", true)

	mock.ExpectQuery(`FROM alunos WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaB}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}))
	mock.ExpectQuery(`FROM turmas WHERE escola_id = ANY\(\$1\) GROUP BY escola_id`).
		WithArgs([]string{escolaB}).
		WillReturnRows(pgxmock.NewRows([]string{"escola_id", "count"}))
	mock.ExpectExec(`DELETE FROM escola_configuracao WHERE id = \$1`).
		WithArgs(escolaB).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	rec := doRequest(t, srv, http.MethodDelete, "/v1/escolas/"+escolaB, accessToken(t, "user-1", "a@b.com"), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Escola não encontrada")
	require.NoError(t, mock.ExpectationsWereMet())
}
