package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayltonkaua/super-admin-api/internal/errs"
	"github.com/ayltonkaua/super-admin-api/internal/model"
	"github.com/ayltonkaua/super-admin-api/internal/repository"
)

type escolaResponse struct {
	ID           string  `json:"id"`
	Nome         string  `json:"nome"`
	Email        string  `json:"email"`
	Telefone     *string `json:"telefone,omitempty"`
	Endereco     *string `json:"endereco,omitempty"`
	Status       string  `json:"status"`
	CriadoEm     string  `json:"criado_em"`
	AtualizadoEm *string `json:"atualizado_em,omitempty"`
	TotalAlunos  int64   `json:"totalAlunos"`
	TotalTurmas  int64   `json:"totalTurmas"`
}

func mapEscola(school model.School, counts repository.ChildCounts) escolaResponse {
	resp := escolaResponse{
		ID:          school.ID,
		Nome:        school.Nome,
		Email:       school.Email,
		Telefone:    school.Telefone,
		Endereco:    school.Endereco,
		Status:      school.Status,
		CriadoEm:    school.CriadoEm.UTC().Format(time.RFC3339),
		TotalAlunos: counts.Alunos,
		TotalTurmas: counts.Turmas,
	}
	if school.AtualizadoEm != nil {
		formatted := school.AtualizadoEm.UTC().Format(time.RFC3339)
		resp.AtualizadoEm = &formatted
	}
	return resp
}

func (s *Server) handleListEscolas(w http.ResponseWriter, r *http.Request) {
	filter := repository.SchoolFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Limit:  20,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}

	schools, total, err := s.store.ListSchools(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ids := make([]string, 0, len(schools))
	for _, school := range schools {
		ids = append(ids, school.ID)
	}
	counts, err := s.store.CountSchoolChildren(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data := make([]escolaResponse, 0, len(schools))
	for _, school := range schools {
		data = append(data, mapEscola(school, counts[school.ID]))
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Data:    data,
		Pagination: pagination{
			Total:  total,
			Limit:  filter.Limit,
			Offset: filter.Offset,
		},
	})
}

func (s *Server) handleGetEscola(w http.ResponseWriter, r *http.Request) {
	id, ok := escolaID(w, r)
	if !ok {
		return
	}

	school, err := s.store.GetSchoolByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Escola não encontrada")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts, err := s.store.CountSchoolChildren(r.Context(), []string{id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, http.StatusOK, mapEscola(school, counts[id]))
}

func (s *Server) handleAprovarEscola(w http.ResponseWriter, r *http.Request) {
	id, ok := escolaID(w, r)
	if !ok {
		return
	}
	if err := s.store.SetSchoolStatus(r.Context(), id, model.SchoolStatusAprovada, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, "Escola aprovada com sucesso")
}

func (s *Server) handleRejeitarEscola(w http.ResponseWriter, r *http.Request) {
	id, ok := escolaID(w, r)
	if !ok {
		return
	}
	if err := s.store.SetSchoolStatus(r.Context(), id, model.SchoolStatusRejeitada, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, "Escola rejeitada")
}

func (s *Server) handleDeleteEscola(w http.ResponseWriter, r *http.Request) {
	id, ok := escolaID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteSchool(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, errs.ErrHasDependents):
			writeError(w, http.StatusBadRequest, "Não é possível deletar escola com alunos ou turmas. Remova-os primeiro.")
		case errors.Is(err, errs.ErrNotFound):
			writeError(w, http.StatusNotFound, "Escola não encontrada")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if p := principalFromContext(r.Context()); p != nil {
		s.logger.Info("escola removida",
			zap.String("escola_id", id),
			zap.String("removed_by", p.UserID),
		)
	}
	writeMessage(w, "Escola removida com sucesso")
}

func escolaID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "ID da escola inválido")
		return "", false
	}
	return id, true
}
