package http

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayltonkaua/super-admin-api/internal/model"
)

// handleStats fans out the dashboard count queries and joins the results.
// A failed counter defaults to zero and is logged; the response is still 200
// with whatever could be counted.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// "today" for chamadasHoje, fixed once per call, UTC calendar date.
	today := time.Now().UTC()

	var (
		statusCounts map[string]int64
		alunos       int64
		usuarios     int64
		turmas       int64
		chamadas     int64
	)

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		counts, err := s.store.CountSchoolsByStatus(ctx)
		if err != nil {
			s.logger.Warn("stats: school counts failed", zap.Error(err))
			return
		}
		statusCounts = counts
	}()
	go func() {
		defer wg.Done()
		n, err := s.store.CountAlunos(ctx)
		if err != nil {
			s.logger.Warn("stats: aluno count failed", zap.Error(err))
			return
		}
		alunos = n
	}()
	go func() {
		defer wg.Done()
		n, err := s.store.CountUserRoles(ctx)
		if err != nil {
			s.logger.Warn("stats: user role count failed", zap.Error(err))
			return
		}
		usuarios = n
	}()
	go func() {
		defer wg.Done()
		n, err := s.store.CountTurmas(ctx)
		if err != nil {
			s.logger.Warn("stats: turma count failed", zap.Error(err))
			return
		}
		turmas = n
	}()
	go func() {
		defer wg.Done()
		n, err := s.store.CountPresencasOn(ctx, today)
		if err != nil {
			s.logger.Warn("stats: presenca count failed", zap.Error(err))
			return
		}
		chamadas = n
	}()
	wg.Wait()

	var totalEscolas int64
	for _, n := range statusCounts {
		totalEscolas += n
	}

	writeData(w, http.StatusOK, model.DashboardStats{
		TotalEscolas:      totalEscolas,
		EscolasPendentes:  statusCounts[model.SchoolStatusPendente],
		EscolasAtivas:     statusCounts[model.SchoolStatusAprovada],
		EscolasRejeitadas: statusCounts[model.SchoolStatusRejeitada],
		TotalAlunos:       alunos,
		TotalUsuarios:     usuarios,
		TotalTurmas:       turmas,
		ChamadasHoje:      chamadas,
	})
}
