package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayltonkaua/super-admin-api/internal/auth"
	"github.com/ayltonkaua/super-admin-api/internal/crypto"
	"github.com/ayltonkaua/super-admin-api/internal/errs"
	"github.com/ayltonkaua/super-admin-api/internal/limiter"
	"github.com/ayltonkaua/super-admin-api/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authData struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresAt    int64    `json:"expiresAt"`
	User         *authUser `json:"user,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Email e senha são obrigatórios")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email e senha são obrigatórios")
		return
	}

	ipHash := limiter.HashIP(clientIP(r))
	allowed, retryAfter, err := s.lim.Allow(r.Context(), req.Email, ipHash)
	if err != nil {
		// Limiter trouble must not lock every operator out.
		s.logger.Warn("login limiter check failed", zap.Error(err))
		allowed = true
	}
	if !allowed {
		s.logger.Warn("login temporarily blocked",
			zap.String("email", req.Email),
			zap.Duration("retry_after", retryAfter),
		)
		writeError(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.recordLoginFailure(r.Context(), req.Email, ipHash)
			writeError(w, http.StatusUnauthorized, "Credenciais inválidas")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.recordLoginFailure(r.Context(), req.Email, ipHash)
		writeError(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}

	granted, err := s.store.HasRoleGrant(r.Context(), user.ID, "super_admin")
	if err != nil {
		s.logger.Warn("role grant lookup failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
	if err != nil || !granted {
		writeError(w, http.StatusForbidden, "Acesso negado - Requer permissão de super admin")
		return
	}

	if err := s.lim.Success(r.Context(), req.Email, ipHash); err != nil {
		s.logger.Warn("login limiter reset failed", zap.Error(err))
	}

	tokens, err := s.issueTokens(r.Context(), user, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tokens.User = &authUser{ID: user.ID, Email: user.Email}
	writeData(w, http.StatusOK, tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Refresh token é obrigatório")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token é obrigatório")
		return
	}

	session, err := s.store.GetRefreshSession(r.Context(), crypto.HashToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session.RevokedAt != nil || session.ExpiresAt.Before(time.Now().UTC()) {
		writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
		return
	}

	// Rotation: the presented refresh token is spent either way.
	if err := s.store.RevokeRefreshSession(r.Context(), session.ID, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tokens, err := s.issueTokens(r.Context(), user, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, http.StatusOK, tokens)
}

// Logout is a public route. When a valid bearer token accompanies the
// request its refresh sessions are revoked; the response is success either
// way, so clients can always clear local state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		if claims, err := auth.ParseToken(s.cfg.JWTSecret, token); err == nil {
			if err := s.store.RevokeRefreshSessionsByUser(r.Context(), claims.Subject, time.Now().UTC()); err != nil {
				s.logger.Warn("refresh session revoke failed",
					zap.String("user_id", claims.Subject),
					zap.Error(err),
				)
			}
		}
	}
	writeMessage(w, "Logout realizado")
}

func (s *Server) issueTokens(ctx context.Context, user model.User, userAgent, ip string) (authData, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	accessToken, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, user.ID, user.Email)
	if err != nil {
		return authData{}, err
	}

	refreshToken, err := crypto.NewRefreshToken()
	if err != nil {
		return authData{}, err
	}

	session := model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.HashToken(refreshToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ip != "" {
		session.IPAddress = &ip
	}
	if err := s.store.CreateRefreshSession(ctx, session); err != nil {
		return authData{}, err
	}

	return authData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

func (s *Server) recordLoginFailure(ctx context.Context, email string, ipHash []byte) {
	blocked, blockFor, err := s.lim.Failure(ctx, email, ipHash)
	if err != nil {
		s.logger.Warn("login limiter record failed", zap.Error(err))
		return
	}
	if blocked {
		s.logger.Warn("login blocked after repeated failures",
			zap.String("email", email),
			zap.Duration("block_for", blockFor),
		)
	}
}
