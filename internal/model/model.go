package model

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent *string
	IPAddress *string
}

// School mirrors a row of escola_configuracao. TotalAlunos and TotalTurmas
// are not stored; they are filled from grouped child counts at read time.
type School struct {
	ID           string
	Nome         string
	Email        string
	Telefone     *string
	Endereco     *string
	Status       string
	CriadoEm     time.Time
	AtualizadoEm *time.Time
	TotalAlunos  int64
	TotalTurmas  int64
}

// School status values kept in Portuguese, as stored by the registration flow.
const (
	SchoolStatusPendente  = "pendente"
	SchoolStatusAprovada  = "aprovada"
	SchoolStatusRejeitada = "rejeitada"
)

type DashboardStats struct {
	TotalEscolas      int64 `json:"totalEscolas"`
	EscolasPendentes  int64 `json:"escolasPendentes"`
	EscolasAtivas     int64 `json:"escolasAtivas"`
	EscolasRejeitadas int64 `json:"escolasRejeitadas"`
	TotalAlunos       int64 `json:"totalAlunos"`
	TotalUsuarios     int64 `json:"totalUsuarios"`
	TotalTurmas       int64 `json:"totalTurmas"`
	ChamadasHoje      int64 `json:"chamadasHoje"`
}
