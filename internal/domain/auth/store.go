package auth

import (
	"context"

	"appraisal/internal/platform/querier"
)

type AuthUser struct {
	ID           string
	Email        string
	PasswordHash string
	PersonNumber string
	RoleName     string
}

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var user AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, password_hash, person_number, role
    FROM users
    WHERE lower(email) = lower($1) AND status = 'active'
  `, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.PersonNumber, &user.RoleName)
	return user, err
}
