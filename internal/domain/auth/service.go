package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	store  StoreAPI
	secret string
	ttl    time.Duration
}

func NewService(store StoreAPI, secret string, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl}
}

// Login checks the credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, AuthUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", AuthUser{}, ErrInvalidCredentials
	}
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", AuthUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", AuthUser{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return "", AuthUser{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.secret, Claims{UserID: user.ID, PersonNumber: user.PersonNumber, RoleName: user.RoleName}, s.ttl)
	if err != nil {
		return "", AuthUser{}, err
	}
	return token, user, nil
}
