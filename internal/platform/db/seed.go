package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraisal/internal/domain/auth"
	"appraisal/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	return ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.SeedAdminPersonNumber)
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password, personNumber string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (email, password_hash, person_number, role)
    VALUES ($1, $2, $3, $4)
  `, email, hash, personNumber, auth.RoleAdmin)
	return err
}
