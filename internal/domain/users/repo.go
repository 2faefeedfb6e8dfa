package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// ListByRoles returns enabled users holding any of roles.
func (r *Repo) ListByRoles(ctx context.Context, roles ...Role) ([]User, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.email, COALESCE(u.telegram_id, 0), u.enabled, u.created_at,
		       ARRAY_AGG(ur.role ORDER BY ur.role)
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.enabled = TRUE
		  AND u.id IN (SELECT user_id FROM user_roles WHERE role = ANY($1))
		GROUP BY u.id
		ORDER BY u.id
	`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u     User
			roles []string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.TelegramID, &u.Enabled, &u.CreatedAt, &roles); err != nil {
			return nil, err
		}
		for _, role := range roles {
			u.Roles = append(u.Roles, Role(role))
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) GetByName(ctx context.Context, name string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, COALESCE(telegram_id, 0), enabled, created_at
		FROM users WHERE name = $1
	`, name)

	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.TelegramID, &u.Enabled, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByTelegramID returns the enabled user linked to a Telegram account, with roles.
func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.telegram_id, u.enabled, u.created_at,
		       COALESCE(ARRAY_AGG(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.telegram_id = $1 AND u.enabled = TRUE
		GROUP BY u.id
	`, tgID)

	var (
		u     User
		roles []string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.TelegramID, &u.Enabled, &u.CreatedAt, &roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	for _, role := range roles {
		u.Roles = append(u.Roles, Role(role))
	}
	return &u, nil
}
