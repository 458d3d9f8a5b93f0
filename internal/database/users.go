package database

import (
	"context"

	"github.com/google/uuid"
)

type CreateUserParams struct {
	TenantID       uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (tenant_id, email, hashed_password, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, tenant_id, email, hashed_password, full_name, role, created_at`,
		arg.TenantID, arg.Email, arg.HashedPassword, arg.FullName, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, email, hashed_password, full_name, role, created_at
		FROM users
		WHERE email = $1`, email)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, email, hashed_password, full_name, role, created_at
		FROM users
		WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.CreatedAt)
	return u, err
}
