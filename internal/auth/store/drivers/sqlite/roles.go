package sqlite

import (
	"context"
	"time"

	"github.com/afci/trajet/internal/auth/domain"
)

const (
	rolesForUser = `SELECT r.code
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = ? AND r.active = 1
ORDER BY r.code`

	getRoleByCode = `SELECT id, code, label, active, created_at FROM roles WHERE code = ?`
	listAllRoles  = `SELECT id, code, label, active, created_at FROM roles ORDER BY code`
	createRole    = `INSERT INTO roles (id, code, label, active, created_at) VALUES (?, ?, ?, ?, ?)`
	assignRole    = `INSERT INTO user_roles (user_id, role_id) VALUES (?, ?) ON CONFLICT DO NOTHING`
)

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, rolesForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *rolesRepo) GetRoleByCode(ctx context.Context, code string) (domain.Role, error) {
	return scanRole(r.db.QueryRowContext(ctx, getRoleByCode, code))
}

func (r *rolesRepo) ListAll(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, listAllRoles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	createdAt := role.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, createRole, role.ID, role.Code, role.Label, role.Active, createdAt.UTC())
	return mapConstraint(err)
}

func (r *rolesRepo) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx, assignRole, userID, roleID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (domain.Role, error) {
	var role domain.Role
	if err := row.Scan(&role.ID, &role.Code, &role.Label, &role.Active, &role.CreatedAt); err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	role.CreatedAt = role.CreatedAt.UTC()
	return role, nil
}
