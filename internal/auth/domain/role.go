package domain

import "time"

// Well known role codes seeded by the initial migrations.
const (
	RoleAdmin                    = "ADMIN"
	RoleFormateur                = "FORMATEUR"
	RoleResponsableAccessibilite = "RESPONSABLE_ACCESSIBILITE"
)

type Role struct {
	ID        string
	Code      string // uppercase, unprefixed
	Label     string
	Active    bool
	CreatedAt time.Time
}
