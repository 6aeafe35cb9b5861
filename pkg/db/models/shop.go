package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop represents the canonical tenant model. Each shop is reachable under
// its own domain and owns exactly one user account that feed events for the
// shop are addressed to.
type Shop struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Domain      string    `gorm:"column:domain;type:text;not null;uniqueIndex"`
	OwnerUserID uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
