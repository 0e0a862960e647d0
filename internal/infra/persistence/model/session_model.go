// Package model holds GORM-specific structs mirroring the PostgreSQL schema.
package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table. Scope and auth
// methods are stored as comma-separated text columns.
type RefreshTokenModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	TenantID    string    `gorm:"type:varchar(64);not null;index:idx_refresh_tokens_tenant_user"`
	ClientID    string    `gorm:"type:varchar(64);not null"`
	UserID      string    `gorm:"type:varchar(64);not null;index:idx_refresh_tokens_tenant_user"`
	Token       string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Expiry      int64     `gorm:"not null"`
	Scope       string    `gorm:"type:text"`
	AuthMethods string    `gorm:"type:text;not null"`
	IsActive    bool      `gorm:"not null;default:true"`
	DeviceID    string    `gorm:"type:varchar(255)"`
	DeviceName  string    `gorm:"type:varchar(255)"`
	IP          string    `gorm:"type:varchar(64)"`
	Source      string    `gorm:"type:varchar(64)"`
	Location    string    `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}
