package model

import (
	"time"

	"github.com/google/uuid"
)

// CredentialModel mirrors the 'credentials' table. PublicKey holds the
// PEM-encoded EC P-256 public key registered by the device.
type CredentialModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	TenantID     string    `gorm:"type:varchar(64);not null;index:idx_credentials_device"`
	ClientID     string    `gorm:"type:varchar(64);not null"`
	UserID       string    `gorm:"type:varchar(64);not null;index:idx_credentials_device"`
	DeviceID     string    `gorm:"type:varchar(255);not null;index:idx_credentials_device"`
	Platform     string    `gorm:"type:varchar(50)"`
	CredentialID string    `gorm:"type:varchar(255);not null"`
	PublicKey    string    `gorm:"type:text;not null"`
	BindingType  string    `gorm:"type:varchar(50);not null"`
	Alg          string    `gorm:"type:varchar(20);not null"`
	SignCount    uint32    `gorm:"not null;default:0"`
	AAGUID       string    `gorm:"type:varchar(64)"`
	IsActive     bool      `gorm:"not null;default:true"`
	RevokedAt    *time.Time
	CreatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (CredentialModel) TableName() string {
	return "credentials"
}
