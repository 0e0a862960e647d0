package model

import "time"

// LocalUserModel mirrors the 'local_users' table used when the service runs
// with the local user-store provider instead of a remote user service.
type LocalUserModel struct {
	ID           string `gorm:"type:varchar(64);primary_key"`
	TenantID     string `gorm:"type:varchar(64);primary_key"`
	Email        string `gorm:"type:varchar(255);index:idx_local_users_email"`
	Phone        string `gorm:"type:varchar(64);index:idx_local_users_phone"`
	PasswordHash string `gorm:"type:varchar(255)"`
	PinHash      string `gorm:"type:varchar(255)"`
	FCMToken     string `gorm:"type:varchar(255)"`
	Profile      []byte `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (LocalUserModel) TableName() string {
	return "local_users"
}
