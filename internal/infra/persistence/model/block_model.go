package model

import (
	"time"

	"github.com/google/uuid"
)

// FlowBlockModel mirrors the 'flow_blocks' table, the durable record of
// brute-force blocks.
type FlowBlockModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	TenantID       string `gorm:"type:varchar(64);not null;index:idx_flow_blocks_lookup"`
	UserIdentifier string `gorm:"type:varchar(255);not null;index:idx_flow_blocks_lookup"`
	Flow           string `gorm:"type:varchar(20);not null;index:idx_flow_blocks_lookup"`
	Reason         string `gorm:"type:varchar(255)"`
	UnblockedAt    int64  `gorm:"not null"`
	IsActive       bool   `gorm:"not null;default:true"`
	CreatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (FlowBlockModel) TableName() string {
	return "flow_blocks"
}

// BlockConfigModel mirrors the 'password_pin_block_config' table of
// per-tenant brute-force thresholds.
type BlockConfigModel struct {
	TenantID              string `gorm:"type:varchar(64);primary_key"`
	AttemptsAllowed       int64  `gorm:"not null"`
	AttemptsWindowSeconds int64  `gorm:"not null"`
	BlockIntervalSeconds  int64  `gorm:"not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName explicitly sets the table name for GORM.
func (BlockConfigModel) TableName() string {
	return "password_pin_block_config"
}
