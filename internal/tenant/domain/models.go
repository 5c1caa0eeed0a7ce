// Package domain contains persistence models for owner firms and their clients.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Organization is the owner tenant: the accounting firm operating the ledger.
type Organization struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Country   *string      `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Client is a sub-tenant managed by an organization. Soft deletion marks a
// client inactive without discarding its ledger history; a soft-deleted
// client may be restored later.
type Client struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	OrgID     snowflake.ID   `gorm:"not null;index"`
	Name      string         `gorm:"type:text;not null"`
	Email     *string        `gorm:"type:text"`
	TaxID     *string        `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
