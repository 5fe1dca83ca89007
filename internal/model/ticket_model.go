package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Ticket struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey"` // local_id, generated before the external call
	ExternalId   string         `gorm:"type:varchar(100);index"`
	Type         string         `gorm:"type:varchar(50);not null"`
	TenantId     string         `gorm:"type:varchar(100);not null;index"`
	RoleOrigin   string         `gorm:"type:varchar(50);not null"`
	Status       string         `gorm:"type:varchar(20);not null;index"`
	TurnKey      string         `gorm:"type:varchar(200);uniqueIndex"` // one row per logical turn
	QueryText    string         `gorm:"type:text;not null"`
	LinkedAnswer string         `gorm:"type:text"`
	Urgency      string         `gorm:"type:varchar(20)"`
	Sentiment    string         `gorm:"type:varchar(20)"`
	SessionId    string         `gorm:"type:varchar(100);index"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (Ticket) TableName() string {
	return "tickets"
}
