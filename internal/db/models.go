package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID        uint           `gorm:"primaryKey"`
	Room      string         `gorm:"size:12;uniqueIndex;not null"`
	Theme     string         `gorm:"size:32;not null"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
	Events    []Event
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
