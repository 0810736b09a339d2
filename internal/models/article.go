package models

import "time"

type Article struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"not null"`
	Post      string `gorm:"type:text;not null"`
	AuthorID  uint   `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Author *User `gorm:"foreignKey:AuthorID"`
}
