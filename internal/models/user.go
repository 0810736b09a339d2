package models

import (
	"slices"
	"time"
)

type User struct {
	ID                uint      `gorm:"primaryKey"`
	Name              string    `gorm:"size:100;not null"`
	Password          string    `gorm:"not null"`
	Username          string    `gorm:"size:200;not null;uniqueIndex"`
	Roles             []string  `gorm:"serializer:json;not null"`
	IsAccountDisabled bool      `gorm:"not null;default:false"`
	Email             string    `gorm:"size:200;not null;uniqueIndex"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Articles []Article `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}
