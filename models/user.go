package models

import (
	"time"

	"emidesk-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staff roles. Each role gets its own dashboard in the frontend.
const (
	RoleEmployee  = "Employee"
	RolePartner   = "Partner"
	RoleIBA       = "IBA"
	RolePrincipal = "Principal"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Username string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null"`
	Name     string

	Role string `gorm:"type:varchar(20);not null"` // Employee, Partner, IBA or Principal

	LastLogin *time.Time
	IsActive  bool `gorm:"default:true"`

	gorm.Model
}

// Initialize UUID and hash password before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.ID = uuid.New()
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

// ValidRole reports whether role is one of the four staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RolePartner, RoleIBA, RolePrincipal:
		return true
	}
	return false
}
