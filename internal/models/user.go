package models

import "time"

// Account roles.
const (
	RoleStudent  = "student"
	RoleTeacher  = "teacher"
	RoleOperator = "operator"
)

// ValidRole reports whether s is one of the known account types.
func ValidRole(s string) bool {
	return s == RoleStudent || s == RoleTeacher || s == RoleOperator
}

// User represents a participant account. Balance is whole currency units
// and must never go negative.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	AccountType  string `gorm:"size:16;index;not null;default:student"`
	Balance      int64  `gorm:"not null;default:0"`
	IsBanned     bool   `gorm:"index;not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
