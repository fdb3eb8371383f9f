package models

import "time"

// Category groups pitches. A non-nil MaxFundingGoal caps the funding goal
// of every pitch filed under it. System categories cannot be deleted.
type Category struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:64;uniqueIndex;not null"`
	Description    string `gorm:"size:255"`
	TeacherID      *uint  `gorm:"index"`
	MaxFundingGoal *int64
	IsSystem       bool `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
