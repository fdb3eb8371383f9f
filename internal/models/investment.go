package models

import "time"

// Investment is one user's stake in one pitch. At most one row exists per
// (user, presentation) pair; amount is always positive while the row exists
// (an amount of zero means the row is deleted and the money refunded).
type Investment struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         uint   `gorm:"index;not null;uniqueIndex:idx_user_presentation"`
	PresentationID uint   `gorm:"index;not null;uniqueIndex:idx_user_presentation"`
	Amount         int64  `gorm:"not null"`
	Comment        string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	User         User         `gorm:"constraint:OnDelete:CASCADE"`
	Presentation Presentation `gorm:"constraint:OnDelete:CASCADE"`
}
