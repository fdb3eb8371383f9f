package models

import "time"

// AuditLog records mutating actions for after-the-fact review.
type AuditLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    *uint  `gorm:"index"`
	Action    string `gorm:"size:64;index"`
	Method    string `gorm:"size:16"`
	Path      string `gorm:"size:255"`
	IP        string `gorm:"size:64"`
	UserAgent string `gorm:"size:255"`
	Metadata  string `gorm:"size:2048"` // raw form body, truncated
	CreatedAt time.Time
}
