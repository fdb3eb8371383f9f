package models

import "time"

// Presentation is a fundable pitch. TotalInvested and InvestorCount are
// aggregates maintained by the ledger; they must always equal the sum and
// count of the pitch's active investments.
type Presentation struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        uint   `gorm:"index;not null"`
	Title         string `gorm:"size:128;not null"`
	Description   string `gorm:"type:text"`
	FundingGoal   int64  `gorm:"not null"`
	CategoryID    *uint  `gorm:"index"`
	TotalInvested int64  `gorm:"not null;default:0"`
	InvestorCount int    `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	User     User      `gorm:"constraint:OnDelete:CASCADE"`
	Category *Category `gorm:"constraint:OnDelete:SET NULL"`
}
