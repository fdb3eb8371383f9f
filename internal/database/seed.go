package database

import (
	"errors"
	"fmt"

	"eel-pool/internal/config"
	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"gorm.io/gorm"
)

// Seed inserts the fixed rows a fresh database needs: the "Level N" system
// categories and a bootstrap operator account (password = operator role
// password from config). Existing rows are left alone.
func Seed(db *gorm.DB, cfg *config.Config) error {
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("Level %d", i)
		var cat models.Category
		err := db.Where("name = ?", name).First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cat = models.Category{
				Name:        name,
				Description: fmt.Sprintf("System category for level %d classes", i),
				IsSystem:    true,
			}
			if err := db.Create(&cat).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
		} else if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("account_type = ?", models.RoleOperator).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count operators: %w", err)
	}
	if count == 0 && cfg.Game.OperatorPassword != "" {
		hash, err := util.HashPassword(cfg.Game.OperatorPassword)
		if err != nil {
			return fmt.Errorf("hash operator password: %w", err)
		}
		op := models.User{
			Username:     "operator",
			PasswordHash: hash,
			AccountType:  models.RoleOperator,
			Balance:      cfg.Game.StartingBalance,
		}
		if err := db.Create(&op).Error; err != nil {
			return fmt.Errorf("seed operator: %w", err)
		}
	}

	return nil
}
