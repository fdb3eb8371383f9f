// Package ledger implements the investment ledger: every mutation that
// moves money between account balances and pitch aggregates. Each operation
// runs inside a single transaction so a balance debit, the investment row
// and the pitch totals always change together or not at all.
package ledger

import (
	"errors"
	"fmt"

	"eel-pool/internal/models"

	"gorm.io/gorm"
)

// Service owns all balance-affecting mutations.
type Service struct {
	db *gorm.DB
}

// New returns a ledger service over the given database.
func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ChangeResult reports the outcome of ChangeInvestment.
type ChangeResult struct {
	NewBalance int64
	NewAmount  int64
	Removed    bool
}

// ForceResult reports the outcome of a ForceInvest batch.
type ForceResult struct {
	Affected int
	Skipped  int
}

// Invest creates a first-time investment: debit the user, create the row,
// bump the pitch aggregates. Returns the user's new balance.
func (s *Service) Invest(userID, presentationID uint, amount int64, comment string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var newBalance int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		if user.IsBanned {
			return ErrBanned
		}
		if amount > user.Balance {
			return ErrInsufficientFunds
		}

		var pitch models.Presentation
		if err := tx.First(&pitch, presentationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load presentation: %w", err)
		}

		var count int64
		if err := tx.Model(&models.Investment{}).
			Where("user_id = ? AND presentation_id = ?", userID, presentationID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check existing investment: %w", err)
		}
		if count > 0 {
			return ErrAlreadyInvested
		}

		inv := models.Investment{
			UserID:         userID,
			PresentationID: presentationID,
			Amount:         amount,
			Comment:        comment,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return fmt.Errorf("create investment: %w", err)
		}

		if err := tx.Model(&user).
			Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		if err := tx.Model(&pitch).Updates(map[string]interface{}{
			"total_invested": gorm.Expr("total_invested + ?", amount),
			"investor_count": gorm.Expr("investor_count + 1"),
		}).Error; err != nil {
			return fmt.Errorf("update aggregates: %w", err)
		}

		newBalance = user.Balance - amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ChangeInvestment replaces the amount of an existing investment owned by
// userID. newAmount <= 0 removes the row and refunds in full; otherwise the
// delta is debited or credited. An equal amount is reported as ErrUnchanged
// rather than silently accepted.
func (s *Service) ChangeInvestment(userID, investmentID uint, newAmount int64) (ChangeResult, error) {
	var res ChangeResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var inv models.Investment
		if err := tx.First(&inv, investmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load investment: %w", err)
		}
		if inv.UserID != userID {
			return ErrForbidden
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		if newAmount <= 0 {
			// removal path: refund the full amount
			if err := tx.Delete(&inv).Error; err != nil {
				return fmt.Errorf("delete investment: %w", err)
			}
			if err := tx.Model(&user).
				Update("balance", gorm.Expr("balance + ?", inv.Amount)).Error; err != nil {
				return fmt.Errorf("refund balance: %w", err)
			}
			if err := tx.Model(&models.Presentation{}).
				Where("id = ?", inv.PresentationID).
				Updates(map[string]interface{}{
					"total_invested": gorm.Expr("total_invested - ?", inv.Amount),
					"investor_count": gorm.Expr("investor_count - 1"),
				}).Error; err != nil {
				return fmt.Errorf("update aggregates: %w", err)
			}
			res = ChangeResult{NewBalance: user.Balance + inv.Amount, Removed: true}
			return nil
		}

		if newAmount == inv.Amount {
			return ErrUnchanged
		}

		delta := newAmount - inv.Amount
		if delta > user.Balance {
			return ErrInsufficientFunds
		}

		if err := tx.Model(&inv).Update("amount", newAmount).Error; err != nil {
			return fmt.Errorf("update investment: %w", err)
		}
		if err := tx.Model(&user).
			Update("balance", gorm.Expr("balance - ?", delta)).Error; err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}
		// investor_count unchanged, same investor
		if err := tx.Model(&models.Presentation{}).
			Where("id = ?", inv.PresentationID).
			Update("total_invested", gorm.Expr("total_invested + ?", delta)).Error; err != nil {
			return fmt.Errorf("update aggregates: %w", err)
		}

		res = ChangeResult{NewBalance: user.Balance - delta, NewAmount: newAmount}
		return nil
	})
	if err != nil {
		return ChangeResult{}, err
	}
	return res, nil
}

// ForceInvest debits amount from every eligible account (non-operator,
// non-banned, sufficient balance) into the target pitch. Existing
// investments are augmented, not replaced. Each account runs in its own
// transaction: one failure does not roll back the rest of the batch.
func (s *Service) ForceInvest(presentationID uint, amount int64) (ForceResult, error) {
	if amount <= 0 {
		return ForceResult{}, ErrInvalidAmount
	}

	var pitch models.Presentation
	if err := s.db.First(&pitch, presentationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ForceResult{}, ErrNotFound
		}
		return ForceResult{}, fmt.Errorf("load presentation: %w", err)
	}

	var userIDs []uint
	if err := s.db.Model(&models.User{}).
		Where("account_type <> ? AND is_banned = ?", models.RoleOperator, false).
		Pluck("id", &userIDs).Error; err != nil {
		return ForceResult{}, fmt.Errorf("list accounts: %w", err)
	}

	var res ForceResult
	for _, id := range userIDs {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var user models.User
			if err := tx.First(&user, id).Error; err != nil {
				return fmt.Errorf("load user: %w", err)
			}
			if user.Balance < amount {
				return ErrInsufficientFunds
			}

			var inv models.Investment
			err := tx.Where("user_id = ? AND presentation_id = ?", id, presentationID).
				First(&inv).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				inv = models.Investment{
					UserID:         id,
					PresentationID: presentationID,
					Amount:         amount,
				}
				if err := tx.Create(&inv).Error; err != nil {
					return fmt.Errorf("create investment: %w", err)
				}
				if err := tx.Model(&models.Presentation{}).
					Where("id = ?", presentationID).
					Update("investor_count", gorm.Expr("investor_count + 1")).Error; err != nil {
					return fmt.Errorf("update investor count: %w", err)
				}
			case err != nil:
				return fmt.Errorf("load investment: %w", err)
			default:
				if err := tx.Model(&inv).
					Update("amount", gorm.Expr("amount + ?", amount)).Error; err != nil {
					return fmt.Errorf("augment investment: %w", err)
				}
			}

			if err := tx.Model(&user).
				Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
				return fmt.Errorf("debit balance: %w", err)
			}
			if err := tx.Model(&models.Presentation{}).
				Where("id = ?", presentationID).
				Update("total_invested", gorm.Expr("total_invested + ?", amount)).Error; err != nil {
				return fmt.Errorf("update total: %w", err)
			}
			return nil
		})
		if err != nil {
			res.Skipped++
			continue
		}
		res.Affected++
	}
	return res, nil
}

// RefundAndPurge refunds every active investment on a pitch to its owner
// and deletes the pitch. The whole teardown is one transaction.
func (s *Service) RefundAndPurge(presentationID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return refundAndPurge(tx, presentationID)
	})
}

func refundAndPurge(tx *gorm.DB, presentationID uint) error {
	var pitch models.Presentation
	if err := tx.First(&pitch, presentationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load presentation: %w", err)
	}

	var investments []models.Investment
	if err := tx.Where("presentation_id = ?", presentationID).
		Find(&investments).Error; err != nil {
		return fmt.Errorf("list investments: %w", err)
	}

	for _, inv := range investments {
		if err := tx.Model(&models.User{}).
			Where("id = ?", inv.UserID).
			Update("balance", gorm.Expr("balance + ?", inv.Amount)).Error; err != nil {
			return fmt.Errorf("refund user %d: %w", inv.UserID, err)
		}
	}
	if err := tx.Where("presentation_id = ?", presentationID).
		Delete(&models.Investment{}).Error; err != nil {
		return fmt.Errorf("delete investments: %w", err)
	}
	if err := tx.Delete(&pitch).Error; err != nil {
		return fmt.Errorf("delete presentation: %w", err)
	}
	return nil
}

// unwindAccount refunds all of a user's investments (fixing pitch
// aggregates), tears down every pitch they own and revokes their sessions.
// Shared by ban and delete.
func unwindAccount(tx *gorm.DB, userID uint) error {
	var investments []models.Investment
	if err := tx.Where("user_id = ?", userID).Find(&investments).Error; err != nil {
		return fmt.Errorf("list investments: %w", err)
	}
	for _, inv := range investments {
		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", inv.Amount)).Error; err != nil {
			return fmt.Errorf("refund investment %d: %w", inv.ID, err)
		}
		if err := tx.Model(&models.Presentation{}).
			Where("id = ?", inv.PresentationID).
			Updates(map[string]interface{}{
				"total_invested": gorm.Expr("total_invested - ?", inv.Amount),
				"investor_count": gorm.Expr("investor_count - 1"),
			}).Error; err != nil {
			return fmt.Errorf("update aggregates: %w", err)
		}
	}
	if err := tx.Where("user_id = ?", userID).
		Delete(&models.Investment{}).Error; err != nil {
		return fmt.Errorf("delete investments: %w", err)
	}

	var pitchIDs []uint
	if err := tx.Model(&models.Presentation{}).
		Where("user_id = ?", userID).
		Pluck("id", &pitchIDs).Error; err != nil {
		return fmt.Errorf("list pitches: %w", err)
	}
	for _, id := range pitchIDs {
		if err := refundAndPurge(tx, id); err != nil {
			return fmt.Errorf("purge pitch %d: %w", id, err)
		}
	}

	if err := tx.Model(&models.Session{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error; err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// BanAccount refunds the user's investments, deletes their pitches
// (refunding those investors too), revokes their sessions and sets the ban
// flag. The account row stays so it can be unbanned later.
func (s *Service) BanAccount(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		if user.IsBanned {
			return ErrAlreadyBanned
		}
		if err := unwindAccount(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(&user).Update("is_banned", true).Error; err != nil {
			return fmt.Errorf("set ban flag: %w", err)
		}
		return nil
	})
}

// UnbanAccount clears the ban flag only; nothing is restored.
func (s *Service) UnbanAccount(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		if !user.IsBanned {
			return ErrNotBanned
		}
		if err := tx.Model(&user).Update("is_banned", false).Error; err != nil {
			return fmt.Errorf("clear ban flag: %w", err)
		}
		return nil
	})
}

// DeleteAccount performs the same unwind as a ban, then removes the user
// row entirely.
func (s *Service) DeleteAccount(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		if err := unwindAccount(tx, userID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
