package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type investReq struct {
	PresentationID uint   `form:"presentation_id" binding:"required"`
	Amount         int64  `form:"amount" binding:"required"`
	Comment        string `form:"comment" binding:"max=255"`
}

type changeInvestmentReq struct {
	InvestmentID uint  `form:"investment_id" binding:"required"`
	NewAmount    int64 `form:"new_amount"`
}

type forceInvestReq struct {
	PresentationID uint  `form:"presentation_id" binding:"required"`
	Amount         int64 `form:"amount" binding:"required"`
}

// Invest places a first-time investment in a pitch.
func (h *Handler) Invest(c *gin.Context) {
	user := h.requireUser(c)
	if user == nil {
		return
	}

	var req investReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Please enter a valid amount")
		return
	}
	if err := util.ValidateAmount(req.Amount); err != nil {
		util.Error(c, http.StatusBadRequest, "Please enter a valid amount")
		return
	}

	newBalance, err := h.Ledger.Invest(user.ID, req.PresentationID, req.Amount, strings.TrimSpace(req.Comment))
	if err != nil {
		h.ledgerError(c, err)
		return
	}

	h.Log.Info("investment placed",
		zap.Uint("user_id", user.ID),
		zap.Uint("presentation_id", req.PresentationID),
		zap.Int64("amount", req.Amount))

	util.Success(c, util.Response{"new_balance": newBalance})
}

// ChangeInvestment amends or removes an existing investment. A new amount
// of zero removes it and refunds in full.
func (h *Handler) ChangeInvestment(c *gin.Context) {
	user := h.requireUser(c)
	if user == nil {
		return
	}

	var req changeInvestmentReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "investment_id is required")
		return
	}
	// same ceiling as a first-time invest; zero and below mean removal
	if req.NewAmount > 0 {
		if err := util.ValidateAmount(req.NewAmount); err != nil {
			util.Error(c, http.StatusBadRequest, "Please enter a valid amount")
			return
		}
	}

	res, err := h.Ledger.ChangeInvestment(user.ID, req.InvestmentID, req.NewAmount)
	if err != nil {
		h.ledgerError(c, err)
		return
	}

	h.Log.Info("investment changed",
		zap.Uint("user_id", user.ID),
		zap.Uint("investment_id", req.InvestmentID),
		zap.Int64("new_amount", res.NewAmount),
		zap.Bool("removed", res.Removed))

	util.Success(c, util.Response{
		"new_balance": res.NewBalance,
		"new_amount":  res.NewAmount,
		"removed":     res.Removed,
	})
}

// ForceInvest debits a fixed amount from every eligible account into one
// pitch. Operator only; accounts that cannot afford it are skipped.
func (h *Handler) ForceInvest(c *gin.Context) {
	user := h.requireOperator(c)
	if user == nil {
		return
	}

	var req forceInvestReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "presentation_id and amount are required")
		return
	}
	if req.Amount < h.Cfg.Game.MinForceInvest {
		util.Error(c, http.StatusBadRequest,
			fmt.Sprintf("Amount must be at least %d", h.Cfg.Game.MinForceInvest))
		return
	}

	res, err := h.Ledger.ForceInvest(req.PresentationID, req.Amount)
	if err != nil {
		h.ledgerError(c, err)
		return
	}

	h.Log.Info("force invest",
		zap.Uint("operator_id", user.ID),
		zap.Uint("presentation_id", req.PresentationID),
		zap.Int64("amount", req.Amount),
		zap.Int("affected", res.Affected),
		zap.Int("skipped", res.Skipped))

	util.Success(c, util.Response{
		"message": fmt.Sprintf("Force investment complete: %d accounts invested, %d skipped",
			res.Affected, res.Skipped),
	})
}

type myInvestmentRow struct {
	ID                uint      `json:"id"`
	PresentationID    uint      `json:"presentation_id"`
	PresentationTitle string    `json:"presentation_title"`
	Amount            int64     `json:"amount"`
	Comment           string    `json:"comment"`
	CreatedAt         time.Time `json:"created_at"`
}

// GetMyInvestments lists the caller's active investments with pitch titles.
func (h *Handler) GetMyInvestments(c *gin.Context) {
	user := h.requireUser(c)
	if user == nil {
		return
	}

	rows := []myInvestmentRow{}
	if err := h.DB.Model(&models.Investment{}).
		Select("investments.id, investments.presentation_id, "+
			"presentations.title AS presentation_title, investments.amount, "+
			"investments.comment, investments.created_at").
		Joins("JOIN presentations ON presentations.id = investments.presentation_id").
		Where("investments.user_id = ?", user.ID).
		Order("investments.created_at DESC").
		Scan(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to load investments")
		return
	}

	util.Success(c, util.Response{"investments": rows})
}
