package handler

import (
	"errors"
	"net/http"

	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userIDReq struct {
	UserID uint `form:"user_id" binding:"required"`
}

type updateAccountTypeReq struct {
	UserID      uint   `form:"user_id" binding:"required"`
	AccountType string `form:"account_type" binding:"required"`
}

type updateBalanceReq struct {
	UserID  uint   `form:"user_id" binding:"required"`
	Balance *int64 `form:"balance" binding:"required"`
}

type adminUserRow struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
	Balance     int64  `json:"balance"`
	IsBanned    bool   `json:"is_banned"`
}

// loadTarget fetches the user an admin action refers to.
func (h *Handler) loadTarget(c *gin.Context, id uint) *models.User {
	var target models.User
	if err := h.DB.First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "User not found")
		} else {
			util.Error(c, http.StatusInternalServerError, "Failed to load user")
		}
		return nil
	}
	return &target
}

// GetAllUsers lists every account for the admin panel.
func (h *Handler) GetAllUsers(c *gin.Context) {
	if h.requireOperator(c) == nil {
		return
	}

	rows := []adminUserRow{}
	if err := h.DB.Model(&models.User{}).
		Select("id, username, account_type, balance, is_banned").
		Order("username").
		Scan(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to load users")
		return
	}

	util.Success(c, util.Response{"users": rows})
}

// UpdateAccountType changes a user's role. Operators cannot change their
// own role (the panel disables it; re-checked here).
func (h *Handler) UpdateAccountType(c *gin.Context) {
	op := h.requireOperator(c)
	if op == nil {
		return
	}

	var req updateAccountTypeReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "user_id and account_type are required")
		return
	}
	if !models.ValidRole(req.AccountType) {
		util.Error(c, http.StatusBadRequest, "Invalid account type")
		return
	}
	if req.UserID == op.ID {
		util.Error(c, http.StatusBadRequest, "You cannot change your own role")
		return
	}

	target := h.loadTarget(c, req.UserID)
	if target == nil {
		return
	}

	if err := h.DB.Model(target).Update("account_type", req.AccountType).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to update account type")
		return
	}

	h.Log.Info("account type updated",
		zap.Uint("operator_id", op.ID),
		zap.Uint("user_id", req.UserID),
		zap.String("account_type", req.AccountType))

	util.Success(c, util.Response{})
}

// UpdateBalance sets a user's balance outright. This is the one sanctioned
// way money enters or leaves the game from outside the ledger.
func (h *Handler) UpdateBalance(c *gin.Context) {
	op := h.requireOperator(c)
	if op == nil {
		return
	}

	var req updateBalanceReq
	if err := c.ShouldBind(&req); err != nil || req.Balance == nil {
		util.Error(c, http.StatusBadRequest, "user_id and balance are required")
		return
	}
	if *req.Balance < 0 {
		util.Error(c, http.StatusBadRequest, "Balance cannot be negative")
		return
	}

	target := h.loadTarget(c, req.UserID)
	if target == nil {
		return
	}
	if target.IsBanned {
		util.Error(c, http.StatusBadRequest, "Cannot edit a banned account")
		return
	}

	if err := h.DB.Model(target).Update("balance", *req.Balance).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to update balance")
		return
	}

	h.Log.Info("balance updated",
		zap.Uint("operator_id", op.ID),
		zap.Uint("user_id", req.UserID),
		zap.Int64("balance", *req.Balance))

	util.Success(c, util.Response{})
}

// DeleteUser refunds the user's investments, tears down their pitches and
// removes the account.
func (h *Handler) DeleteUser(c *gin.Context) {
	op := h.requireOperator(c)
	if op == nil {
		return
	}

	var req userIDReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.UserID == op.ID {
		util.Error(c, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	if err := h.Ledger.DeleteAccount(req.UserID); err != nil {
		h.ledgerError(c, err)
		return
	}

	h.Log.Info("user deleted",
		zap.Uint("operator_id", op.ID),
		zap.Uint("user_id", req.UserID))

	util.Success(c, util.Response{})
}

// BanUser unwinds the user's ledger state and sets the ban flag.
func (h *Handler) BanUser(c *gin.Context) {
	op := h.requireOperator(c)
	if op == nil {
		return
	}

	var req userIDReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.UserID == op.ID {
		util.Error(c, http.StatusBadRequest, "You cannot ban your own account")
		return
	}

	if err := h.Ledger.BanAccount(req.UserID); err != nil {
		h.ledgerError(c, err)
		return
	}

	h.Log.Info("user banned",
		zap.Uint("operator_id", op.ID),
		zap.Uint("user_id", req.UserID))

	util.Success(c, util.Response{})
}

// UnbanUser clears the ban flag.
func (h *Handler) UnbanUser(c *gin.Context) {
	op := h.requireOperator(c)
	if op == nil {
		return
	}

	var req userIDReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.Ledger.UnbanAccount(req.UserID); err != nil {
		h.ledgerError(c, err)
		return
	}

	h.Log.Info("user unbanned",
		zap.Uint("operator_id", op.ID),
		zap.Uint("user_id", req.UserID))

	util.Success(c, util.Response{})
}
