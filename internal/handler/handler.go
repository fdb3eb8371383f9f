// Package handler implements the action endpoint. The client sends
// form-encoded POSTs with an "action" field; each action binds its own
// typed request struct and answers with a {success, ...} JSON body.
package handler

import (
	"errors"
	"net/http"

	"eel-pool/internal/config"
	"eel-pool/internal/ledger"
	"eel-pool/internal/middleware"
	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler serves every action on the endpoint.
type Handler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Ledger *ledger.Service
	Log    *zap.Logger

	actions map[string]gin.HandlerFunc
}

// New wires the handler and its action table.
func New(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Handler {
	h := &Handler{
		DB:     db,
		Cfg:    cfg,
		Ledger: ledger.New(db),
		Log:    log,
	}
	h.actions = map[string]gin.HandlerFunc{
		"signup":      h.Signup,
		"login":       h.Login,
		"logout":      h.Logout,
		"get_session": h.GetSession,

		"get_presentations":   h.GetPresentations,
		"create_presentation": h.CreatePresentation,
		"delete_presentation": h.DeletePresentation,
		"get_comments":        h.GetComments,

		"invest":             h.Invest,
		"change_investment":  h.ChangeInvestment,
		"force_invest":       h.ForceInvest,
		"get_my_investments": h.GetMyInvestments,

		"get_categories":  h.GetCategories,
		"create_category": h.CreateCategory,
		"delete_category": h.DeleteCategory,

		"get_all_users":       h.GetAllUsers,
		"update_account_type": h.UpdateAccountType,
		"update_balance":      h.UpdateBalance,
		"delete_user":         h.DeleteUser,
		"ban_user":            h.BanUser,
		"unban_user":          h.UnbanUser,
	}
	return h
}

// Dispatch routes a request to its action handler.
func (h *Handler) Dispatch(c *gin.Context) {
	action := c.PostForm("action")
	fn, ok := h.actions[action]
	if !ok {
		util.Error(c, http.StatusBadRequest, "Unknown action")
		return
	}
	fn(c)
}

// requireUser returns the logged-in user or writes a 401.
func (h *Handler) requireUser(c *gin.Context) *models.User {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, "Not logged in")
	}
	return user
}

// requireOperator returns the logged-in operator or writes an error.
func (h *Handler) requireOperator(c *gin.Context) *models.User {
	user := h.requireUser(c)
	if user == nil {
		return nil
	}
	if user.AccountType != models.RoleOperator {
		util.Error(c, http.StatusForbidden, "Access denied. Operators only.")
		return nil
	}
	return user
}

// ledgerError maps ledger sentinel errors onto the wire.
func (h *Handler) ledgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		util.Error(c, http.StatusBadRequest, "Please enter a valid amount")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		util.Error(c, http.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, ledger.ErrAlreadyInvested):
		util.Error(c, http.StatusBadRequest, "You already invested in this pitch. Edit it under My Investments.")
	case errors.Is(err, ledger.ErrUnchanged):
		util.Error(c, http.StatusBadRequest, "Amount is the same. No changes made.")
	case errors.Is(err, ledger.ErrNotFound):
		util.Error(c, http.StatusNotFound, "Not found")
	case errors.Is(err, ledger.ErrForbidden):
		util.Error(c, http.StatusForbidden, "Not allowed")
	case errors.Is(err, ledger.ErrAlreadyBanned):
		util.Error(c, http.StatusBadRequest, "User is already banned")
	case errors.Is(err, ledger.ErrNotBanned):
		util.Error(c, http.StatusBadRequest, "User is not banned")
	case errors.Is(err, ledger.ErrBanned):
		util.Error(c, http.StatusForbidden, "Account is banned")
	default:
		h.Log.Error("ledger operation failed", zap.Error(err))
		util.Error(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
