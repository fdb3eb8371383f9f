package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createPresentationReq struct {
	Title       string `form:"title" binding:"required,max=128"`
	Description string `form:"description" binding:"required"`
	Goal        int64  `form:"goal" binding:"required"`
	CategoryID  *uint  `form:"category_id"`
}

type deletePresentationReq struct {
	PresentationID uint `form:"presentation_id" binding:"required"`
}

type getPresentationsReq struct {
	CategoryID *uint `form:"category_id"`
}

type getCommentsReq struct {
	PresentationID uint `form:"presentation_id" binding:"required"`
}

type presentationRow struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	FundingGoal   int64     `json:"funding_goal"`
	CategoryID    *uint     `json:"category_id"`
	CategoryName  *string   `json:"category_name"`
	PresenterName string    `json:"presenter_name"`
	TotalInvested int64     `json:"total_invested"`
	InvestorCount int       `json:"investor_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// GetPresentations lists every pitch, newest first, with presenter and
// category names resolved. Public.
func (h *Handler) GetPresentations(c *gin.Context) {
	var req getPresentationsReq
	_ = c.ShouldBind(&req)

	q := h.DB.Model(&models.Presentation{}).
		Select("presentations.id, presentations.user_id, presentations.title, " +
			"presentations.description, presentations.funding_goal, " +
			"presentations.category_id, categories.name AS category_name, " +
			"users.username AS presenter_name, presentations.total_invested, " +
			"presentations.investor_count, presentations.created_at").
		Joins("JOIN users ON users.id = presentations.user_id").
		Joins("LEFT JOIN categories ON categories.id = presentations.category_id").
		Order("presentations.created_at DESC")
	if req.CategoryID != nil {
		q = q.Where("presentations.category_id = ?", *req.CategoryID)
	}

	rows := []presentationRow{}
	if err := q.Scan(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to load presentations")
		return
	}

	util.Success(c, util.Response{"presentations": rows})
}

// CreatePresentation files a new pitch. The minimum funding goal and the
// category cap are re-checked here; the client checks are not a boundary.
func (h *Handler) CreatePresentation(c *gin.Context) {
	user := h.requireUser(c)
	if user == nil {
		return
	}

	var req createPresentationReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Title, description and goal are required")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		util.Error(c, http.StatusBadRequest, "Title and description are required")
		return
	}
	if req.Goal < h.Cfg.Game.MinFundingGoal {
		util.Error(c, http.StatusBadRequest,
			fmt.Sprintf("Funding goal must be at least %d", h.Cfg.Game.MinFundingGoal))
		return
	}
	if err := util.ValidateAmount(req.Goal); err != nil {
		util.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.CategoryID != nil {
		var cat models.Category
		if err := h.DB.First(&cat, *req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Error(c, http.StatusBadRequest, "Category does not exist")
			} else {
				util.Error(c, http.StatusInternalServerError, "Failed to load category")
			}
			return
		}
		if cat.MaxFundingGoal != nil && req.Goal > *cat.MaxFundingGoal {
			util.Error(c, http.StatusBadRequest,
				fmt.Sprintf("Funding goal exceeds the maximum for this category (%d)", *cat.MaxFundingGoal))
			return
		}
	}

	pitch := models.Presentation{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		FundingGoal: req.Goal,
		CategoryID:  req.CategoryID,
	}
	if err := h.DB.Create(&pitch).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to create presentation")
		return
	}

	h.Log.Info("presentation created",
		zap.Uint("id", pitch.ID),
		zap.Uint("user_id", user.ID),
		zap.Int64("goal", pitch.FundingGoal))

	util.Success(c, util.Response{"presentation_id": pitch.ID})
}

// DeletePresentation removes a pitch after refunding every investor.
// Allowed for the owner and for operators.
func (h *Handler) DeletePresentation(c *gin.Context) {
	user := h.requireUser(c)
	if user == nil {
		return
	}

	var req deletePresentationReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "presentation_id is required")
		return
	}

	var pitch models.Presentation
	if err := h.DB.First(&pitch, req.PresentationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "Presentation not found")
		} else {
			util.Error(c, http.StatusInternalServerError, "Failed to load presentation")
		}
		return
	}
	if pitch.UserID != user.ID && user.AccountType != models.RoleOperator {
		util.Error(c, http.StatusForbidden, "You can only delete your own presentations")
		return
	}

	if err := h.Ledger.RefundAndPurge(pitch.ID); err != nil {
		h.ledgerError(c, err)
		return
	}

	h.Log.Info("presentation deleted",
		zap.Uint("id", pitch.ID),
		zap.Uint("by", user.ID))

	util.Success(c, util.Response{})
}

type commentRow struct {
	Amount  int64  `json:"amount"`
	Comment string `json:"comment"`
}

// GetComments returns the non-empty investment comments for a pitch,
// anonymized to amount + text. Public.
func (h *Handler) GetComments(c *gin.Context) {
	var req getCommentsReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "presentation_id is required")
		return
	}

	rows := []commentRow{}
	if err := h.DB.Model(&models.Investment{}).
		Select("amount, comment").
		Where("presentation_id = ? AND comment <> ''", req.PresentationID).
		Order("created_at DESC").
		Scan(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to load comments")
		return
	}

	util.Success(c, util.Response{"comments": rows})
}
