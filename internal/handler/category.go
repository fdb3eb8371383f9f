package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"eel-pool/internal/models"
	"eel-pool/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createCategoryReq struct {
	Name           string `form:"name" binding:"required,max=64"`
	Description    string `form:"description" binding:"max=255"`
	MaxFundingGoal *int64 `form:"max_funding_goal"`
}

type deleteCategoryReq struct {
	CategoryID uint `form:"category_id" binding:"required"`
}

type categoryRow struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	TeacherID      *uint     `json:"teacher_id"`
	TeacherName    *string   `json:"teacher_name"`
	MaxFundingGoal *int64    `json:"max_funding_goal"`
	IsSystem       bool      `json:"is_system"`
	PitchCount     int       `json:"pitch_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetCategories lists every category with its owner name and pitch count.
// Public.
func (h *Handler) GetCategories(c *gin.Context) {
	rows := []categoryRow{}
	if err := h.DB.Model(&models.Category{}).
		Select("categories.id, categories.name, categories.description, " +
			"categories.teacher_id, users.username AS teacher_name, " +
			"categories.max_funding_goal, categories.is_system, " +
			"COUNT(presentations.id) AS pitch_count, categories.created_at").
		Joins("LEFT JOIN users ON users.id = categories.teacher_id").
		Joins("LEFT JOIN presentations ON presentations.category_id = categories.id").
		Group("categories.id").
		Order("categories.is_system DESC, categories.name").
		Scan(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to load categories")
		return
	}

	util.Success(c, util.Response{"categories": rows})
}

// CreateCategory adds a category owned by the calling teacher or operator.
func (h *Handler) CreateCategory(c *gin.Context) {
	user := h.requireUser(c)
	if user == nil {
		return
	}
	if user.AccountType != models.RoleTeacher && user.AccountType != models.RoleOperator {
		util.Error(c, http.StatusForbidden, "Access denied. Teachers and operators only.")
		return
	}

	var req createCategoryReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Category name is required")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.Error(c, http.StatusBadRequest, "Category name is required")
		return
	}
	if req.MaxFundingGoal != nil {
		if err := util.ValidateAmount(*req.MaxFundingGoal); err != nil {
			util.Error(c, http.StatusBadRequest, "Invalid maximum funding goal")
			return
		}
	}

	var count int64
	if err := h.DB.Model(&models.Category{}).
		Where("LOWER(name) = LOWER(?)", req.Name).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to check category name")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, "A category with this name already exists")
		return
	}

	cat := models.Category{
		Name:           req.Name,
		Description:    strings.TrimSpace(req.Description),
		TeacherID:      &user.ID,
		MaxFundingGoal: req.MaxFundingGoal,
	}
	if err := h.DB.Create(&cat).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to create category")
		return
	}

	util.Success(c, util.Response{"category_id": cat.ID})
}

// DeleteCategory removes a category; its pitches move to no-category.
// System categories are protected. Owning teacher or any operator.
func (h *Handler) DeleteCategory(c *gin.Context) {
	user := h.requireUser(c)
	if user == nil {
		return
	}

	var req deleteCategoryReq
	if err := c.ShouldBind(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "category_id is required")
		return
	}

	var cat models.Category
	if err := h.DB.First(&cat, req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "Category not found")
		} else {
			util.Error(c, http.StatusInternalServerError, "Failed to load category")
		}
		return
	}
	if cat.IsSystem {
		util.Error(c, http.StatusForbidden, "System categories cannot be deleted")
		return
	}
	isOwner := cat.TeacherID != nil && *cat.TeacherID == user.ID
	if !isOwner && user.AccountType != models.RoleOperator {
		util.Error(c, http.StatusForbidden, "You can only delete your own categories")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Presentation{}).
			Where("category_id = ?", cat.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&cat).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, "Failed to delete category")
		return
	}

	util.Success(c, util.Response{})
}
