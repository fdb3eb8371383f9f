package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"eel-pool/internal/config"
	"eel-pool/internal/middleware"
	"eel-pool/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Presentation{},
		&models.Investment{},
		&models.Session{},
		&models.AuditLog{},
	))

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Game: config.GameConfig{
			StartingBalance:  10000,
			MinFundingGoal:   1000,
			MinForceInvest:   1000,
			TeacherPassword:  "teach-pass",
			OperatorPassword: "op-pass",
		},
	}

	h := New(db, cfg, zap.NewNop())

	r := gin.New()
	r.POST("/api",
		middleware.OptionalAuth(cfg.JWT.Secret, db),
		middleware.Audit(db),
		h.Dispatch,
	)
	return r, db
}

// post sends a form-encoded action request, optionally with a session
// cookie, and decodes the JSON response.
func post(t *testing.T, r *gin.Engine, cookie string, form url.Values) (int, map[string]interface{}, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	var setCookie string
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			setCookie = c.Name + "=" + c.Value
		}
	}
	return w.Code, body, setCookie
}

func signup(t *testing.T, r *gin.Engine, username string, extra url.Values) string {
	t.Helper()
	form := url.Values{
		"action":   {"signup"},
		"username": {username},
		"password": {"secret123"},
	}
	for k, vs := range extra {
		form[k] = vs
	}
	code, body, cookie := post(t, r, "", form)
	require.Equal(t, http.StatusOK, code, "signup failed: %v", body)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, cookie)
	return cookie
}

func TestUnknownAction(t *testing.T) {
	r, _ := newTestServer(t)
	code, body, _ := post(t, r, "", url.Values{"action": {"nonsense"}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
}

func TestSessionLifecycle(t *testing.T) {
	r, _ := newTestServer(t)

	// anonymous session check
	code, body, _ := post(t, r, "", url.Values{"action": {"get_session"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["logged_in"])

	cookie := signup(t, r, "alice", nil)

	code, body, _ = post(t, r, cookie, url.Values{"action": {"get_session"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["logged_in"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "student", user["account_type"])
	assert.Equal(t, float64(10000), user["balance"])

	// logout revokes the session server-side
	code, _, _ = post(t, r, cookie, url.Values{"action": {"logout"}})
	assert.Equal(t, http.StatusOK, code)
	code, body, _ = post(t, r, cookie, url.Values{"action": {"get_session"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["logged_in"])
}

func TestSignupRolePasswords(t *testing.T) {
	r, _ := newTestServer(t)

	// teacher without the role password
	code, body, _ := post(t, r, "", url.Values{
		"action":       {"signup"},
		"username":     {"teach"},
		"password":     {"secret123"},
		"account_type": {"teacher"},
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, false, body["success"])

	// with it
	cookie := signup(t, r, "teach", url.Values{
		"account_type":  {"teacher"},
		"role_password": {"teach-pass"},
	})
	_, body, _ = post(t, r, cookie, url.Values{"action": {"get_session"}})
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "teacher", user["account_type"])

	// duplicate username, case-insensitive
	code, body, _ = post(t, r, "", url.Values{
		"action":   {"signup"},
		"username": {"TEACH"},
		"password": {"secret123"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "taken")
}

func TestLoginBannedAccount(t *testing.T) {
	r, db := newTestServer(t)
	signup(t, r, "badkid", nil)
	require.NoError(t, db.Model(&models.User{}).
		Where("username = ?", "badkid").
		Update("is_banned", true).Error)

	code, body, _ := post(t, r, "", url.Values{
		"action":   {"login"},
		"username": {"badkid"},
		"password": {"secret123"},
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, body["message"], "banned")
}

func TestPitchAndInvestFlow(t *testing.T) {
	r, _ := newTestServer(t)

	presenter := signup(t, r, "presenter", nil)
	investor := signup(t, r, "investor", nil)

	// goal below the server-side minimum is rejected
	code, body, _ := post(t, r, presenter, url.Values{
		"action":      {"create_presentation"},
		"title":       {"Tiny"},
		"description": {"too small"},
		"goal":        {"500"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])

	code, body, _ = post(t, r, presenter, url.Values{
		"action":      {"create_presentation"},
		"title":       {"Robot Tutor"},
		"description": {"A robot that tutors"},
		"goal":        {"5000"},
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["success"])

	code, body, _ = post(t, r, investor, url.Values{
		"action":          {"invest"},
		"presentation_id": {"1"},
		"amount":          {"2000"},
		"comment":         {"love it"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(8000), body["new_balance"])

	// anonymous listing shows names and aggregates
	code, body, _ = post(t, r, "", url.Values{"action": {"get_presentations"}})
	require.Equal(t, http.StatusOK, code)
	list := body["presentations"].([]interface{})
	require.Len(t, list, 1)
	row := list[0].(map[string]interface{})
	assert.Equal(t, "presenter", row["presenter_name"])
	assert.Equal(t, float64(2000), row["total_invested"])
	assert.Equal(t, float64(1), row["investor_count"])

	// comments are anonymized
	code, body, _ = post(t, r, "", url.Values{
		"action":          {"get_comments"},
		"presentation_id": {"1"},
	})
	require.Equal(t, http.StatusOK, code)
	comments := body["comments"].([]interface{})
	require.Len(t, comments, 1)
	comment := comments[0].(map[string]interface{})
	assert.Equal(t, "love it", comment["comment"])
	assert.Nil(t, comment["username"])

	// amend down via the listed investment
	code, body, _ = post(t, r, investor, url.Values{"action": {"get_my_investments"}})
	require.Equal(t, http.StatusOK, code)
	invs := body["investments"].([]interface{})
	require.Len(t, invs, 1)

	code, body, _ = post(t, r, investor, url.Values{
		"action":        {"change_investment"},
		"investment_id": {"1"},
		"new_amount":    {"500"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(9500), body["new_balance"])
	assert.Equal(t, false, body["removed"])

	// deleting the pitch refunds the investor
	code, _, _ = post(t, r, presenter, url.Values{
		"action":          {"delete_presentation"},
		"presentation_id": {"1"},
	})
	require.Equal(t, http.StatusOK, code)

	_, body, _ = post(t, r, investor, url.Values{"action": {"get_session"}})
	user := body["user"].(map[string]interface{})
	assert.Equal(t, float64(10000), user["balance"])
}

func TestOperatorOnlyActions(t *testing.T) {
	r, _ := newTestServer(t)

	student := signup(t, r, "student1", nil)

	for _, action := range []string{
		"force_invest", "get_all_users", "update_account_type",
		"update_balance", "delete_user", "ban_user", "unban_user",
	} {
		code, body, _ := post(t, r, student, url.Values{
			"action":          {action},
			"presentation_id": {"1"},
			"amount":          {"1000"},
			"user_id":         {"1"},
			"account_type":    {"teacher"},
			"balance":         {"5000"},
		})
		assert.Equal(t, http.StatusForbidden, code, "action %s must be operator-only", action)
		assert.Equal(t, false, body["success"])
	}

	// and anonymous callers get a 401
	code, _, _ := post(t, r, "", url.Values{"action": {"force_invest"}})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestForceInvestEndToEnd(t *testing.T) {
	r, db := newTestServer(t)

	presenter := signup(t, r, "presenter", nil)
	signup(t, r, "poorkid", nil)
	op := signup(t, r, "boss", url.Values{
		"account_type":  {"operator"},
		"role_password": {"op-pass"},
	})

	require.NoError(t, db.Model(&models.User{}).
		Where("username = ?", "poorkid").
		Update("balance", 500).Error)

	_, body, _ := post(t, r, presenter, url.Values{
		"action":      {"create_presentation"},
		"title":       {"Big Idea"},
		"description": {"huge"},
		"goal":        {"20000"},
	})
	require.Equal(t, true, body["success"])

	// below the minimum
	code, body, _ := post(t, r, op, url.Values{
		"action":          {"force_invest"},
		"presentation_id": {"1"},
		"amount":          {"500"},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body, _ = post(t, r, op, url.Values{
		"action":          {"force_invest"},
		"presentation_id": {"1"},
		"amount":          {"1000"},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body["message"], "1 accounts invested")
	assert.Contains(t, body["message"], "1 skipped")
}

func TestCategoryLifecycle(t *testing.T) {
	r, _ := newTestServer(t)

	teach := signup(t, r, "teach", url.Values{
		"account_type":  {"teacher"},
		"role_password": {"teach-pass"},
	})
	student := signup(t, r, "student1", nil)

	// students cannot create categories
	code, body, _ := post(t, r, student, url.Values{
		"action": {"create_category"},
		"name":   {"Nope"},
	})
	assert.Equal(t, http.StatusForbidden, code)

	// teacher creates a capped category
	code, body, _ = post(t, r, teach, url.Values{
		"action":           {"create_category"},
		"name":             {"Robotics"},
		"description":      {"Hardware projects"},
		"max_funding_goal": {"5000"},
	})
	require.Equal(t, http.StatusOK, code, "create_category failed: %v", body)
	catID := fmt.Sprintf("%.0f", body["category_id"].(float64))

	// duplicate name, case-insensitive
	code, body, _ = post(t, r, teach, url.Values{
		"action": {"create_category"},
		"name":   {"ROBOTICS"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "already exists")

	// listing resolves the owner name and the cap
	code, body, _ = post(t, r, "", url.Values{"action": {"get_categories"}})
	require.Equal(t, http.StatusOK, code)
	cats := body["categories"].([]interface{})
	require.Len(t, cats, 1)
	cat := cats[0].(map[string]interface{})
	assert.Equal(t, "Robotics", cat["name"])
	assert.Equal(t, "teach", cat["teacher_name"])
	assert.Equal(t, float64(5000), cat["max_funding_goal"])
	assert.Equal(t, float64(0), cat["pitch_count"])

	// a goal above the category cap is rejected
	code, body, _ = post(t, r, student, url.Values{
		"action":      {"create_presentation"},
		"title":       {"Big Bot"},
		"description": {"over the cap"},
		"goal":        {"6000"},
		"category_id": {catID},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "maximum")

	// at the cap is fine
	code, body, _ = post(t, r, student, url.Values{
		"action":      {"create_presentation"},
		"title":       {"Fit Bot"},
		"description": {"at the cap"},
		"goal":        {"5000"},
		"category_id": {catID},
	})
	require.Equal(t, http.StatusOK, code, "create_presentation failed: %v", body)

	// another teacher cannot delete someone else's category
	other := signup(t, r, "teach2", url.Values{
		"account_type":  {"teacher"},
		"role_password": {"teach-pass"},
	})
	code, _, _ = post(t, r, other, url.Values{
		"action":      {"delete_category"},
		"category_id": {catID},
	})
	assert.Equal(t, http.StatusForbidden, code)

	// the owner can; the pitch moves to no-category and survives
	code, _, _ = post(t, r, teach, url.Values{
		"action":      {"delete_category"},
		"category_id": {catID},
	})
	require.Equal(t, http.StatusOK, code)

	_, body, _ = post(t, r, "", url.Values{"action": {"get_presentations"}})
	list := body["presentations"].([]interface{})
	require.Len(t, list, 1)
	row := list[0].(map[string]interface{})
	assert.Equal(t, "Fit Bot", row["title"])
	assert.Nil(t, row["category_id"])
	assert.Nil(t, row["category_name"])
}

func TestSystemCategoryProtected(t *testing.T) {
	r, db := newTestServer(t)

	op := signup(t, r, "boss", url.Values{
		"account_type":  {"operator"},
		"role_password": {"op-pass"},
	})

	require.NoError(t, db.Create(&models.Category{
		Name:     "Level 1",
		IsSystem: true,
	}).Error)
	var cat models.Category
	require.NoError(t, db.Where("name = ?", "Level 1").First(&cat).Error)

	code, body, _ := post(t, r, op, url.Values{
		"action":      {"delete_category"},
		"category_id": {fmt.Sprintf("%d", cat.ID)},
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, body["message"], "System categories")

	var count int64
	require.NoError(t, db.Model(&models.Category{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestChangeInvestmentCeiling(t *testing.T) {
	r, _ := newTestServer(t)

	presenter := signup(t, r, "presenter", nil)
	investor := signup(t, r, "investor", nil)

	_, body, _ := post(t, r, presenter, url.Values{
		"action":      {"create_presentation"},
		"title":       {"Robot Tutor"},
		"description": {"a robot"},
		"goal":        {"5000"},
	})
	require.Equal(t, true, body["success"])

	code, body, _ := post(t, r, investor, url.Values{
		"action":          {"invest"},
		"presentation_id": {"1"},
		"amount":          {"1000"},
	})
	require.Equal(t, http.StatusOK, code)

	// amendments honor the same ceiling a first invest does
	code, body, _ = post(t, r, investor, url.Values{
		"action":        {"change_investment"},
		"investment_id": {"1"},
		"new_amount":    {"10000000"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "valid amount")

	// the investment is untouched
	_, body, _ = post(t, r, investor, url.Values{"action": {"get_my_investments"}})
	invs := body["investments"].([]interface{})
	require.Len(t, invs, 1)
	assert.Equal(t, float64(1000), invs[0].(map[string]interface{})["amount"])
}

func TestAdminSelfGuards(t *testing.T) {
	r, db := newTestServer(t)

	op := signup(t, r, "boss", url.Values{
		"account_type":  {"operator"},
		"role_password": {"op-pass"},
	})
	var boss models.User
	require.NoError(t, db.Where("username = ?", "boss").First(&boss).Error)
	selfID := fmt.Sprintf("%d", boss.ID)

	code, body, _ := post(t, r, op, url.Values{
		"action":       {"update_account_type"},
		"user_id":      {selfID},
		"account_type": {"student"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "own role")

	code, body, _ = post(t, r, op, url.Values{
		"action":  {"ban_user"},
		"user_id": {selfID},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "own account")

	code, body, _ = post(t, r, op, url.Values{
		"action":  {"delete_user"},
		"user_id": {selfID},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "own account")

	// the account is untouched
	boss = models.User{}
	require.NoError(t, db.Where("username = ?", "boss").First(&boss).Error)
	assert.Equal(t, "operator", boss.AccountType)
	assert.False(t, boss.IsBanned)
}

func TestBanUnbanFlow(t *testing.T) {
	r, db := newTestServer(t)

	signup(t, r, "victim", nil)
	op := signup(t, r, "boss", url.Values{
		"account_type":  {"operator"},
		"role_password": {"op-pass"},
	})

	var victim models.User
	require.NoError(t, db.Where("username = ?", "victim").First(&victim).Error)

	code, _, _ := post(t, r, op, url.Values{
		"action":  {"ban_user"},
		"user_id": {"1"},
	})
	require.Equal(t, http.StatusOK, code)

	// repeat ban conflicts
	code, body, _ := post(t, r, op, url.Values{
		"action":  {"ban_user"},
		"user_id": {"1"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "already banned")

	code, _, _ = post(t, r, op, url.Values{
		"action":  {"unban_user"},
		"user_id": {"1"},
	})
	require.Equal(t, http.StatusOK, code)

	// unban twice conflicts too
	code, body, _ = post(t, r, op, url.Values{
		"action":  {"unban_user"},
		"user_id": {"1"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "not banned")

	// audit rows were written for the mutations
	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	assert.Greater(t, auditCount, int64(0))
}
