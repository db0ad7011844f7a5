package app

import (
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/model"
	"ai_course_backend/internal/service"
	"ai_course_backend/internal/testutil"
	"ai_course_backend/internal/util"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testSecret = "test-secret-which-is-long-enough-for-hs256"

func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppWithDB(t, testutil.NewTestDB(t))
}

func newTestAppWithDB(t *testing.T, db *gorm.DB) *App {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", Mode: "test"},
		JWT:     config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		AI:      config.AIConfig{Provider: "gemini"},
		Generation: config.GenerationConfig{
			RetryAttempts: 1,
			NewlineMarker: "<br>",
		},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1, GenerateMaxRequests: 100},
	}

	app, err := build(cfg, db, nil)
	require.NoError(t, err)
	return app
}

// fixedGenerator 每次返回同一段文本
type fixedGenerator struct{ text string }

func (fixedGenerator) Provider() string { return "fixed" }

func (g fixedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.text, nil
}

func (a *App) useGenerator(gen service.TextGenerator) {
	a.services.course.AI = service.NewAIService(gen, a.services.settings)
}

func (a *App) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		token, err := util.GenerateJWT(email, "Tester", testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateUserTwice(t *testing.T) {
	app := newTestApp(t)
	body := map[string]string{"email": "a@x.com", "name": "A"}

	w := app.do(t, http.MethodPost, "/api/user", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodPost, "/api/user", "", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User already exists", decodeBody(t, w)["message"])

	var count int64
	require.NoError(t, app.DB.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateUserRejectsInvalidEmail(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/user", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollRequiresToken(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/enroll-course", "", map[string]string{"courseId": "abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnrollTwice(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/enroll-course", "u@x.com", map[string]string{"courseId": "abc"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, []any{}, data["completedChapters"])

	w = app.do(t, http.MethodPost, "/api/enroll-course", "u@x.com", map[string]string{"courseId": "abc"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Already enrolled", decodeBody(t, w)["message"])

	var count int64
	require.NoError(t, app.DB.Model(&model.Enrollment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGenerateLayoutWithoutAIKey(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/generate-layout-ai", "u@x.com", map[string]any{
		"name":    "Go",
		"chapter": 2,
		"level":   "Beginner",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, util.CodeAINotConfigured, body["code"])
}

func TestGenerateLayoutValidatesChapterCount(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/generate-layout-ai", "u@x.com", map[string]any{
		"name":    "Go",
		"chapter": 21,
		"level":   "Beginner",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCourseByIDNotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/courses?courseId=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodGet, "/api/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateLayoutUnsyncedUser(t *testing.T) {
	app := newTestAppWithDB(t, testutil.NewTestDBWithForeignKeys(t))
	app.useGenerator(fixedGenerator{text: `{"course":{"name":"Go","level":"Beginner","chapters":[{"chapterName":"Intro","topics":["Setup"]}]}}`})

	w := app.do(t, http.MethodPost, "/api/generate-layout-ai", "ghost@x.com", map[string]any{
		"name":    "Go",
		"chapter": 1,
		"level":   "Beginner",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, util.CodeUserNotFound, body["code"])
}

func TestEnrollUnsyncedUser(t *testing.T) {
	app := newTestAppWithDB(t, testutil.NewTestDBWithForeignKeys(t))
	require.NoError(t, app.DB.Create(&model.User{Name: "Owner", Email: "owner@x.com"}).Error)
	require.NoError(t, app.DB.Create(&model.Course{
		Cid: "c1", Name: "Go", Level: "Beginner", ChapterCount: 1, OwnerEmail: "owner@x.com",
		CourseOutlineJSON: datatypes.JSON(`{"course":{}}`), Status: model.CourseCreated,
	}).Error)

	w := app.do(t, http.MethodPost, "/api/enroll-course", "newcomer@x.com", map[string]string{"courseId": "c1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.ErrUserNotFound.Error(), decodeBody(t, w)["message"])

	w = app.do(t, http.MethodPost, "/api/enroll-course", "owner@x.com", map[string]string{"courseId": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.ErrCourseNotFound.Error(), decodeBody(t, w)["message"])
}

func TestGenerateContentAllChaptersFailed(t *testing.T) {
	app := newTestApp(t)
	app.useGenerator(fixedGenerator{text: "no json here"})
	require.NoError(t, app.DB.Create(&model.Course{
		Cid: "c1", Name: "Go", Level: "Beginner", ChapterCount: 1, OwnerEmail: "u@x.com",
		CourseOutlineJSON: datatypes.JSON(`{"course":{}}`), Status: model.CourseCreated,
	}).Error)

	w := app.do(t, http.MethodPost, "/api/generate-content", "u@x.com", map[string]any{
		"courseId": "c1",
		"chapters": []map[string]any{{"chapterName": "Intro", "topics": []string{"Setup"}}},
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 1, body["failedChapters"])

	var course model.Course
	require.NoError(t, app.DB.Where("cid = ?", "c1").First(&course).Error)
	assert.Equal(t, model.CourseCreated, course.Status)
	assert.False(t, course.HasContent())
}
