package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"inspection-backend/internal/models"
	"inspection-backend/internal/services"
	"inspection-backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeMediaStore подменяет S3 в тестах и запоминает ключи всех операций
type fakeMediaStore struct {
	mu         sync.Mutex
	uploads    []string
	deleted    []string
	failUpload bool
	failDelete bool
}

func (f *fakeMediaStore) Upload(ctx context.Context, body io.Reader, contentType, ext string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return "", "", fmt.Errorf("%w: хранилище недоступно", workflow.ErrUpstream)
	}
	key := fmt.Sprintf("inspections/test/%d%s", len(f.uploads)+1, ext)
	f.uploads = append(f.uploads, key)
	return key, "https://media.test/" + key, nil
}

func (f *fakeMediaStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return fmt.Errorf("%w: хранилище недоступно", workflow.ErrUpstream)
	}
	f.deleted = append(f.deleted, key)
	return nil
}

// fakeEmailSender запоминает отправленные уведомления
type fakeEmailSender struct {
	mu        sync.Mutex
	submitted []uint // ID осмотров, отправленных на проверку
	decisions []uint // ID осмотров, по которым разослано решение
}

func (f *fakeEmailSender) SendInspectionSubmitted(reviewers []models.User, inspection *models.Inspection, vehicle *models.Vehicle, author *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, inspection.ID)
	return nil
}

func (f *fakeEmailSender) SendDecision(author *models.User, inspection *models.Inspection, approval *models.Approval, reviewer *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, inspection.ID)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// :memory: живет в рамках одного соединения
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Inspection{},
		&models.InspectionPhoto{},
		&models.Approval{},
	))

	return db
}

// testEnv собирает роутер с подмененными внешними сервисами. Личность
// запроса передается заголовками вместо JWT middleware.
type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	media  *fakeMediaStore
	email  *fakeEmailSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		db:    setupTestDB(t),
		media: &fakeMediaStore{},
		email: &fakeEmailSender{},
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id, err := strconv.ParseUint(c.GetHeader("X-Test-User"), 10, 32); err == nil {
			c.Set("user_id", uint(id))
		}
		c.Set("role", c.GetHeader("X-Test-Role"))
		c.Next()
	})

	r.POST("/auth/register", AuthRegister(env.db))
	r.POST("/auth/login", AuthLogin(env.db))
	r.GET("/user", GetCurrentUser(env.db))

	r.POST("/vehicles", VehicleCreate(env.db))
	r.GET("/vehicles", VehicleList(env.db))
	r.GET("/vehicles/:id", VehicleGetByID(env.db))
	r.PUT("/vehicles/:id", VehicleUpdate(env.db))

	r.POST("/inspections", InspectionCreate(env.db, env.email))
	r.GET("/inspections", InspectionList(env.db))
	r.GET("/inspections/:id", InspectionGetByID(env.db))
	r.DELETE("/inspections/:id", InspectionDelete(env.db, env.media))
	r.PUT("/inspections/:id/submit", InspectionSubmit(env.db, env.email))
	r.PUT("/inspections/:id/approve", InspectionApprove(env.db, env.email))
	r.PUT("/inspections/:id/reject", InspectionReject(env.db, env.email))
	r.PUT("/inspections/:id/resubmit", InspectionResubmit(env.db, env.email))

	r.POST("/inspections/:id/photos", PhotoAdd(env.db, env.media))
	r.DELETE("/inspections/:id/photos/:photoId", PhotoDelete(env.db, env.media))

	r.GET("/inspections/:id/pdf", InspectionExportPDF(env.db, services.NewInspectionPDFRenderer()))

	env.router = r
	return env
}

func (e *testEnv) createUser(t *testing.T, email string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		FirstName:    "Тест",
		LastName:     string(role),
		Email:        email,
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createVehicle(t *testing.T, plate string) *models.Vehicle {
	t.Helper()
	vehicle := &models.Vehicle{
		Brand:  "Toyota",
		Model:  "Camry",
		Plate:  plate,
		Status: models.VehicleStatusInService,
	}
	require.NoError(t, e.db.Create(vehicle).Error)
	return vehicle
}

func (e *testEnv) createInspection(t *testing.T, vehicleID, authorID uint, status models.InspectionStatus, cond models.InspectionCondition) *models.Inspection {
	t.Helper()
	inspection := &models.Inspection{
		VehicleID: vehicleID,
		AuthorID:  authorID,
		Status:    status,
		Condition: cond,
		Odometer:  125000,
	}
	require.NoError(t, e.db.Create(inspection).Error)
	return inspection
}

func (e *testEnv) do(t *testing.T, actor *models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(actor.ID), 10))
		req.Header.Set("X-Test-Role", string(actor.Role))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// doUpload отправляет multipart-запрос с фотографией осмотра
func (e *testEnv) doUpload(t *testing.T, actor *models.User, inspectionID uint, photoType string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", photoType))
	part, err := mw.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-data"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/inspections/%d/photos", inspectionID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(actor.ID), 10))
	req.Header.Set("X-Test-Role", string(actor.Role))

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
