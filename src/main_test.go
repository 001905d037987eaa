package main

import (
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"ptx/src/common"
	"ptx/src/db"
	"ptx/src/middlewares"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Mock *sqlmock.Sqlmock
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	mockdb, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockdb}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func (s *TestSuite) SetupSuite() {
	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = &mock
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestProtectedRoutesRejectMissingToken() {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	saleHandlers(authorized)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/sales", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 401, w.Code)
}

func (s *TestSuite) TestWebhookRejectsBadSignature() {
	router := setupRouter()
	stripeWebhookRoute(router)

	w := httptest.NewRecorder()
	payload := `{"type":"payment_intent.succeeded"}`
	req, _ := http.NewRequest("POST", "/api/v1/webhook/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
	assert.Contains(s.T(), w.Body.String(), common.ErrInvalidWebhookPayload.Error())
}

func (s *TestSuite) TestWebhookRequiresSignatureHeader() {
	router := setupRouter()
	stripeWebhookRoute(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/webhook/stripe", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func TestSuiteRun(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
