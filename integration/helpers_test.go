package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/akeren/go-rest-starter/config"
	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/domain"
	"github.com/akeren/go-rest-starter/domain/user"
	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/internal/models"
	"github.com/akeren/go-rest-starter/pkg/auth"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// apiSuite boots the full application on an in-memory database. Each test gets
// fresh tables and a fresh router so per-route rate limits never carry over.
type apiSuite struct {
	suite.Suite
	db        *gorm.DB
	server    *httptest.Server
	baseURL   string
	logger    *log.Logger
	appConfig *config.ApplicationConfig

	// withCache gives every test a fresh in-memory cache.
	withCache bool
	cache     *memoryCache
}

func (s *apiSuite) SetupSuite() {
	s.T().Setenv("METRICS_ENABLED", "false")

	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(s.db.AutoMigrate(models.ModelRegistry...))

	s.logger = log.NewLogger(log.Options{Output: io.Discard})
}

func (s *apiSuite) TearDownSuite() {
	if s.db != nil {
		sqlDB, _ := s.db.DB()
		sqlDB.Close()
	}
}

func (s *apiSuite) SetupTest() {
	s.db.Exec("DELETE FROM articles")
	s.db.Exec("DELETE FROM users")

	tokens, err := auth.NewTokenService(auth.Config{Secret: "integration-secret", Issuer: "integration", TTL: time.Hour})
	s.Require().NoError(err)

	s.appConfig = &config.ApplicationConfig{
		DB:     s.db,
		Logger: s.logger,
		Tokens: tokens,
		Config: &config.AppConfig{CacheTTL: time.Minute},
	}
	if s.withCache {
		s.cache = newMemoryCache()
		s.appConfig.Cache = s.cache
	}

	s.appConfig.RouterService = router.CreateRouterService(s.logger, nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    30 * time.Second,
		Tokens:            tokens,
	})

	domain.SetupCoreDomain(s.appConfig)

	s.server = httptest.NewServer(s.appConfig.RouterService.GetEngine())
	s.baseURL = s.server.URL
}

func (s *apiSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
	if s.appConfig != nil && s.appConfig.RouterService != nil {
		s.appConfig.RouterService.Cleanup()
	}
}

// do sends body as JSON, authenticating with token when it is not empty.
func (s *apiSuite) do(method, path, token string, body any) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (s *apiSuite) register(username, password string) map[string]any {
	resp, body := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Test " + username,
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, body)
	return body["data"].(map[string]any)
}

func (s *apiSuite) login(username, password string) string {
	resp, body := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)
	return body["data"].(map[string]any)["access_token"].(string)
}

// seedAdmin inserts an administrator directly and returns its access token.
func (s *apiSuite) seedAdmin(username, password string) string {
	hashed, err := user.HashPassword(password)
	s.Require().NoError(err)

	admin := models.User{
		Name:     "Admin " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		Roles:    []string{"USER", "ADMIN"},
	}
	s.Require().NoError(s.db.Create(&admin).Error)

	return s.login(username, password)
}
