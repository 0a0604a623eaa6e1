package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/freemirror/yamdb-final/internal/config"
	"github.com/freemirror/yamdb-final/internal/mailer"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/middleware"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/testutil"
)

type captureMailer struct {
	sent chan mailer.Message
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent <- msg
	return nil
}

type APISuite struct {
	suite.Suite
	db     *gorm.DB
	mail   *captureMailer
	engine *gin.Engine

	category *models.Category
	drama    *models.Genre
	comedy   *models.Genre
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:      time.Hour,
		ConfirmationCodeTTL: time.Hour,
		PageSizeDefault:     20,
		PageSizeMax:         100,
		CORSOrigins:         []string{"http://localhost:3000"},
	}
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = testutil.SetupTestDatabase(s.T())
	s.mail = &captureMailer{sent: make(chan mailer.Message, 8)}
	s.engine = New(Options{DB: s.db, Config: testConfig(), Mailer: s.mail})

	s.category = testutil.CreateCategory(s.T(), s.db, "Books", "books")
	s.drama = testutil.CreateGenre(s.T(), s.db, "Drama", "drama")
	s.comedy = testutil.CreateGenre(s.T(), s.db, "Comedy", "comedy")
}

func (s *APISuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, APIPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *APISuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *APISuite) mailedCode() string {
	select {
	case msg := <-s.mail.sent:
		_, code, ok := strings.Cut(msg.Body, "Confirmation code: ")
		s.Require().True(ok, msg.Body)
		return strings.TrimSpace(code)
	case <-time.After(2 * time.Second):
		s.FailNow("no confirmation mail sent")
		return ""
	}
}

func (s *APISuite) exchange(username, code string) string {
	w := s.do(http.MethodPost, "/auth/token", "", gin.H{"username": username, "confirmation_code": code})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return s.decode(w)["token"].(string)
}

// signup registers a fresh account and returns its access token.
func (s *APISuite) signup(username string) string {
	w := s.do(http.MethodPost, "/auth/signup", "", gin.H{"username": username, "email": username + "@example.com"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return s.exchange(username, s.mailedCode())
}

// login gets a token for an account that already exists in the database.
func (s *APISuite) login(u *models.User) string {
	w := s.do(http.MethodPost, "/auth/code", "", gin.H{"username": u.Username, "email": u.Email})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return s.exchange(u.Username, s.mailedCode())
}

func (s *APISuite) adminToken() string {
	return s.login(testutil.CreateUser(s.T(), s.db, "boss", models.RoleAdmin))
}

func (s *APISuite) createTitle(token string) int64 {
	w := s.do(http.MethodPost, "/titles", token, gin.H{
		"name": "X", "year": 2020, "category": "books", "genre": []string{"drama"},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return int64(s.decode(w)["id"].(float64))
}

func (s *APISuite) TestCheckConn() {
	req := httptest.NewRequest(http.MethodGet, "/check-conn", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APISuite) TestUnknownRoute() {
	w := s.do(http.MethodGet, "/nothing-here", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.JSONEq(`{"detail":"Not found."}`, w.Body.String())
}

func (s *APISuite) TestSignupRules() {
	s.signup("alice")

	cases := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"taken username", gin.H{"username": "alice", "email": "other@example.com"}, "username"},
		{"reserved me", gin.H{"username": "me", "email": "me@example.com"}, "username"},
		{"bad characters", gin.H{"username": "al ice!", "email": "x@example.com"}, "username"},
		{"taken email", gin.H{"username": "alice2", "email": "alice@example.com"}, "email"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/auth/signup", "", tc.body)
			s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
			s.Contains(s.decode(w), tc.field)
		})
	}
}

func (s *APISuite) TestTokenExchangeErrors() {
	testutil.CreateUser(s.T(), s.db, "bob", models.RoleUser)

	w := s.do(http.MethodPost, "/auth/token", "", gin.H{"username": "bob", "confirmation_code": "nope-0"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.decode(w), "confirmation_code")

	w = s.do(http.MethodPost, "/auth/token", "", gin.H{"username": "ghost", "confirmation_code": "nope-0"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestConfirmationCodeIsSingleUse() {
	w := s.do(http.MethodPost, "/auth/signup", "", gin.H{"username": "carol", "email": "carol@example.com"})
	s.Require().Equal(http.StatusOK, w.Code)
	code := s.mailedCode()

	s.exchange("carol", code)

	w = s.do(http.MethodPost, "/auth/token", "", gin.H{"username": "carol", "confirmation_code": code})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestTitleWritesNeedAdmin() {
	userToken := s.signup("reader")

	w := s.do(http.MethodPost, "/titles", "", gin.H{"name": "X", "year": 2020, "genre": []string{"drama"}})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/titles", userToken, gin.H{"name": "X", "year": 2020, "genre": []string{"drama"}})
	s.Equal(http.StatusForbidden, w.Code)

	superToken := s.login(testutil.CreateSuperuser(s.T(), s.db, "root"))
	s.createTitle(superToken)
}

func (s *APISuite) TestTitleLifecycle() {
	admin := s.adminToken()

	w := s.do(http.MethodPost, "/titles", admin, gin.H{
		"name": "X", "year": 2020, "category": "books", "genre": []string{"drama"},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	created := s.decode(w)
	s.Len(created["genre"], 1)
	s.Nil(created["rating"])
	s.Equal("books", created["category"].(map[string]any)["slug"])
	id := int64(created["id"].(float64))

	w = s.do(http.MethodPost, "/titles", admin, gin.H{"name": "Future", "year": time.Now().Year() + 1, "genre": []string{"drama"}})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.decode(w), "year")

	w = s.do(http.MethodPatch, fmt.Sprintf("/titles/%d", id), admin, gin.H{"genre": []string{}})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Empty(s.decode(w)["genre"])

	w = s.do(http.MethodPatch, fmt.Sprintf("/titles/%d", id), admin, gin.H{"genre": []string{"drama", "comedy"}})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["genre"], 2)

	w = s.do(http.MethodGet, "/titles?genre=comedy&year=2020", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(1, s.decode(w)["count"])

	w = s.do(http.MethodGet, "/titles?name=nomatch", "", nil)
	s.EqualValues(0, s.decode(w)["count"])

	w = s.do(http.MethodGet, "/titles?year=abc", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/titles/%d", id), admin, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/titles/%d", id), "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestReviewsAndRating() {
	titleID := s.createTitle(s.adminToken())
	alice := s.signup("alice")
	bob := s.signup("bob")
	reviews := fmt.Sprintf("/titles/%d/reviews", titleID)

	w := s.do(http.MethodPost, reviews, alice, gin.H{"text": "great", "score": 9})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	reviewID := int64(s.decode(w)["id"].(float64))

	w = s.do(http.MethodPost, reviews, alice, gin.H{"text": "again", "score": 2})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.decode(w), "author")

	for _, score := range []int{0, 11} {
		w = s.do(http.MethodPost, reviews, bob, gin.H{"text": "bad score", "score": score})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(s.decode(w), "score")
	}

	w = s.do(http.MethodPost, reviews, bob, gin.H{"text": "meh", "score": 4})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/titles/%d", titleID), "", nil)
	s.InDelta(6.5, s.decode(w)["rating"], 0.001)

	// bob cannot edit alice's review
	w = s.do(http.MethodPatch, fmt.Sprintf("%s/%d", reviews, reviewID), bob, gin.H{"score": 1})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("%s/%d", reviews, reviewID), alice, gin.H{"score": 7})
	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(7, s.decode(w)["score"])
}

func (s *APISuite) TestDeletingReviewRemovesComments() {
	titleID := s.createTitle(s.adminToken())
	alice := s.signup("alice")
	moderator := s.login(testutil.CreateUser(s.T(), s.db, "mod", models.RoleModerator))

	reviewPath := fmt.Sprintf("/titles/%d/reviews", titleID)
	w := s.do(http.MethodPost, reviewPath, alice, gin.H{"text": "fine", "score": 5})
	s.Require().Equal(http.StatusCreated, w.Code)
	reviewID := int64(s.decode(w)["id"].(float64))

	commentPath := fmt.Sprintf("%s/%d/comments", reviewPath, reviewID)
	for _, text := range []string{"first", "second"} {
		w = s.do(http.MethodPost, commentPath, alice, gin.H{"text": text})
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}
	w = s.do(http.MethodGet, commentPath, "", nil)
	s.EqualValues(2, s.decode(w)["count"])

	w = s.do(http.MethodDelete, fmt.Sprintf("%s/%d", reviewPath, reviewID), moderator, nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	var remaining int64
	s.Require().NoError(s.db.Model(&models.Comment{}).Count(&remaining).Error)
	s.Zero(remaining)

	w = s.do(http.MethodGet, commentPath, "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestUsersMe() {
	token := s.signup("dora")

	w := s.do(http.MethodPatch, "/users/me", token, gin.H{"bio": "hello", "role": "admin"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	me := s.decode(w)
	s.Equal("hello", me["bio"])
	s.Equal("user", me["role"])

	w = s.do(http.MethodGet, "/users", token, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *APISuite) TestAdminManagesUsers() {
	admin := s.adminToken()

	w := s.do(http.MethodPost, "/users", admin, gin.H{"username": "eve", "email": "eve@example.com", "role": "moderator"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/users?search=ev", admin, nil)
	s.EqualValues(1, s.decode(w)["count"])

	w = s.do(http.MethodDelete, "/users/eve", admin, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/users/eve", admin, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestCatalogEndpoints() {
	admin := s.adminToken()

	w := s.do(http.MethodPost, "/genres", admin, gin.H{"name": "Film Noir"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("film-noir", s.decode(w)["slug"])

	w = s.do(http.MethodPost, "/categories", admin, gin.H{"name": "Duplicate", "slug": "books"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.decode(w), "slug")

	w = s.do(http.MethodGet, "/genres?search=noir", "", nil)
	s.EqualValues(1, s.decode(w)["count"])

	w = s.do(http.MethodDelete, "/categories/books", admin, nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rds := testutil.SetupTestRedis(t)
	opts, err := redis.ParseURL(rds.URL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	engine := New(Options{
		DB:      testutil.SetupTestDatabase(t),
		Config:  testConfig(),
		Mailer:  &captureMailer{sent: make(chan mailer.Message, 8)},
		Limiter: middleware.NewRedisLimiter(client, middleware.RateLimiterConfig{MaxRequests: 2, Window: time.Minute}),
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, APIPrefix+"/auth/token",
			strings.NewReader(`{"username":"nobody","confirmation_code":"x-1"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	require.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)
}
