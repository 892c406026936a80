package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-user-api/internal/auth"
	"github.com/franciscosanchezn/gin-user-api/internal/cache"
	"github.com/franciscosanchezn/gin-user-api/internal/database"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const missingID = "123456789098765432123456"

func init() {
	models.PasswordCost = bcrypt.MinCost
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	db      *gorm.DB
	router  *gin.Engine
	users   services.UserService
	clients services.ClientService
	tokens  *auth.TokenManager

	user1, user2, admin              *models.User
	session1, session2, adminSession string
}

type fixtureOption func(*RouterConfig)

// withProfileCache puts the read-through profile cache in front of the store, as cmd/main.go does
func withProfileCache(cfg *RouterConfig) {
	cfg.Users = services.NewCachedUserService(cfg.Users, cache.NewMemory(time.Minute), nil)
}

// storeWirings runs a test against the bare store and the cached store
var storeWirings = []struct {
	name string
	opts []fixtureOption
}{
	{name: "store"},
	{name: "cached store", opts: []fixtureOption{withProfileCache}},
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setup(t *testing.T, opts ...fixtureOption) *fixture {
	db := setupTestDB(t)
	f := &fixture{
		db:      db,
		users:   services.NewUserService(db),
		clients: services.NewClientService(db),
		tokens:  auth.NewTokenManager("test-secret", time.Hour),
	}

	cfg := RouterConfig{
		ServiceName: "gin-user-api-test",
		Users:       f.users,
		Clients:     f.clients,
		Tokens:      f.tokens,
		UserController: UserControllerConfig{
			DefaultPageSize:   30,
			MaxPageSize:       100,
			AllowRoleOnSignup: true,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.router = NewRouter(cfg)

	f.user1 = f.createUser(t, "user", "a@a.com", "")
	f.user2 = f.createUser(t, "user", "b@b.com", "")
	f.admin = f.createUser(t, "admin", "c@c.com", models.RoleAdmin)
	f.session1 = f.sign(t, f.user1)
	f.session2 = f.sign(t, f.user2)
	f.adminSession = f.sign(t, f.admin)
	return f
}

func (f *fixture) createUser(t *testing.T, name, email, role string) *models.User {
	u := &models.User{Name: name, Email: email, Role: role}
	require.NoError(t, u.SetPassword("123456"))
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) sign(t *testing.T, u *models.User) string {
	token, err := f.tokens.Sign(u)
	require.NoError(t, err)
	return token
}

// request describes one call against the router
type request struct {
	method string
	path   string
	query  url.Values
	body   map[string]interface{}
	basic  []string
}

func (f *fixture) do(t *testing.T, r request) *httptest.ResponseRecorder {
	target := "/api/v1/users" + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var req *http.Request
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		req = httptest.NewRequest(r.method, target, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(r.method, target, nil)
	}
	if len(r.basic) == 2 {
		req.SetBasicAuth(r.basic[0], r.basic[1])
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func token(tok string) url.Values {
	return url.Values{"access_token": {tok}}
}

func (f *fixture) passwordMatches(t *testing.T, id, password string) bool {
	u, err := f.users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u.CheckPassword(password)
}

func TestListUsers(t *testing.T) {
	f := setup(t)

	t.Run("admin gets an array", func(t *testing.T) {
		w := f.do(t, request{method: http.MethodGet, query: token(f.adminSession)})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeArray(t, w), 3)
		assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
	})

	t.Run("page and limit", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("page", "2")
		q.Set("limit", "1")
		w := f.do(t, request{method: http.MethodGet, query: q})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeArray(t, w), 1)
	})

	t.Run("search on name", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("q", "user")
		w := f.do(t, request{method: http.MethodGet, query: q})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeArray(t, w), 2)
	})

	t.Run("fields projection", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("fields", "name")
		w := f.do(t, request{method: http.MethodGet, query: q})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeArray(t, w)
		require.NotEmpty(t, body)
		for _, item := range body {
			keys := make([]string, 0, len(item))
			for k := range item {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			assert.Equal(t, []string{"id", "name"}, keys)
		}
	})

	t.Run("password is never projected", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("fields", "password,passwordHash,email")
		w := f.do(t, request{method: http.MethodGet, query: q})
		require.Equal(t, http.StatusOK, w.Code)
		for _, item := range decodeArray(t, w) {
			assert.Len(t, item, 2)
			assert.Contains(t, item, "email")
		}
	})

	t.Run("sort by email", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("sort", "-email")
		w := f.do(t, request{method: http.MethodGet, query: q})
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeArray(t, w)
		require.Len(t, body, 3)
		assert.Equal(t, "c@c.com", body[0]["email"])
	})

	t.Run("bad sort", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("sort", "password")
		w := f.do(t, request{method: http.MethodGet, query: q})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "sort", decodeObject(t, w)["param"])
	})

	t.Run("bad page", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("page", "zero")
		w := f.do(t, request{method: http.MethodGet, query: q})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "page", decodeObject(t, w)["param"])
	})

	t.Run("limit is capped", func(t *testing.T) {
		q := token(f.adminSession)
		q.Set("limit", "1000")
		w := f.do(t, request{method: http.MethodGet, query: q})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bearer header works too", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
		req.Header.Set("Authorization", "Bearer "+f.adminSession)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("user is unauthorized", func(t *testing.T) {
		w := f.do(t, request{method: http.MethodGet, query: token(f.session1)})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		w := f.do(t, request{method: http.MethodGet})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetMe(t *testing.T) {
	f := setup(t)

	w := f.do(t, request{method: http.MethodGet, path: "/me", query: token(f.session1)})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeObject(t, w)
	assert.Equal(t, f.user1.ID, body["id"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordHash")

	w = f.do(t, request{method: http.MethodGet, path: "/me"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUser(t *testing.T) {
	f := setup(t)

	w := f.do(t, request{method: http.MethodGet, path: "/" + f.user1.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, f.user1.ID, decodeObject(t, w)["id"])

	w = f.do(t, request{method: http.MethodGet, path: "/" + missingID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUser(t *testing.T) {
	testCases := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantParam  string
		wantRole   string
	}{
		{
			name:       "role defaults to user",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123456", "name": "Tester"},
			wantStatus: http.StatusCreated,
			wantRole:   models.RoleUser,
		},
		{
			name:       "explicit user role",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123456", "role": "user", "name": "Tester"},
			wantStatus: http.StatusCreated,
			wantRole:   models.RoleUser,
		},
		{
			name:       "admin role is honored",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123456", "role": "admin", "name": "Tester"},
			wantStatus: http.StatusCreated,
			wantRole:   models.RoleAdmin,
		},
		{
			name:       "duplicated email",
			body:       map[string]interface{}{"email": "a@a.com", "password": "123456", "name": "Tester"},
			wantStatus: http.StatusConflict,
			wantParam:  "email",
		},
		{
			name:       "duplicated email in another case",
			body:       map[string]interface{}{"email": "A@A.com", "password": "123456", "name": "Tester"},
			wantStatus: http.StatusConflict,
			wantParam:  "email",
		},
		{
			name:       "missing name",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123456"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "name",
		},
		{
			name:       "blank name",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123456", "name": "   "},
			wantStatus: http.StatusBadRequest,
			wantParam:  "name",
		},
		{
			name:       "invalid email",
			body:       map[string]interface{}{"email": "invalid", "password": "123456", "name": "Tester"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "email",
		},
		{
			name:       "missing email",
			body:       map[string]interface{}{"password": "123456", "name": "Tester"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "email",
		},
		{
			name:       "invalid password",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123", "name": "Tester"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "password",
		},
		{
			name:       "password longer than bcrypt accepts",
			body:       map[string]interface{}{"email": "d@d.com", "password": strings.Repeat("x", 80), "name": "Tester"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "password",
		},
		{
			name:       "multibyte password over the byte limit",
			body:       map[string]interface{}{"email": "d@d.com", "password": strings.Repeat("é", 40), "name": "Tester"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "password",
		},
		{
			name:       "missing password",
			body:       map[string]interface{}{"email": "d@d.com", "name": "Tester"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "password",
		},
		{
			name:       "invalid role",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123456", "name": "Tester", "role": "invalid"},
			wantStatus: http.StatusBadRequest,
			wantParam:  "role",
		},
		{
			name:       "wrong type",
			body:       map[string]interface{}{"email": "d@d.com", "password": "123456", "name": 42},
			wantStatus: http.StatusBadRequest,
			wantParam:  "name",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			w := f.do(t, request{method: http.MethodPost, body: tt.body})
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			body := decodeObject(t, w)
			if tt.wantParam != "" {
				assert.Equal(t, tt.wantParam, body["param"])
				return
			}

			assert.Equal(t, "d@d.com", body["email"])
			assert.Equal(t, "Tester", body["name"])
			assert.Equal(t, tt.wantRole, body["role"])
			assert.NotEmpty(t, body["id"])
			assert.NotEmpty(t, body["picture"])
			assert.NotContains(t, body, "password")
		})
	}
}

func TestCreateUserRoleGate(t *testing.T) {
	f := setup(t, func(cfg *RouterConfig) { cfg.UserController.AllowRoleOnSignup = false })

	w := f.do(t, request{method: http.MethodPost, body: map[string]interface{}{
		"email": "d@d.com", "password": "123456", "name": "Tester", "role": "admin",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "role", decodeObject(t, w)["param"])

	w = f.do(t, request{method: http.MethodPost, body: map[string]interface{}{
		"access_token": f.adminSession, "email": "d@d.com", "password": "123456", "name": "Tester", "role": "admin",
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RoleAdmin, decodeObject(t, w)["role"])

	w = f.do(t, request{method: http.MethodPost, body: map[string]interface{}{
		"email": "e@e.com", "password": "123456", "name": "Tester", "role": "user",
	}})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestConcurrentRegistrationWithSameEmail(t *testing.T) {
	f := setup(t)

	const attempts = 6
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := f.do(t, request{method: http.MethodPost, body: map[string]interface{}{
				"email": "race@a.com", "password": "123456", "name": "Racer",
			}})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	created, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
}

func TestUpdateMe(t *testing.T) {
	for _, wiring := range storeWirings {
		t.Run(wiring.name, func(t *testing.T) {
			f := setup(t, wiring.opts...)

			// prime any profile cache before changing the record
			w := f.do(t, request{method: http.MethodGet, path: "/" + f.user1.ID})
			require.Equal(t, http.StatusOK, w.Code)

			w = f.do(t, request{method: http.MethodPut, path: "/me", body: map[string]interface{}{"access_token": f.session1, "name": "test"}})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "test", decodeObject(t, w)["name"])

			w = f.do(t, request{method: http.MethodGet, path: "/" + f.user1.ID})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "test", decodeObject(t, w)["name"])

			w = f.do(t, request{method: http.MethodPut, path: "/me", body: map[string]interface{}{"access_token": f.session1, "email": "test@test.com"}})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "test@test.com", decodeObject(t, w)["email"])

			w = f.do(t, request{method: http.MethodGet, path: "/me", query: token(f.session1)})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "test@test.com", decodeObject(t, w)["email"])

			w = f.do(t, request{method: http.MethodPut, path: "/me", body: map[string]interface{}{"name": "test"}})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestUpdateMeValidation(t *testing.T) {
	f := setup(t)

	w := f.do(t, request{method: http.MethodPut, path: "/me", body: map[string]interface{}{"access_token": f.session1, "email": "invalid"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decodeObject(t, w)["param"])

	w = f.do(t, request{method: http.MethodPut, path: "/me", body: map[string]interface{}{"access_token": f.session1, "email": "b@b.com"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email", decodeObject(t, w)["param"])

	// an empty body changes nothing
	w = f.do(t, request{method: http.MethodPut, path: "/me", query: token(f.session1)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@a.com", decodeObject(t, w)["email"])
}

func TestUpdateUser(t *testing.T) {
	testCases := []struct {
		name       string
		target     func(f *fixture) string
		session    func(f *fixture) string
		body       map[string]interface{}
		wantStatus int
		wantField  string
		wantValue  string
	}{
		{
			name:       "self updates name",
			target:     func(f *fixture) string { return f.user1.ID },
			session:    func(f *fixture) string { return f.session1 },
			body:       map[string]interface{}{"name": "test"},
			wantStatus: http.StatusOK,
			wantField:  "name",
			wantValue:  "test",
		},
		{
			name:       "self updates email",
			target:     func(f *fixture) string { return f.user1.ID },
			session:    func(f *fixture) string { return f.session1 },
			body:       map[string]interface{}{"email": "test@test.com"},
			wantStatus: http.StatusOK,
			wantField:  "email",
			wantValue:  "test@test.com",
		},
		{
			name:       "admin updates another user",
			target:     func(f *fixture) string { return f.user1.ID },
			session:    func(f *fixture) string { return f.adminSession },
			body:       map[string]interface{}{"name": "test"},
			wantStatus: http.StatusOK,
			wantField:  "name",
			wantValue:  "test",
		},
		{
			name:       "another user is unauthorized",
			target:     func(f *fixture) string { return f.user1.ID },
			session:    func(f *fixture) string { return f.session2 },
			body:       map[string]interface{}{"name": "test"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "anonymous is unauthorized",
			target:     func(f *fixture) string { return f.user1.ID },
			session:    func(f *fixture) string { return "" },
			body:       map[string]interface{}{"name": "test"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "admin on a missing user",
			target:     func(f *fixture) string { return missingID },
			session:    func(f *fixture) string { return f.adminSession },
			body:       map[string]interface{}{"name": "test"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "non admin on a missing user",
			target:     func(f *fixture) string { return missingID },
			session:    func(f *fixture) string { return f.session1 },
			body:       map[string]interface{}{"name": "test"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			body := map[string]interface{}{}
			for k, v := range tt.body {
				body[k] = v
			}
			if s := tt.session(f); s != "" {
				body["access_token"] = s
			}

			w := f.do(t, request{method: http.MethodPut, path: "/" + tt.target(f), body: body})
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantField != "" {
				assert.Equal(t, tt.wantValue, decodeObject(t, w)[tt.wantField])
			}
		})
	}
}

func TestUpdateMyPassword(t *testing.T) {
	t.Run("basic auth changes the password", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/me/password", basic: []string{"a@a.com", "123456"},
			body: map[string]interface{}{"password": "654321"}})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeObject(t, w)
		assert.Equal(t, "a@a.com", body["email"])
		assert.True(t, f.passwordMatches(t, body["id"].(string), "654321"))
	})

	t.Run("short password", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/me/password", basic: []string{"a@a.com", "123456"},
			body: map[string]interface{}{"password": "321"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "password", decodeObject(t, w)["param"])
	})

	t.Run("password too long", func(t *testing.T) {
		f := setup(t)
		for _, password := range []string{strings.Repeat("x", 80), strings.Repeat("é", 40)} {
			w := f.do(t, request{method: http.MethodPut, path: "/me/password", basic: []string{"a@a.com", "123456"},
				body: map[string]interface{}{"password": password}})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "password", decodeObject(t, w)["param"])
		}
		assert.True(t, f.passwordMatches(t, f.user1.ID, "123456"))
	})

	t.Run("token is not enough", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/me/password",
			body: map[string]interface{}{"access_token": f.session1, "password": "654321"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.True(t, f.passwordMatches(t, f.user1.ID, "123456"))
	})

	t.Run("wrong current password", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/me/password", basic: []string{"a@a.com", "000000"},
			body: map[string]interface{}{"password": "654321"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/me/password", body: map[string]interface{}{"password": "654321"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUpdatePassword(t *testing.T) {
	t.Run("self with basic auth", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + f.user1.ID + "/password", basic: []string{"a@a.com", "123456"},
			body: map[string]interface{}{"password": "654321"}})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeObject(t, w)
		assert.Equal(t, "a@a.com", body["email"])
		assert.True(t, f.passwordMatches(t, body["id"].(string), "654321"))
	})

	t.Run("short password", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + f.user1.ID + "/password", basic: []string{"a@a.com", "123456"},
			body: map[string]interface{}{"password": "321"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "password", decodeObject(t, w)["param"])
	})

	t.Run("password too long", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + f.user1.ID + "/password", basic: []string{"a@a.com", "123456"},
			body: map[string]interface{}{"password": strings.Repeat("x", 80)}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "password", decodeObject(t, w)["param"])
	})

	t.Run("another user", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + f.user1.ID + "/password", basic: []string{"b@b.com", "123456"},
			body: map[string]interface{}{"password": "654321"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("admin is not the user", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + f.user1.ID + "/password", basic: []string{"c@c.com", "123456"},
			body: map[string]interface{}{"password": "654321"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token is not enough", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + f.user1.ID + "/password",
			body: map[string]interface{}{"access_token": f.session1, "password": "654321"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + f.user1.ID + "/password",
			body: map[string]interface{}{"password": "654321"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing user", func(t *testing.T) {
		f := setup(t)
		w := f.do(t, request{method: http.MethodPut, path: "/" + missingID + "/password", basic: []string{"a@a.com", "123456"},
			body: map[string]interface{}{"password": "654321"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	for _, wiring := range storeWirings {
		t.Run(wiring.name, func(t *testing.T) {
			t.Run("admin", func(t *testing.T) {
				f := setup(t, wiring.opts...)
				w := f.do(t, request{method: http.MethodDelete, path: "/" + f.user1.ID, body: map[string]interface{}{"access_token": f.adminSession}})
				assert.Equal(t, http.StatusNoContent, w.Code)
				assert.Empty(t, w.Body.String())

				w = f.do(t, request{method: http.MethodGet, path: "/" + f.user1.ID})
				assert.Equal(t, http.StatusNotFound, w.Code)
			})

			t.Run("user", func(t *testing.T) {
				f := setup(t, wiring.opts...)
				w := f.do(t, request{method: http.MethodDelete, path: "/" + f.user1.ID, body: map[string]interface{}{"access_token": f.session1}})
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			})

			t.Run("anonymous", func(t *testing.T) {
				f := setup(t, wiring.opts...)
				w := f.do(t, request{method: http.MethodDelete, path: "/" + f.user1.ID})
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			})

			t.Run("admin on a missing user", func(t *testing.T) {
				f := setup(t, wiring.opts...)
				w := f.do(t, request{method: http.MethodDelete, path: "/" + missingID, body: map[string]interface{}{"access_token": f.adminSession}})
				assert.Equal(t, http.StatusNotFound, w.Code)
			})

			t.Run("user on a missing user", func(t *testing.T) {
				f := setup(t, wiring.opts...)
				w := f.do(t, request{method: http.MethodDelete, path: "/" + missingID, body: map[string]interface{}{"access_token": f.session1}})
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			})

			t.Run("token of a deleted user stops working", func(t *testing.T) {
				f := setup(t, wiring.opts...)
				w := f.do(t, request{method: http.MethodGet, path: "/me", query: token(f.session1)})
				require.Equal(t, http.StatusOK, w.Code)

				w = f.do(t, request{method: http.MethodDelete, path: "/" + f.user1.ID, query: token(f.adminSession)})
				require.Equal(t, http.StatusNoContent, w.Code)

				w = f.do(t, request{method: http.MethodGet, path: "/me", query: token(f.session1)})
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			})
		})
	}
}
