package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricckyzdev/customerhub/internal/auth"
	"github.com/ricckyzdev/customerhub/internal/domain/user"
	"github.com/ricckyzdev/customerhub/internal/http/handlers"
	"github.com/ricckyzdev/customerhub/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fake implementation of handlers.UsersStore

type fakeUsersStore struct {
	listFn       func(ctx context.Context) ([]user.PublicUser, error)
	createFn     func(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error)
	updateFn     func(ctx context.Context, id int, name, email, passwordHash string) (user.PublicUser, error)
	deleteFn     func(ctx context.Context, id int) error
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
}

func (f *fakeUsersStore) List(ctx context.Context) ([]user.PublicUser, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeUsersStore) Create(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error) {
	if f.createFn != nil {
		return f.createFn(ctx, name, email, passwordHash)
	}
	return user.PublicUser{}, nil
}

func (f *fakeUsersStore) Update(ctx context.Context, id int, name, email, passwordHash string) (user.PublicUser, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, name, email, passwordHash)
	}
	return user.PublicUser{}, nil
}

func (f *fakeUsersStore) Delete(ctx context.Context, id int) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeUsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, nil
}

func newUsersRouter(store *fakeUsersStore, jwt *auth.Manager) *gin.Engine {
	h := handlers.NewUsersHandler(store, jwt)

	r := gin.New()
	r.GET("/api/users", h.ListUsers)
	r.POST("/api/users", h.Register)
	r.PUT("/api/users/:id", h.UpdateUser)
	r.DELETE("/api/users/:id", h.DeleteUser)
	r.POST("/api/users/login", h.Login)

	return r
}

func testJWT() *auth.Manager {
	return auth.NewManager("test-secret", 24*time.Hour)
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterUser(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUsersStore)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"name":"Jane Doe","email":"jane@example.com","password":"password123"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.createFn = func(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error) {
					return user.PublicUser{ID: 1, Name: name, Email: email}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "duplicate email is a conflict",
			body: `{"name":"Jane Doe","email":"jane@example.com","password":"password123"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.createFn = func(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error) {
					return user.PublicUser{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "missing fields",
			body:           `{"email":"jane@example.com"}`,
			storeSetUp:     func(f *fakeUsersStore) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "storage failure",
			body: `{"name":"Jane Doe","email":"jane@example.com","password":"password123"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.createFn = func(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error) {
					return user.PublicUser{}, errors.New("boom")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUsersStore{}
			tc.storeSetUp(store)

			r := newUsersRouter(store, testJWT())
			w := doJSON(t, r, http.MethodPost, "/api/users", tc.body)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRegisterUserHashesPasswordAndOmitsIt(t *testing.T) {
	var gotHash string

	store := &fakeUsersStore{
		createFn: func(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error) {
			gotHash = passwordHash
			return user.PublicUser{ID: 7, Name: name, Email: email}, nil
		},
	}

	r := newUsersRouter(store, testJWT())
	w := doJSON(t, r, http.MethodPost, "/api/users", `{"name":"Jane Doe","email":"jane@example.com","password":"password123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotHash == "" || gotHash == "password123" {
		t.Fatalf("stored password must be a hash, got %q", gotHash)
	}
	if err := security.CheckPassword(gotHash, "password123"); err != nil {
		t.Fatalf("stored hash does not verify against the plaintext: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if _, ok := body["password"]; ok {
		t.Fatal("response must never include the password")
	}
	if body["id"].(float64) != 7 {
		t.Fatalf("unexpected id in response: %v", body["id"])
	}
}

func TestUpdateUser(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		storeSetUp     func(*fakeUsersStore)
		wantStatusCode int
	}{
		{
			name: "success",
			path: "/api/users/3",
			body: `{"name":"Jane Doe","email":"jane@example.com","password":"password123"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.updateFn = func(ctx context.Context, id int, name, email, passwordHash string) (user.PublicUser, error) {
					if id != 3 {
						t.Fatalf("got id %d, want 3", id)
					}
					return user.PublicUser{ID: id, Name: name, Email: email}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "unknown id surfaces not found",
			path: "/api/users/999",
			body: `{"name":"Jane Doe","email":"jane@example.com","password":"password123"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.updateFn = func(ctx context.Context, id int, name, email, passwordHash string) (user.PublicUser, error) {
					return user.PublicUser{}, user.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "non-numeric id",
			path:           "/api/users/abc",
			body:           `{"name":"Jane Doe","email":"jane@example.com","password":"password123"}`,
			storeSetUp:     func(f *fakeUsersStore) {},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUsersStore{}
			tc.storeSetUp(store)

			r := newUsersRouter(store, testJWT())
			w := doJSON(t, r, http.MethodPut, tc.path, tc.body)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteUserSucceedsEvenWhenRowMissing(t *testing.T) {
	store := &fakeUsersStore{
		deleteFn: func(ctx context.Context, id int) error {
			// repo does not report affected rows for deletes
			return nil
		},
	}

	r := newUsersRouter(store, testJWT())
	w := doJSON(t, r, http.MethodDelete, "/api/users/12345", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

func TestListUsersProjectsPublicFields(t *testing.T) {
	store := &fakeUsersStore{
		listFn: func(ctx context.Context) ([]user.PublicUser, error) {
			return []user.PublicUser{
				{ID: 1, Name: "a", Email: "a@example.com"},
				{ID: 2, Name: "b", Email: "b@example.com"},
			}, nil
		},
	}

	r := newUsersRouter(store, testJWT())
	w := doJSON(t, r, http.MethodGet, "/api/users", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var users []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if _, ok := users[0]["password"]; ok {
		t.Fatal("listing must not expose passwords")
	}
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	stored := user.User{ID: 42, Name: "Jane", Email: "jane@example.com", PasswordHash: hash}

	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUsersStore)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"email":"jane@example.com","password":"password123"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return stored, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "wrong password",
			body: `{"email":"jane@example.com","password":"wrong-password"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return stored, nil
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "unknown email",
			body: `{"email":"nobody@example.com","password":"password123"}`,
			storeSetUp: func(f *fakeUsersStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, user.ErrNotFound
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "empty fields",
			body:           `{"email":"","password":""}`,
			storeSetUp:     func(f *fakeUsersStore) {},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUsersStore{}
			tc.storeSetUp(store)

			r := newUsersRouter(store, testJWT())
			w := doJSON(t, r, http.MethodPost, "/api/users/login", tc.body)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestLoginFailuresDoNotRevealWhichFieldWasWrong(t *testing.T) {
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	wrongPassword := &fakeUsersStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return user.User{ID: 1, Email: email, PasswordHash: hash}, nil
		},
	}
	unknownEmail := &fakeUsersStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return user.User{}, user.ErrNotFound
		},
	}

	w1 := doJSON(t, newUsersRouter(wrongPassword, testJWT()), http.MethodPost, "/api/users/login", `{"email":"jane@example.com","password":"nope-nope"}`)
	w2 := doJSON(t, newUsersRouter(unknownEmail, testJWT()), http.MethodPost, "/api/users/login", `{"email":"ghost@example.com","password":"password123"}`)

	if w1.Code != w2.Code {
		t.Fatalf("status codes differ: %d vs %d", w1.Code, w2.Code)
	}
	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s", w1.Body.String(), w2.Body.String())
	}
}

func TestLoginIssuesTokenWithStoredUserAsSubject(t *testing.T) {
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	store := &fakeUsersStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return user.User{ID: 42, Name: "Jane", Email: email, PasswordHash: hash}, nil
		},
	}

	jwt := testJWT()
	r := newUsersRouter(store, jwt)
	w := doJSON(t, r, http.MethodPost, "/api/users/login", `{"email":"jane@example.com","password":"password123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp.Data == "" {
		t.Fatal("expected a token under data")
	}

	claims, err := jwt.VerifyToken(resp.Data)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("token subject %d, want 42", claims.UserID)
	}
	if claims.Email != "jane@example.com" || claims.Name != "Jane" {
		t.Fatalf("unexpected profile claims: %+v", claims)
	}
}
