package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

type fakeUserStore struct {
	nextID int64
	byID   map[int64]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, byID: make(map[int64]*models.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	for _, existing := range f.byID {
		if existing.Username == u.Username {
			return nil, apperr.Validation("username %q is already taken", u.Username)
		}
	}
	u.ID = f.nextID
	f.nextID++
	u.CreatedTime = time.Now()
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdateUser(_ context.Context, u *models.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return apperr.NotFound("user")
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return apperr.NotFound("user")
	}
	delete(f.byID, id)
	return nil
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

func authedRequest(method, target string, body *bytes.Reader, userID int64) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func birthDateForAge(age int) string {
	return time.Now().AddDate(-age, 0, -1).Format("2006-01-02")
}

func TestSignup_CreatesUser(t *testing.T) {
	store := newFakeUserStore()
	h := NewHandler(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signup", jsonBody(t, models.SignupRequest{
		Username:  "alice",
		Password:  "s3cret-password",
		BirthDate: birthDateForAge(20),
	}))
	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if len(store.byID) != 1 {
		t.Fatalf("users created: got %d, want 1", len(store.byID))
	}
	u := store.byID[1]
	if u.Username != "alice" {
		t.Errorf("username: got %q", u.Username)
	}
	if u.Password == "s3cret-password" {
		t.Error("password stored in clear")
	}
}

func TestSignup_UnderageRejected(t *testing.T) {
	store := newFakeUserStore()
	h := NewHandler(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signup", jsonBody(t, models.SignupRequest{
		Username:  "kid",
		Password:  "whatever",
		BirthDate: birthDateForAge(14),
	}))
	h.Signup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if len(store.byID) != 0 {
		t.Errorf("users created: got %d, want 0", len(store.byID))
	}
}

func TestSignup_ExactlyFifteenAllowed(t *testing.T) {
	store := newFakeUserStore()
	h := NewHandler(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signup", jsonBody(t, models.SignupRequest{
		Username:  "teen",
		Password:  "whatever",
		BirthDate: birthDateForAge(15),
	}))
	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestSignup_BadBirthDateFormat(t *testing.T) {
	h := NewHandler(newFakeUserStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signup", jsonBody(t, models.SignupRequest{
		Username:  "alice",
		Password:  "pw",
		BirthDate: "01/02/2000",
	}))
	h.Signup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestSignup_MissingFields(t *testing.T) {
	h := NewHandler(newFakeUserStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signup", jsonBody(t, models.SignupRequest{Username: "alice"}))
	h.Signup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	store := newFakeUserStore()
	h := NewHandler(store)

	for i, wantStatus := range []int{http.StatusCreated, http.StatusBadRequest} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/signup", jsonBody(t, models.SignupRequest{
			Username:  "alice",
			Password:  fmt.Sprintf("pw-%d", i),
			BirthDate: birthDateForAge(30),
		}))
		h.Signup(rec, req)
		if rec.Code != wantStatus {
			t.Fatalf("call %d: got %d, want %d", i, rec.Code, wantStatus)
		}
	}
	if len(store.byID) != 1 {
		t.Errorf("users created: got %d, want 1", len(store.byID))
	}
}

func TestMe_ReturnsProfile(t *testing.T) {
	store := newFakeUserStore()
	store.byID[1] = &models.User{ID: 1, Username: "alice", Password: "hash"}
	h := NewHandler(store)

	rec := httptest.NewRecorder()
	h.Me(rec, authedRequest(http.MethodGet, "/api/users/me", nil, 1))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var got models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username: got %q", got.Username)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("hash")) {
		t.Error("password hash serialized")
	}
}

func TestUpdateMe_PartialUpdate(t *testing.T) {
	store := newFakeUserStore()
	store.byID[1] = &models.User{ID: 1, Username: "alice", BirthDate: time.Now().AddDate(-30, 0, 0)}
	h := NewHandler(store)

	contacted := true
	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPatch, "/api/users/me", jsonBody(t, models.UpdateUserRequest{
		CanBeContacted: &contacted,
	}), 1)
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}
	if !store.byID[1].CanBeContacted {
		t.Error("can_be_contacted not updated")
	}
	if store.byID[1].Username != "alice" {
		t.Errorf("username changed unexpectedly: %q", store.byID[1].Username)
	}
}

func TestUpdateMe_UnderageBirthDateRejected(t *testing.T) {
	store := newFakeUserStore()
	store.byID[1] = &models.User{ID: 1, Username: "alice", BirthDate: time.Now().AddDate(-30, 0, 0)}
	h := NewHandler(store)

	young := birthDateForAge(10)
	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPut, "/api/users/me", jsonBody(t, models.UpdateUserRequest{
		BirthDate: &young,
	}), 1)
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestDeleteMe_RemovesAccount(t *testing.T) {
	store := newFakeUserStore()
	store.byID[1] = &models.User{ID: 1, Username: "alice"}
	h := NewHandler(store)

	rec := httptest.NewRecorder()
	h.DeleteMe(rec, authedRequest(http.MethodDelete, "/api/users/me", nil, 1))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if len(store.byID) != 0 {
		t.Error("user still present after delete")
	}
}
