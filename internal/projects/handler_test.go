package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/authz"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

// fakeStore is an in-memory ProjectStore + UserStore + MembershipStore
// mirroring the Postgres store's contract, including the atomic
// author-contributor creation and the duplicate-membership rejection.
type fakeStore struct {
	nextProjectID     int64
	nextContributorID int64
	projects          map[int64]*models.Project
	contributors      map[int64]*models.Contributor
	users             map[int64]*models.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextProjectID:     1,
		nextContributorID: 1,
		projects:          make(map[int64]*models.Project),
		contributors:      make(map[int64]*models.Contributor),
		users:             make(map[int64]*models.User),
	}
}

func (f *fakeStore) addUser(id int64, username string) {
	f.users[id] = &models.User{ID: id, Username: username}
}

func (f *fakeStore) CreateProject(_ context.Context, p *models.Project) (*models.Project, error) {
	p.ID = f.nextProjectID
	f.nextProjectID++
	p.CreatedTime = time.Now()
	f.projects[p.ID] = p
	c := &models.Contributor{ID: f.nextContributorID, UserID: p.AuthorID, ProjectID: p.ID}
	if u := f.users[p.AuthorID]; u != nil {
		c.Username = u.Username
	}
	f.nextContributorID++
	f.contributors[c.ID] = c
	return p, nil
}

func (f *fakeStore) ListProjectsForUser(_ context.Context, userID int64) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.AuthorID == userID {
			out = append(out, *p)
			continue
		}
		for _, c := range f.contributors {
			if c.ProjectID == p.ID && c.UserID == userID {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetProject(_ context.Context, id int64) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperr.NotFound("project")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetProjectDetail(ctx context.Context, id int64) (*models.ProjectDetail, error) {
	p, err := f.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &models.ProjectDetail{Project: *p, Issues: []models.IssueSummary{}}
	if u := f.users[p.AuthorID]; u != nil {
		d.Author = u.Username
	}
	d.Contributors, _ = f.ListContributors(ctx, id)
	return d, nil
}

func (f *fakeStore) UpdateProject(_ context.Context, p *models.Project) error {
	if _, ok := f.projects[p.ID]; !ok {
		return apperr.NotFound("project")
	}
	f.projects[p.ID] = p
	return nil
}

func (f *fakeStore) DeleteProject(_ context.Context, id int64) error {
	if _, ok := f.projects[id]; !ok {
		return apperr.NotFound("project")
	}
	delete(f.projects, id)
	for cid, c := range f.contributors {
		if c.ProjectID == id {
			delete(f.contributors, cid)
		}
	}
	return nil
}

func (f *fakeStore) ListContributors(_ context.Context, projectID int64) ([]models.Contributor, error) {
	out := []models.Contributor{}
	for _, c := range f.contributors {
		if c.ProjectID == projectID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) AddContributor(_ context.Context, projectID, userID int64) (*models.Contributor, error) {
	for _, c := range f.contributors {
		if c.ProjectID == projectID && c.UserID == userID {
			return nil, apperr.Validation("this user is already a contributor of the project")
		}
	}
	c := &models.Contributor{ID: f.nextContributorID, UserID: userID, ProjectID: projectID}
	if u := f.users[userID]; u != nil {
		c.Username = u.Username
	}
	f.nextContributorID++
	f.contributors[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetContributor(_ context.Context, projectID, contributorID int64) (*models.Contributor, error) {
	c, ok := f.contributors[contributorID]
	if !ok || c.ProjectID != projectID {
		return nil, apperr.NotFound("contributor")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetContributorByUsername(_ context.Context, projectID int64, username string) (*models.Contributor, error) {
	for _, c := range f.contributors {
		if c.ProjectID == projectID && c.Username == username {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("contributor")
}

func (f *fakeStore) RemoveContributor(_ context.Context, contributorID int64) error {
	if _, ok := f.contributors[contributorID]; !ok {
		return apperr.NotFound("contributor")
	}
	delete(f.contributors, contributorID)
	return nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (f *fakeStore) HasContributor(_ context.Context, projectID, userID int64) (bool, error) {
	for _, c := range f.contributors {
		if c.ProjectID == projectID && c.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) contributorCount(projectID int64) int {
	n := 0
	for _, c := range f.contributors {
		if c.ProjectID == projectID {
			n++
		}
	}
	return n
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, int64, int64, string, string, int64, string) {}

func newHandler(store *fakeStore) *Handler {
	return NewHandler(store, store, authz.NewChecker(store), nopRecorder{})
}

func request(t *testing.T, method, target string, body interface{}, userID int64, params map[string]string) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithUserID(req.Context(), userID)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func projectParams(id int64) map[string]string {
	return map[string]string{"projectID": strconv.FormatInt(id, 10)}
}

// createProject drives the handler so tests exercise the same path as
// real requests.
func createProject(t *testing.T, h *Handler, author int64, title, typ string) *models.Project {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Create(rec, request(t, http.MethodPost, "/api/projects", models.CreateProjectRequest{
		Title: title, Description: "a project", Type: typ,
	}, author, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: got %d (body %s)", rec.Code, rec.Body.String())
	}
	var p models.Project
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return &p
}

func TestCreateProject_AuthorBecomesContributor(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	h := newHandler(store)

	p := createProject(t, h, 1, "backend rewrite", models.TypeBackend)

	if p.AuthorID != 1 {
		t.Errorf("author: got %d, want 1", p.AuthorID)
	}
	ok, _ := store.HasContributor(context.Background(), p.ID, 1)
	if !ok {
		t.Error("author should hold a contributor row immediately after creation")
	}
}

func TestCreateProject_InvalidType(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	h := newHandler(store)

	rec := httptest.NewRecorder()
	h.Create(rec, request(t, http.MethodPost, "/api/projects", models.CreateProjectRequest{
		Title: "x", Description: "y", Type: "DESKTOP",
	}, 1, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if len(store.projects) != 0 {
		t.Error("project persisted despite invalid type")
	}
}

func TestGetProject_StrangerForbiddenUntilAdded(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(3, "carol")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	// Carol was never added: 403.
	rec := httptest.NewRecorder()
	h.Get(rec, request(t, http.MethodGet, "/api/projects/1", nil, 3, projectParams(p.ID)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger GET: got %d, want 403", rec.Code)
	}

	// Alice adds Carol; the same GET now succeeds.
	rec = httptest.NewRecorder()
	h.AddContributor(rec, request(t, http.MethodPost, "/api/projects/1/contributors",
		models.AddContributorRequest{Username: "carol"}, 1, projectParams(p.ID)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add contributor: got %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Get(rec, request(t, http.MethodGet, "/api/projects/1", nil, 3, projectParams(p.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("contributor GET: got %d, want 200", rec.Code)
	}
}

func TestGetProject_DetailIncludesContributors(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeIOS)

	rec := httptest.NewRecorder()
	h.Get(rec, request(t, http.MethodGet, "/api/projects/1", nil, 1, projectParams(p.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var detail models.ProjectDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Author != "alice" {
		t.Errorf("author: got %q", detail.Author)
	}
	if len(detail.Contributors) != 1 || detail.Contributors[0].Username != "alice" {
		t.Errorf("contributors: got %+v", detail.Contributors)
	}
}

func TestUpdateProject_NonAuthorForbidden(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(2, "bob")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeAndroid)

	// Even as a contributor, Bob may not update.
	rec := httptest.NewRecorder()
	h.AddContributor(rec, request(t, http.MethodPost, "/api/projects/1/contributors",
		models.AddContributorRequest{Username: "bob"}, 1, projectParams(p.ID)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add contributor: got %d", rec.Code)
	}

	title := "hijacked"
	rec = httptest.NewRecorder()
	h.Update(rec, request(t, http.MethodPut, "/api/projects/1",
		models.UpdateProjectRequest{Title: &title}, 2, projectParams(p.ID)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}
	if store.projects[p.ID].Title != "p" {
		t.Error("title changed despite forbidden update")
	}
}

func TestUpdateProject_PartialByAuthor(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	desc := "new description"
	rec := httptest.NewRecorder()
	h.Update(rec, request(t, http.MethodPut, "/api/projects/1",
		models.UpdateProjectRequest{Description: &desc}, 1, projectParams(p.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rec.Code, rec.Body.String())
	}
	got := store.projects[p.ID]
	if got.Description != "new description" {
		t.Errorf("description: got %q", got.Description)
	}
	if got.Title != "p" || got.Type != models.TypeBackend {
		t.Error("untouched fields changed")
	}
}

func TestDeleteProject_AuthorOnly(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(2, "bob")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	rec := httptest.NewRecorder()
	h.Delete(rec, request(t, http.MethodDelete, "/api/projects/1", nil, 2, projectParams(p.ID)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-author delete: got %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, request(t, http.MethodDelete, "/api/projects/1", nil, 1, projectParams(p.ID)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("author delete: got %d, want 204", rec.Code)
	}
	if len(store.projects) != 0 {
		t.Error("project still present")
	}
}

func TestAddContributor_DuplicateRejected(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(2, "bob")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	add := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.AddContributor(rec, request(t, http.MethodPost, "/api/projects/1/contributors",
			models.AddContributorRequest{Username: "bob"}, 1, projectParams(p.ID)))
		return rec
	}

	if rec := add(); rec.Code != http.StatusCreated {
		t.Fatalf("first add: got %d", rec.Code)
	}
	before := store.contributorCount(p.ID)
	if rec := add(); rec.Code != http.StatusBadRequest {
		t.Fatalf("second add: got %d, want 400", rec.Code)
	}
	if store.contributorCount(p.ID) != before {
		t.Error("contributor set size changed on rejected duplicate")
	}
}

func TestAddContributor_UnknownUser(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	rec := httptest.NewRecorder()
	h.AddContributor(rec, request(t, http.MethodPost, "/api/projects/1/contributors",
		models.AddContributorRequest{Username: "ghost"}, 1, projectParams(p.ID)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}

func TestAddContributor_NonAuthorForbidden(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(2, "bob")
	store.addUser(3, "carol")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	rec := httptest.NewRecorder()
	h.AddContributor(rec, request(t, http.MethodPost, "/api/projects/1/contributors",
		models.AddContributorRequest{Username: "carol"}, 2, projectParams(p.ID)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}
}

func TestRemoveContributor_AuthorRowProtected(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	authorRow, err := store.GetContributorByUsername(context.Background(), p.ID, "alice")
	if err != nil {
		t.Fatalf("author contributor row missing: %v", err)
	}

	params := projectParams(p.ID)
	params["contributorID"] = strconv.FormatInt(authorRow.ID, 10)
	rec := httptest.NewRecorder()
	h.RemoveContributor(rec, request(t, http.MethodDelete, "/api/projects/1/contributors/1", nil, 1, params))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	ok, _ := store.HasContributor(context.Background(), p.ID, 1)
	if !ok {
		t.Error("author contributor row was removed")
	}
}

func TestRemoveContributor_ByIDAndByUsername(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(2, "bob")
	store.addUser(3, "carol")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	for _, name := range []string{"bob", "carol"} {
		rec := httptest.NewRecorder()
		h.AddContributor(rec, request(t, http.MethodPost, "/api/projects/1/contributors",
			models.AddContributorRequest{Username: name}, 1, projectParams(p.ID)))
		if rec.Code != http.StatusCreated {
			t.Fatalf("add %s: got %d", name, rec.Code)
		}
	}

	bobRow, _ := store.GetContributorByUsername(context.Background(), p.ID, "bob")
	params := projectParams(p.ID)
	params["contributorID"] = strconv.FormatInt(bobRow.ID, 10)
	rec := httptest.NewRecorder()
	h.RemoveContributor(rec, request(t, http.MethodDelete, "/x", nil, 1, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("remove by id: got %d (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "bob") {
		t.Errorf("confirmation should name the contributor: %s", rec.Body.String())
	}

	params["contributorID"] = "carol"
	rec = httptest.NewRecorder()
	h.RemoveContributor(rec, request(t, http.MethodDelete, "/x", nil, 1, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("remove by username: got %d", rec.Code)
	}
	if store.contributorCount(p.ID) != 1 {
		t.Errorf("contributors left: got %d, want 1 (the author)", store.contributorCount(p.ID))
	}
}

func TestRemoveContributor_NotAMember(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	h := newHandler(store)
	p := createProject(t, h, 1, "p", models.TypeBackend)

	params := projectParams(p.ID)
	params["contributorID"] = "9999"
	rec := httptest.NewRecorder()
	h.RemoveContributor(rec, request(t, http.MethodDelete, "/x", nil, 1, params))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}

func TestListProjects_FiltersByMembership(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(2, "bob")
	h := newHandler(store)
	createProject(t, h, 1, "alices", models.TypeBackend)
	createProject(t, h, 2, "bobs", models.TypeFrontend)

	rec := httptest.NewRecorder()
	h.List(rec, request(t, http.MethodGet, "/api/projects", nil, 1, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var got []models.Project
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Title != "alices" {
		t.Errorf("projects: got %+v", got)
	}
}
