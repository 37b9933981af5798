// Package activity records mutations on a project's objects and serves
// the per-project activity feed.
package activity

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/authz"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/models"
)

// EventStore is the event persistence (MongoDB in production).
type EventStore interface {
	Insert(ctx context.Context, ev *models.Event) error
	ListByProject(ctx context.Context, projectID int64) ([]models.Event, error)
}

// UserStore resolves actor usernames for recorded events.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Recorder writes events best-effort: recording failures are logged and
// never surfaced to the request that triggered them.
type Recorder struct {
	events EventStore
	users  UserStore
}

func NewRecorder(events EventStore, users UserStore) *Recorder {
	return &Recorder{events: events, users: users}
}

// Record persists one event for a successful mutation.
func (rec *Recorder) Record(ctx context.Context, projectID, actorID int64, action, objectType string, objectID int64, detail string) {
	actor := ""
	if u, err := rec.users.GetUserByID(ctx, actorID); err == nil {
		actor = u.Username
	}
	ev := &models.Event{
		ProjectID:  projectID,
		ActorID:    actorID,
		Actor:      actor,
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		Detail:     detail,
	}
	if err := rec.events.Insert(ctx, ev); err != nil {
		log.Printf("activity record: %v", err)
	}
}

// ProjectStore resolves the project whose feed is requested.
type ProjectStore interface {
	GetProject(ctx context.Context, id int64) (*models.Project, error)
}

// Handler serves the activity feed endpoint.
type Handler struct {
	events   EventStore
	projects ProjectStore
	checker  *authz.Checker
}

func NewHandler(events EventStore, projects ProjectStore, checker *authz.Checker) *Handler {
	return &Handler{events: events, projects: projects, checker: checker}
}

// List returns a project's events, newest first. Author-or-contributor.
// GET /api/projects/{id}/activity.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserID(r)
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		apperr.Write(w, apperr.NotFound("project"))
		return
	}

	project, err := h.projects.GetProject(r.Context(), projectID)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	ok, err := h.checker.IsAuthorOrContributor(r.Context(), project, requester)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	if !ok {
		apperr.Write(w, apperr.Authorization())
		return
	}

	events, err := h.events.ListByProject(r.Context(), projectID)
	if err != nil {
		apperr.Write(w, apperr.Internal(err))
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
