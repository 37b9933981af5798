package models

import "time"

// Project types form a closed set.
const (
	TypeBackend  = "BACKEND"
	TypeFrontend = "FRONTEND"
	TypeIOS      = "IOS"
	TypeAndroid  = "ANDROID"
)

// ValidProjectType reports whether t is one of the allowed project types.
func ValidProjectType(t string) bool {
	switch t {
	case TypeBackend, TypeFrontend, TypeIOS, TypeAndroid:
		return true
	}
	return false
}

// Project represents a row in the projects table.
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	AuthorID    int64     `json:"author_id"`
	CreatedTime time.Time `json:"created_time"`
}

// Contributor is a (user, project) membership row. Unique per pair.
type Contributor struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ProjectID int64  `json:"project_id"`
	Username  string `json:"username"` // joined from users
}

// IssueSummary is the id+title view nested in a project detail.
type IssueSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ProjectDetail is the full project view with nested contributors and
// issue summaries.
type ProjectDetail struct {
	Project
	Author       string         `json:"author"` // username
	Contributors []Contributor  `json:"contributors"`
	Issues       []IssueSummary `json:"issues"`
}

// CreateProjectRequest is the JSON body for POST /api/projects.
type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// UpdateProjectRequest carries partial project updates.
type UpdateProjectRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
}

// AddContributorRequest is the JSON body for POST .../contributors.
type AddContributorRequest struct {
	Username string `json:"username"`
}
