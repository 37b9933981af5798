package models

import "time"

// Issue priorities, tags and progress states form closed sets.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"

	TagBug     = "BUG"
	TagFeature = "FEATURE"
	TagTask    = "TASK"

	ProgressTodo       = "TODO"
	ProgressInProgress = "INPROGRESS"
	ProgressFinished   = "FINISHED"
)

// ValidPriority reports whether p is one of the allowed priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidTag reports whether t is one of the allowed issue tags.
func ValidTag(t string) bool {
	switch t {
	case TagBug, TagFeature, TagTask:
		return true
	}
	return false
}

// ValidProgress reports whether p is one of the allowed progress states.
// Transitions between states are deliberately unordered: the issue
// author may set any state at any time.
func ValidProgress(p string) bool {
	switch p {
	case ProgressTodo, ProgressInProgress, ProgressFinished:
		return true
	}
	return false
}

// Issue represents a row in the issues table. Assignee is optional and
// nulled out when the assigned user is deleted.
type Issue struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Tag         string    `json:"tag"`
	Progress    string    `json:"progress"`
	AuthorID    int64     `json:"author_id"`
	Author      string    `json:"author"` // joined username
	AssigneeID  *int64    `json:"assignee_id,omitempty"`
	Assignee    string    `json:"assignee,omitempty"` // joined username
	ProjectID   int64     `json:"project_id"`
	CreatedTime time.Time `json:"created_time"`
}

// CreateIssueRequest is the JSON body for POST .../issues.
type CreateIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Tag         string `json:"tag"`
	Progress    string `json:"progress"`
	Assignee    string `json:"assignee"` // username, optional
}

// UpdateIssueRequest carries partial issue updates. A non-nil empty
// Assignee clears the assignment.
type UpdateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Tag         *string `json:"tag"`
	Progress    *string `json:"progress"`
	Assignee    *string `json:"assignee"`
}
