package models

import "time"

// Comment represents a row in the comments table. UUID is the opaque
// external identifier; the serial id stays internal to the API paths.
type Comment struct {
	ID          int64     `json:"id"`
	UUID        string    `json:"uuid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IssueID     int64     `json:"issue_id"`
	AuthorID    int64     `json:"author_id"`
	Author      string    `json:"author"` // joined username
	CreatedTime time.Time `json:"created_time"`
}

// CreateCommentRequest is the JSON body for POST .../comments.
type CreateCommentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateCommentRequest carries partial comment updates.
type UpdateCommentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Attachment is the metadata row for a file uploaded to an issue; the
// bytes themselves live in object storage under ObjectKey.
type Attachment struct {
	ID          int64     `json:"id"`
	IssueID     int64     `json:"issue_id"`
	AuthorID    int64     `json:"author_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ObjectKey   string    `json:"-"`
	CreatedTime time.Time `json:"created_time"`
}
