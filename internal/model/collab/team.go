package collab

import "time"

// Team groups projects and members.
type Team struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	MembersCount int       `json:"members_count,omitempty"`
	Role         string    `json:"role,omitempty"`
	Members      []Member  `json:"members,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// TeamInput is the writable part of a team.
type TeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Project belongs to a team and holds tasks.
type Project struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Status       string       `json:"status,omitempty"`
	TasksCount   int          `json:"tasks_count,omitempty"`
	MembersCount int          `json:"members_count,omitempty"`
	Members      []Member     `json:"members,omitempty"`
	Comments     []Comment    `json:"comments,omitempty"`
	Tags         []Tag        `json:"tags,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
}

// ProjectInput carries project fields; empty fields are left unchanged on update.
type ProjectInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

// Comment is a note on a project or task.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	User      UserRef   `json:"user"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Tag labels a project or task.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Attachment is a file uploaded to a project or task.
type Attachment struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
