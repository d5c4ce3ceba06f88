package collab

import "time"

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task belongs to a project. SubTasks share the same shape.
type Task struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	Project     *Ref      `json:"project,omitempty"`
	Assignee    *UserRef  `json:"assignee,omitempty"`
	Users       []UserRef `json:"users,omitempty"`
	Members     []Member  `json:"members,omitempty"`

	// Title is the legacy name field still returned by older endpoints.
	Title string `json:"title,omitempty"`

	SubTasksCount    int `json:"sub_tasks_count,omitempty"`
	CommentsCount    int `json:"comments_count,omitempty"`
	TagsCount        int `json:"tags_count,omitempty"`
	MembersCount     int `json:"members_count,omitempty"`
	AttachmentsCount int `json:"attachments_count,omitempty"`

	Comments    []Comment    `json:"comments,omitempty"`
	Tags        []Tag        `json:"tags,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	SubTasks    []Task       `json:"sub_tasks,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DisplayName returns Name, falling back to the legacy Title.
func (t Task) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Title
}

// TaskInput carries task fields; empty fields are left unchanged on update.
type TaskInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// Ref is a minimal reference to another resource.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
