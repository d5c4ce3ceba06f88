package collab

import (
	"fmt"
	"sort"
	"strings"
	"time"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

// FilterTeams keeps teams whose name or description contains query,
// ignoring case. An empty query keeps every team.
func FilterTeams(teams []model.Team, query string) []model.Team {
	q := strings.ToLower(query)
	out := make([]model.Team, 0, len(teams))
	for _, t := range teams {
		if contains(t.Name, q) || contains(t.Description, q) {
			out = append(out, t)
		}
	}
	return out
}

// TaskFilter narrows a task list. Empty Status or Priority match everything.
type TaskFilter struct {
	Query    string
	Status   string
	Priority string
	HideDone bool
}

// Apply returns the tasks matching f, in their original order.
func (f TaskFilter) Apply(tasks []model.Task) []model.Task {
	q := strings.ToLower(f.Query)
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if q != "" && !contains(t.DisplayName(), q) && !contains(t.Description, q) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.HideDone && t.Status == model.StatusDone {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ProjectFilter narrows a team's project list.
type ProjectFilter struct {
	Query         string
	Status        string
	HideCompleted bool
}

// Apply splits projects into the filtered active ones and every archived
// project. Archived projects ignore the filter.
func (f ProjectFilter) Apply(projects []model.Project) (active, archived []model.Project) {
	q := strings.ToLower(f.Query)
	active = make([]model.Project, 0, len(projects))
	archived = make([]model.Project, 0)
	for _, p := range projects {
		if p.Status == model.ProjectArchived {
			archived = append(archived, p)
			continue
		}
		if !contains(p.Name, q) && !contains(p.Description, q) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.HideCompleted && p.Status == model.ProjectCompleted {
			continue
		}
		active = append(active, p)
	}
	return active, archived
}

// TaskStats counts tasks per status.
type TaskStats struct {
	Total      int `json:"total" yaml:"total"`
	Done       int `json:"done" yaml:"done"`
	InProgress int `json:"in_progress" yaml:"in_progress"`
	Todo       int `json:"todo" yaml:"todo"`
}

// SummarizeTasks counts tasks by status. Unknown statuses only add to Total.
func SummarizeTasks(tasks []model.Task) TaskStats {
	s := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case model.StatusDone:
			s.Done++
		case model.StatusInProgress:
			s.InProgress++
		case model.StatusTodo:
			s.Todo++
		}
	}
	return s
}

// SortActivities returns a copy of acts, newest first. A positive limit
// truncates the result.
func SortActivities(acts []model.Activity, limit int) []model.Activity {
	out := append([]model.Activity(nil), acts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []model.Activity{}
	}
	return out
}

// UnreadCount counts activities that were never marked read.
func UnreadCount(acts []model.Activity) int {
	n := 0
	for _, a := range acts {
		if a.Unread() {
			n++
		}
	}
	return n
}

// RelativeTime formats t relative to now: "just now", "5m ago", "3h ago",
// "2d ago", or the calendar date after a week.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// PendingInvitations keeps the invitations still awaiting an answer.
func PendingInvitations(invs []model.Invitation) []model.Invitation {
	out := make([]model.Invitation, 0, len(invs))
	for _, inv := range invs {
		if inv.Status == model.InvitationPending {
			out = append(out, inv)
		}
	}
	return out
}

// AssetURL resolves an uploaded file's URL against the asset host. Absolute
// URLs pass through and an empty rel stays empty.
func AssetURL(base, rel string) string {
	if rel == "" || strings.HasPrefix(rel, "http") {
		return rel
	}
	return strings.TrimRight(base, "/") + rel
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
