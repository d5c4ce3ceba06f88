// Package mockapi is an in-memory implementation of the collaboration API
// used for local development and end-to-end tests.
package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("already exists")
)

// ValidationError lists every rejected field of a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func invalid(messages ...string) error {
	return &ValidationError{Messages: messages}
}

// Service holds the whole fake workspace behind one lock.
type Service struct {
	mu       sync.RWMutex
	now      func() time.Time
	tokenTTL time.Duration
	nextID   int64

	users       map[int64]*account
	access      map[string]grant
	refresh     map[string]int64
	resets      map[string]int64
	teams       map[int64]*team
	projects    map[int64]*project
	tasks       map[int64]*task
	activities  []*activity
	invitations map[int64]*invitation
	files       map[int64][]byte
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly to expire tokens in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService bootstraps an empty workspace. Access tokens live for tokenTTL.
func NewService(tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		now:         time.Now,
		tokenTTL:    tokenTTL,
		users:       make(map[int64]*account),
		access:      make(map[string]grant),
		refresh:     make(map[string]int64),
		resets:      make(map[string]int64),
		teams:       make(map[int64]*team),
		projects:    make(map[int64]*project),
		tasks:       make(map[int64]*task),
		invitations: make(map[int64]*invitation),
		files:       make(map[int64][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type account struct {
	user     model.User
	password string
}

type grant struct {
	userID  int64
	expires time.Time
}

// members maps user ids to roles.
type members map[int64]string

type extras struct {
	comments    []model.Comment
	tags        []model.Tag
	attachments []model.Attachment
}

type team struct {
	id          int64
	name        string
	description string
	createdAt   time.Time
	members     members
}

type project struct {
	extras
	id          int64
	teamID      int64
	name        string
	description string
	status      string
	createdAt   time.Time
	members     members
}

type task struct {
	extras
	id          int64
	projectID   int64
	parentID    int64
	name        string
	description string
	status      string
	priority    string
	dueDate     string
	createdAt   time.Time
	updatedAt   time.Time
	members     members
}

type activity struct {
	model.Activity
	recipient int64
}

type invitation struct {
	model.Invitation
	inviteeID int64
}

func (s *Service) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Service) ref(userID int64) model.UserRef {
	acc, ok := s.users[userID]
	if !ok {
		return model.UserRef{ID: userID}
	}
	return model.UserRef{ID: userID, Username: acc.user.Username, Email: acc.user.Email}
}

func (s *Service) userByName(username string) (*account, bool) {
	for _, acc := range s.users {
		if strings.EqualFold(acc.user.Username, username) {
			return acc, true
		}
	}
	return nil, false
}

func (s *Service) memberList(m members) []model.Member {
	out := make([]model.Member, 0, len(m))
	for id, role := range m {
		ref := s.ref(id)
		out = append(out, model.Member{ID: id, Username: ref.Username, Email: ref.Email, Role: role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) teamView(t *team, userID int64) model.Team {
	return model.Team{
		ID:           t.id,
		Name:         t.name,
		Description:  t.description,
		MembersCount: len(t.members),
		Role:         t.members[userID],
		Members:      s.memberList(t.members),
		CreatedAt:    t.createdAt,
	}
}

func (s *Service) projectView(p *project, detailed bool) model.Project {
	v := model.Project{
		ID:           p.id,
		Name:         p.name,
		Description:  p.description,
		Status:       p.status,
		MembersCount: len(p.members),
		CreatedAt:    p.createdAt,
	}
	for _, t := range s.tasks {
		if t.projectID == p.id && t.parentID == 0 {
			v.TasksCount++
		}
	}
	if detailed {
		v.Members = s.memberList(p.members)
		v.Comments = append([]model.Comment{}, p.comments...)
		v.Tags = append([]model.Tag{}, p.tags...)
		v.Attachments = append([]model.Attachment{}, p.attachments...)
	}
	return v
}

func (s *Service) taskView(t *task, detailed bool) model.Task {
	v := model.Task{
		ID:               t.id,
		Name:             t.name,
		Description:      t.description,
		Status:           t.status,
		Priority:         t.priority,
		DueDate:          t.dueDate,
		MembersCount:     len(t.members),
		CommentsCount:    len(t.comments),
		TagsCount:        len(t.tags),
		AttachmentsCount: len(t.attachments),
		CreatedAt:        t.createdAt,
		UpdatedAt:        t.updatedAt,
	}
	if p, ok := s.projects[t.projectID]; ok {
		v.Project = &model.Ref{ID: p.id, Name: p.name}
	}
	for id, role := range t.members {
		if role == model.RoleAssignee && v.Assignee == nil {
			ref := s.ref(id)
			v.Assignee = &ref
		}
		v.Users = append(v.Users, s.ref(id))
	}
	sort.Slice(v.Users, func(i, j int) bool { return v.Users[i].ID < v.Users[j].ID })
	for _, sub := range s.sortedTasks(func(c *task) bool { return c.parentID == t.id }) {
		v.SubTasksCount++
		if detailed {
			v.SubTasks = append(v.SubTasks, s.taskView(sub, false))
		}
	}
	if detailed {
		v.Members = s.memberList(t.members)
		v.Comments = append([]model.Comment{}, t.comments...)
		v.Tags = append([]model.Tag{}, t.tags...)
		v.Attachments = append([]model.Attachment{}, t.attachments...)
	}
	return v
}

func (s *Service) sortedTasks(keep func(*task) bool) []*task {
	var out []*task
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// notify records an activity for every recipient other than the actor.
func (s *Service) notify(recipients []int64, actorID int64, action string, target model.Notifiable) {
	actor := s.ref(actorID)
	for _, uid := range recipients {
		if uid == actorID {
			continue
		}
		actor, target := actor, target
		s.activities = append(s.activities, &activity{
			Activity: model.Activity{
				ID:         s.id(),
				Action:     action,
				Actor:      &actor,
				Notifiable: &target,
				CreatedAt:  s.now().UTC(),
			},
			recipient: uid,
		})
	}
}

func (m members) ids() []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m members) has(userID int64, roles ...string) bool {
	role, ok := m[userID]
	if !ok {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// promote moves a role one step up the ladder, demote one step down.
func promote(role string) string {
	switch role {
	case model.RoleMember, model.RoleAssignee:
		return model.RoleAdmin
	default:
		return role
	}
}

func demote(role, floor string) string {
	if role == model.RoleAdmin {
		return floor
	}
	return role
}
