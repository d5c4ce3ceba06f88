package handler_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	"github.com/zhouzirui/teamboard/internal/handler"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/internal/service/collab"
	"github.com/zhouzirui/teamboard/internal/service/mockapi"
	"github.com/zhouzirui/teamboard/internal/session"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type upstream struct {
	url   string
	clock *clock
}

func startUpstream(t *testing.T) *upstream {
	t.Helper()
	clk := &clock{now: time.Now()}
	svc := mockapi.NewService(time.Minute, mockapi.WithClock(clk.Now))
	srv := httptest.NewServer(handler.NewRouter(svc, nil))
	t.Cleanup(srv.Close)
	return &upstream{url: srv.URL + handler.APIPrefix, clock: clk}
}

func (u *upstream) client(t *testing.T, storage session.Storage) (*apiclient.Client, *session.Session) {
	t.Helper()
	sess, err := session.New(storage)
	if err != nil {
		t.Fatalf("session.New err: %v", err)
	}
	client, err := apiclient.New(u.url, sess)
	if err != nil {
		t.Fatalf("apiclient.New err: %v", err)
	}
	return client, sess
}

func signupClient(t *testing.T, u *upstream, username string) (*apiclient.Client, *collab.Service) {
	t.Helper()
	client, sess := u.client(t, session.NewMemoryStorage())
	res := client.Signup(context.Background(), apiclient.Registration{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
	})
	if !res.Ok() {
		t.Fatalf("signup %s failed: %s", username, res.Error)
	}
	if !sess.Authenticated() {
		t.Fatalf("expected %s to be signed in", username)
	}
	return client, collab.NewService(client)
}

func TestEndToEndWorkspace(t *testing.T) {
	ctx := context.Background()
	u := startUpstream(t)
	_, ada := signupClient(t, u, "ada")

	team, err := ada.CreateTeam(ctx, model.TeamInput{Name: "core", Description: "platform team"})
	if err != nil {
		t.Fatalf("CreateTeam err: %v", err)
	}
	teams, err := ada.ListTeams(ctx)
	if err != nil || len(teams) != 1 || teams[0].ID != team.ID {
		t.Fatalf("ListTeams got %+v, %v", teams, err)
	}
	got, err := ada.GetTeam(ctx, team.ID)
	if err != nil || got.Name != "core" || got.Role != model.RoleOwner {
		t.Fatalf("GetTeam got %+v, %v", got, err)
	}

	project, err := ada.CreateProject(ctx, team.ID, model.ProjectInput{Name: "launch"})
	if err != nil {
		t.Fatalf("CreateProject err: %v", err)
	}
	projects, err := ada.ListProjects(ctx, team.ID)
	if err != nil || len(projects) != 1 || projects[0].ID != project.ID {
		t.Fatalf("ListProjects got %+v, %v", projects, err)
	}

	task, err := ada.CreateTask(ctx, project.ID, model.TaskInput{Name: "write docs", Priority: model.PriorityHigh})
	if err != nil {
		t.Fatalf("CreateTask err: %v", err)
	}
	if _, err := ada.CreateTask(ctx, project.ID, model.TaskInput{Name: "ship", Status: model.StatusDone}); err != nil {
		t.Fatalf("CreateTask err: %v", err)
	}
	tasks, err := ada.ListTasks(ctx, project.ID)
	if err != nil || len(tasks) != 2 {
		t.Fatalf("ListTasks got %+v, %v", tasks, err)
	}
	if stats := collab.SummarizeTasks(tasks); stats.Done != 1 || stats.Todo != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	sub, err := ada.CreateSubTask(ctx, task.ID, model.TaskInput{Name: "outline"})
	if err != nil {
		t.Fatalf("CreateSubTask err: %v", err)
	}
	subs, err := ada.ListSubTasks(ctx, task.ID)
	if err != nil || len(subs) != 1 || subs[0].ID != sub.ID || subs[0].Name != "outline" {
		t.Fatalf("ListSubTasks got %+v, %v", subs, err)
	}
	if _, err := ada.UpdateSubTask(ctx, sub.ID, model.TaskInput{Status: model.StatusDone}); err != nil {
		t.Fatalf("UpdateSubTask err: %v", err)
	}

	if _, err := ada.AddProjectComment(ctx, project.ID, "kickoff"); err != nil {
		t.Fatalf("AddProjectComment err: %v", err)
	}
	tag, err := ada.AddProjectTag(ctx, project.ID, "q1")
	if err != nil {
		t.Fatalf("AddProjectTag err: %v", err)
	}
	if err := ada.RemoveProjectTag(ctx, project.ID, tag.ID); err != nil {
		t.Fatalf("RemoveProjectTag err: %v", err)
	}
	detail, err := ada.GetProject(ctx, project.ID)
	if err != nil || len(detail.Comments) != 1 || len(detail.Tags) != 0 {
		t.Fatalf("GetProject got %+v, %v", detail, err)
	}

	att, err := ada.AddTaskAttachment(ctx, task.ID, "notes.txt", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("AddTaskAttachment err: %v", err)
	}
	if !strings.HasPrefix(att.URL, "/rails/active_storage/") {
		t.Fatalf("expected relative blob url, got %q", att.URL)
	}
	var buf bytes.Buffer
	if _, err := ada.DownloadTaskAttachment(ctx, task.ID, att.ID, &buf); err != nil || buf.String() != "hello world" {
		t.Fatalf("DownloadTaskAttachment got %q, %v", buf.String(), err)
	}

	_, err = ada.CreateTeam(ctx, model.TeamInput{})
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity || apiErr.Message != "Name can't be blank" {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := ada.DeleteTeam(ctx, team.ID); err != nil {
		t.Fatalf("DeleteTeam err: %v", err)
	}
	if teams, err := ada.ListTeams(ctx); err != nil || len(teams) != 0 {
		t.Fatalf("expected no teams after delete, got %+v, %v", teams, err)
	}
}

func TestEndToEndRefreshAfterExpiry(t *testing.T) {
	ctx := context.Background()
	u := startUpstream(t)
	storage := session.NewFileStorage(filepath.Join(t.TempDir(), "session.json"))

	client, sess := u.client(t, storage)
	if res := client.Signup(ctx, apiclient.Registration{Username: "ada", Email: "ada@example.com", Password: "secret1"}); !res.Ok() {
		t.Fatalf("signup failed: %s", res.Error)
	}
	first := sess.Token()

	u.clock.Advance(2 * time.Minute)
	me, err := collab.NewService(client).Me(ctx)
	if err != nil || me.Username != "ada" {
		t.Fatalf("Me after expiry got %+v, %v", me, err)
	}
	if sess.Token() == "" || sess.Token() == first {
		t.Fatal("expected the expired token to be replaced")
	}

	// A new process picks up the persisted refresh cookie.
	u.clock.Advance(2 * time.Minute)
	restarted, restartedSess := u.client(t, storage)
	if restartedSess.Token() != sess.Token() {
		t.Fatal("expected token to be rehydrated from storage")
	}
	if _, err := collab.NewService(restarted).Me(ctx); err != nil {
		t.Fatalf("Me from restarted client err: %v", err)
	}

	restarted.Logout(ctx)
	if restartedSess.Authenticated() {
		t.Fatal("expected logout to clear the session")
	}
	res := restarted.Get(ctx, "/me")
	if res.Error != apiclient.MsgAuthExpired {
		t.Fatalf("expected %q after logout, got %q", apiclient.MsgAuthExpired, res.Error)
	}
}

func TestEndToEndInvitations(t *testing.T) {
	ctx := context.Background()
	u := startUpstream(t)
	_, ada := signupClient(t, u, "ada")
	_, bob := signupClient(t, u, "bob")

	team, err := ada.CreateTeam(ctx, model.TeamInput{Name: "core"})
	if err != nil {
		t.Fatalf("CreateTeam err: %v", err)
	}
	if err := ada.InviteTeamMember(ctx, team.ID, collab.MemberInvite{Username: "bob", Role: model.RoleMember}); err != nil {
		t.Fatalf("InviteTeamMember err: %v", err)
	}
	err = ada.InviteTeamMember(ctx, team.ID, collab.MemberInvite{Username: "nobody", Role: model.RoleMember})
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown invitee, got %v", err)
	}

	invs, err := bob.ListInvitations(ctx)
	if err != nil {
		t.Fatalf("ListInvitations err: %v", err)
	}
	pending := collab.PendingInvitations(invs)
	if len(pending) != 1 || pending[0].InvitableName != "core" || pending[0].Inviter.Username != "ada" {
		t.Fatalf("unexpected invitations %+v", invs)
	}

	acts, err := bob.ListActivities(ctx)
	if err != nil || len(acts) != 1 {
		t.Fatalf("ListActivities got %+v, %v", acts, err)
	}
	if msg := acts[0].Message(); msg != `ada invited you to team "core"` {
		t.Fatalf("unexpected activity message %q", msg)
	}
	if collab.UnreadCount(acts) != 1 {
		t.Fatal("expected one unread activity")
	}

	if err := bob.AcceptInvitation(ctx, pending[0].ID); err != nil {
		t.Fatalf("AcceptInvitation err: %v", err)
	}
	teams, err := bob.ListTeams(ctx)
	if err != nil || len(teams) != 1 || teams[0].Role != model.RoleMember {
		t.Fatalf("expected bob to join, got %+v, %v", teams, err)
	}

	if _, err := ada.CreateProject(ctx, team.ID, model.ProjectInput{Name: "launch"}); err != nil {
		t.Fatalf("CreateProject err: %v", err)
	}
	if err := bob.MarkAllActivitiesRead(ctx); err != nil {
		t.Fatalf("MarkAllActivitiesRead err: %v", err)
	}
	acts, _ = bob.ListActivities(ctx)
	if len(acts) != 2 || collab.UnreadCount(acts) != 0 {
		t.Fatalf("expected two read activities, got %+v", acts)
	}
}
