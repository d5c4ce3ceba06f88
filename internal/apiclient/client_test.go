package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zhouzirui/teamboard/internal/session"
)

type fakeAPI struct {
	mu          sync.Mutex
	authHeaders []string
	refreshes   atomic.Int32
	teamsCalls  atomic.Int32
}

func (f *fakeAPI) recordAuth(r *http.Request) {
	f.mu.Lock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	f.mu.Unlock()
}

func (f *fakeAPI) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.authHeaders) == 0 {
		return ""
	}
	return f.authHeaders[len(f.authHeaders)-1]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T, r http.Handler, token string) (*Client, *session.Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	sess, err := session.New(session.NewMemoryStorage())
	if err != nil {
		t.Fatalf("session.New err: %v", err)
	}
	if token != "" {
		if err := sess.Set(token); err != nil {
			t.Fatalf("Set err: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := New(srv.URL+"/api/v1", sess, WithLogger(logger))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	return client, sess, srv
}

func TestAuthorizationHeaderWithToken(t *testing.T) {
	api := &fakeAPI{}
	r := chi.NewRouter()
	r.Get("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		api.recordAuth(r)
		writeJSON(w, http.StatusOK, []map[string]int{{"id": 1}})
	})

	client, _, _ := newTestClient(t, r, "abc")
	res := client.Get(context.Background(), "/teams")
	if !res.Ok() {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if got := api.lastAuth(); got != "Bearer abc" {
		t.Fatalf("expected Bearer abc, got %q", got)
	}
	if string(res.Data) != `[{"id":1}]` {
		t.Fatalf("unexpected data %s", res.Data)
	}
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	api := &fakeAPI{}
	r := chi.NewRouter()
	r.Get("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		api.recordAuth(r)
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		writeJSON(w, http.StatusOK, []any{})
	})

	client, _, _ := newTestClient(t, r, "")
	if res := client.Get(context.Background(), "/teams"); !res.Ok() {
		t.Fatalf("expected success, got %q", res.Error)
	}
}

func TestRefreshAndRetryOnUnauthorized(t *testing.T) {
	api := &fakeAPI{}
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshes.Add(1)
		if r.Header.Get("Authorization") != "" {
			t.Errorf("refresh must not carry a bearer token")
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "X"})
	})
	r.Get("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		api.teamsCalls.Add(1)
		api.recordAuth(r)
		if r.Header.Get("Authorization") != "Bearer X" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]int{{"id": 7}}})
	})

	client, sess, _ := newTestClient(t, r, "stale")
	res := client.Get(context.Background(), "/teams")
	if !res.Ok() {
		t.Fatalf("expected recovered success, got %q", res.Error)
	}
	if sess.Token() != "X" {
		t.Fatalf("expected stored token X, got %q", sess.Token())
	}
	if got := api.lastAuth(); got != "Bearer X" {
		t.Fatalf("expected retry with Bearer X, got %q", got)
	}
	if string(res.Data) != `{"data":[{"id":7}]}` {
		t.Fatalf("expected retried body, got %s", res.Data)
	}
	if api.refreshes.Load() != 1 || api.teamsCalls.Load() != 2 {
		t.Fatalf("expected 1 refresh and 2 calls, got %d and %d", api.refreshes.Load(), api.teamsCalls.Load())
	}
}

func TestRefreshWithoutTokenExpiresSession(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "nope"})
	})
	r.Get("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})

	client, sess, _ := newTestClient(t, r, "stale")
	res := client.Get(context.Background(), "/me")
	if res.Error != MsgAuthExpired {
		t.Fatalf("expected %q, got %q", MsgAuthExpired, res.Error)
	}
	if sess.Authenticated() {
		t.Fatal("expected session cleared")
	}
}

func TestRefreshFailureStatusExpiresSession(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "refresh token invalid"})
	})
	r.Get("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})

	client, sess, _ := newTestClient(t, r, "stale")
	res := client.Get(context.Background(), "/me")
	if res.Error != MsgAuthExpired {
		t.Fatalf("expected %q, got %q", MsgAuthExpired, res.Error)
	}
	if sess.Authenticated() {
		t.Fatal("expected session cleared")
	}
}

func TestRetryStillUnauthorizedClearsSession(t *testing.T) {
	api := &fakeAPI{}
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshes.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "X"})
	})
	r.Get("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		api.teamsCalls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "still no"})
	})

	client, sess, _ := newTestClient(t, r, "stale")
	res := client.Get(context.Background(), "/teams")
	if res.Ok() || res.Data != nil {
		t.Fatalf("expected failure without data, got %+v", res)
	}
	if res.Error != "still no" {
		t.Fatalf("expected server message, got %q", res.Error)
	}
	if sess.Authenticated() {
		t.Fatal("expected session cleared after failed retry")
	}
	if api.refreshes.Load() != 1 || api.teamsCalls.Load() != 2 {
		t.Fatalf("expected exactly one refresh and one retry, got %d refreshes %d calls", api.refreshes.Load(), api.teamsCalls.Load())
	}
}

func TestRetryFailureFallsBackToAuthFailed(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "X"})
	})
	r.Get("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer X" {
			writeJSON(w, http.StatusForbidden, map[string]string{})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{})
	})

	client, sess, _ := newTestClient(t, r, "stale")
	res := client.Get(context.Background(), "/teams")
	if res.Error != MsgAuthFailed || res.Status != http.StatusForbidden {
		t.Fatalf("expected %q with 403, got %q (%d)", MsgAuthFailed, res.Error, res.Status)
	}
	if sess.Authenticated() {
		t.Fatal("expected session cleared after failed retry")
	}
}

func TestRefreshPathNeverRefreshes(t *testing.T) {
	api := &fakeAPI{}
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		api.refreshes.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no cookie"})
	})

	client, sess, _ := newTestClient(t, r, "abc")
	res := client.Post(context.Background(), RefreshPath, nil)
	if res.Error != "no cookie" {
		t.Fatalf("expected server error, got %q", res.Error)
	}
	if api.refreshes.Load() != 1 {
		t.Fatalf("expected a single call to /refresh, got %d", api.refreshes.Load())
	}
	if sess.Authenticated() {
		t.Fatal("expected session cleared on unauthorized")
	}
}

func TestTransportFailureIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sess, _ := session.New(session.NewMemoryStorage())
	_ = sess.Set("abc")
	client, err := New(url, sess, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	res := client.Get(context.Background(), "/teams")
	if res.Error != MsgNetworkError {
		t.Fatalf("expected %q, got %q", MsgNetworkError, res.Error)
	}
	if sess.Token() != "abc" {
		t.Fatal("transport failure must not touch the session")
	}
	if !IsNetworkError(res.Err()) {
		t.Fatalf("expected IsNetworkError, got %v", res.Err())
	}
}

func TestTransportFailureDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("hijack unsupported")
			return
		}
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	defer srv.Close()

	sess, _ := session.New(session.NewMemoryStorage())
	client, _ := New(srv.URL, sess, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	res := client.Post(context.Background(), "/teams", JSON(map[string]string{"name": "x"}))
	if res.Error != MsgNetworkError {
		t.Fatalf("expected %q, got %q", MsgNetworkError, res.Error)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls.Load())
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "error string", body: `{"error":"Team not found"}`, want: "Team not found"},
		{name: "error list", body: `{"error":["Name can't be blank","Name is too short"]}`, want: "Name can't be blank, Name is too short"},
		{name: "message only", body: `{"message":"Validation failed"}`, want: "Validation failed"},
		{name: "error wins", body: `{"error":"a","message":"b"}`, want: "a"},
		{name: "nothing", body: `{}`, want: MsgGenericError},
		{name: "not json", body: `<html>bad gateway</html>`, want: MsgGenericError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/v1/teams/1", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tt.body))
			})
			client, sess, _ := newTestClient(t, r, "abc")

			res := client.Get(context.Background(), "/teams/1")
			if res.Error != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, res.Error)
			}
			if res.Status != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d", res.Status)
			}
			if !sess.Authenticated() {
				t.Fatal("non-401 errors must keep the session")
			}

			var apiErr *Error
			if !errors.As(res.Err(), &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
				t.Fatalf("expected *Error with status, got %v", res.Err())
			}
		})
	}
}

func TestSuccessShapes(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/api/v1/teams/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Put("/api/v1/teams/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Team updated", "data": map[string]int{"id": 1}})
	})
	r.Get("/api/v1/broken", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	client, _, _ := newTestClient(t, r, "abc")
	ctx := context.Background()

	del := client.Delete(ctx, "/teams/1")
	if !del.Ok() || string(del.Data) != "null" {
		t.Fatalf("expected empty success to be ok with null data, got %+v", del)
	}

	put := client.Put(ctx, "/teams/1", JSON(map[string]any{"team": map[string]string{"name": "n"}}))
	if !put.Ok() || put.Message != "Team updated" {
		t.Fatalf("expected message alongside data, got %+v", put)
	}

	broken := client.Get(ctx, "/broken")
	if broken.Ok() || broken.Error != MsgInvalidResponse {
		t.Fatalf("expected invalid response error, got %+v", broken)
	}
}

func TestRequestBodies(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"team":{"name":"core"}}` {
			t.Errorf("unexpected body %s", body)
		}
		writeJSON(w, http.StatusCreated, map[string]int{"id": 1})
	})
	r.Post("/api/v1/tasks/3/attachments", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
			t.Errorf("expected multipart content type, got %q", ct)
		}
		if r.Header.Get("X-Trace") != "yes" {
			t.Errorf("expected extra header to be forwarded")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile err: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		if header.Filename != "notes.txt" || string(content) != "hello" {
			t.Errorf("unexpected upload %s %q", header.Filename, content)
		}
		writeJSON(w, http.StatusCreated, map[string]int{"id": 9})
	})
	client, _, _ := newTestClient(t, r, "abc")
	ctx := context.Background()

	if res := client.Post(ctx, "/teams", JSON(map[string]any{"team": map[string]string{"name": "core"}})); !res.Ok() {
		t.Fatalf("json post failed: %q", res.Error)
	}

	form := NewForm().File("file", "notes.txt", bytes.NewBufferString("hello"))
	res := client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/tasks/3/attachments",
		Body:   form,
		Header: http.Header{"X-Trace": []string{"yes"}},
	})
	if !res.Ok() {
		t.Fatalf("form post failed: %q", res.Error)
	}
}

func TestFormBodyIsResentOnRetry(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "X"})
	})
	r.Post("/api/v1/profile/picture", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("picture")
		if err != nil {
			t.Errorf("FormFile err: %v", err)
			return
		}
		content, _ := io.ReadAll(file)
		mu.Lock()
		bodies = append(bodies, string(content))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer X" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	client, _, _ := newTestClient(t, r, "stale")

	res := client.Post(context.Background(), "/profile/picture", NewForm().File("picture", "me.png", strings.NewReader("png")))
	if !res.Ok() {
		t.Fatalf("expected success after retry, got %q", res.Error)
	}
	if len(bodies) != 2 || bodies[0] != "png" || bodies[1] != "png" {
		t.Fatalf("expected identical bodies on both attempts, got %v", bodies)
	}
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	const workers = 5
	var refreshes atomic.Int32
	var stale sync.WaitGroup
	stale.Add(workers)

	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		time.Sleep(100 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "fresh"})
	})
	r.Get("/api/v1/activities", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		// Hold every stale request until all of them arrived.
		stale.Done()
		stale.Wait()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})
	client, sess, _ := newTestClient(t, r, "stale")

	var wg sync.WaitGroup
	results := make([]Result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.Get(context.Background(), "/activities")
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if !res.Ok() {
			t.Fatalf("worker %d failed: %q", i, res.Error)
		}
	}
	if refreshes.Load() != 1 {
		t.Fatalf("expected one shared refresh, got %d", refreshes.Load())
	}
	if sess.Token() != "fresh" {
		t.Fatalf("expected fresh token, got %q", sess.Token())
	}
}

func TestCancelledCallerDoesNotEndSharedRefresh(t *testing.T) {
	refreshEntered := make(chan struct{})
	releaseRefresh := make(chan struct{})
	var once sync.Once

	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(refreshEntered) })
		<-releaseRefresh
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "new"})
	})
	r.Get("/api/v1/activities", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new" {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})
	client, sess, _ := newTestClient(t, r, "stale")

	// The first caller starts the refresh, then gives up while it is in flight.
	ctxA, cancelA := context.WithCancel(context.Background())
	resA := make(chan Result, 1)
	go func() { resA <- client.Get(ctxA, "/activities") }()
	<-refreshEntered

	resB := make(chan Result, 1)
	go func() { resB <- client.Get(context.Background(), "/activities") }()
	// Let the second caller join the in-flight refresh.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case res := <-resA:
		if res.Error != MsgNetworkError {
			t.Fatalf("expected cancelled caller to see %q, got %q", MsgNetworkError, res.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting for the refresh")
	}
	if sess.Token() != "stale" {
		t.Fatalf("expected credential kept while the refresh runs, got %q", sess.Token())
	}

	close(releaseRefresh)
	res := <-resB
	if !res.Ok() {
		t.Fatalf("expected live caller to recover, got %q", res.Error)
	}
	if sess.Token() != "new" {
		t.Fatalf("expected refreshed token new, got %q", sess.Token())
	}
}

func TestLoginStoresTokenForLaterCalls(t *testing.T) {
	api := &fakeAPI{}
	r := chi.NewRouter()
	r.Post("/api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username != "ada" || creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "tok", "data": map[string]any{"id": 1, "username": "ada"}})
	})
	r.Get("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		api.recordAuth(r)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 1}})
	})
	client, sess, _ := newTestClient(t, r, "")
	ctx := context.Background()

	bad := client.Login(ctx, Credentials{Username: "ada", Password: "wrong"})
	if bad.Error != "Invalid username or password" {
		t.Fatalf("expected login error, got %q", bad.Error)
	}
	if sess.Authenticated() {
		t.Fatal("failed login must not store a token")
	}

	if res := client.Login(ctx, Credentials{Username: "ada", Password: "secret"}); !res.Ok() {
		t.Fatalf("login failed: %q", res.Error)
	}
	if res := client.Get(ctx, "/me"); !res.Ok() {
		t.Fatalf("me failed: %q", res.Error)
	}
	if got := api.lastAuth(); got != "Bearer tok" {
		t.Fatalf("expected Bearer tok, got %q", got)
	}

	stored, ok, _ := sess.Storage().Get(session.CookiesKey)
	if !ok || !strings.Contains(stored, "refresh_token") {
		t.Fatalf("expected refresh cookie persisted, got %q", stored)
	}
}

func TestSignupStoresToken(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"token": "signup-tok"})
	})
	client, sess, _ := newTestClient(t, r, "")

	if res := client.Signup(context.Background(), Registration{Username: "bob", Email: "b@x.io", Password: "pw"}); !res.Ok() {
		t.Fatalf("signup failed: %q", res.Error)
	}
	if sess.Token() != "signup-tok" {
		t.Fatalf("expected signup token stored, got %q", sess.Token())
	}
}

func TestLogoutClearsCredential(t *testing.T) {
	api := &fakeAPI{}
	r := chi.NewRouter()
	r.Post("/api/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})
	r.Get("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		api.recordAuth(r)
		writeJSON(w, http.StatusOK, []any{})
	})
	client, sess, _ := newTestClient(t, r, "abc")
	ctx := context.Background()

	client.Logout(ctx)
	if sess.Authenticated() {
		t.Fatal("expected credential cleared after logout")
	}
	client.Get(ctx, "/teams")
	if got := api.lastAuth(); got != "" {
		t.Fatalf("expected no Authorization header after logout, got %q", got)
	}
}

func TestCookiesSurviveNewClient(t *testing.T) {
	var seen atomic.Value
	r := chi.NewRouter()
	r.Post("/api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r-42", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "a"})
	})
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("refresh_token")
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing"})
			return
		}
		seen.Store(c.Value)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "b"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	storage := session.NewMemoryStorage()
	sess, _ := session.New(storage)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first, _ := New(srv.URL+"/api/v1", sess, WithLogger(logger))
	if res := first.Login(context.Background(), Credentials{Username: "u", Password: "p"}); !res.Ok() {
		t.Fatalf("login failed: %q", res.Error)
	}

	// A new process: fresh session and client over the same storage.
	sess2, _ := session.New(storage)
	second, _ := New(srv.URL+"/api/v1", sess2, WithLogger(logger))
	res := second.Refresh(context.Background())
	if !res.Ok() {
		t.Fatalf("refresh failed: %q", res.Error)
	}
	if seen.Load() != "r-42" {
		t.Fatalf("expected restored refresh cookie, got %v", seen.Load())
	}
}

func TestDownloadStreamsBody(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/tasks/1/attachments/2/download", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("binary-content"))
	})
	r.Get("/api/v1/tasks/1/attachments/3/download", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Attachment not found"})
	})
	client, _, _ := newTestClient(t, r, "abc")

	var buf bytes.Buffer
	n, err := client.Download(context.Background(), "/tasks/1/attachments/2/download", &buf)
	if err != nil {
		t.Fatalf("Download err: %v", err)
	}
	if n != int64(len("binary-content")) || buf.String() != "binary-content" {
		t.Fatalf("unexpected download %d %q", n, buf.String())
	}

	_, err = client.Download(context.Background(), "/tasks/1/attachments/3/download", io.Discard)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "Attachment not found" {
		t.Fatalf("expected 404 *Error, got %v", err)
	}
}

func TestDownloadRetryFailureClearsSession(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "fresh"})
	})
	r.Get("/api/v1/tasks/1/attachments/2/download", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	client, sess, _ := newTestClient(t, r, "stale")

	_, err := client.Download(context.Background(), "/tasks/1/attachments/2/download", io.Discard)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 *Error, got %v", err)
	}
	if sess.Authenticated() {
		t.Fatalf("expected session cleared after failed retry, got %q", sess.Token())
	}
}

func TestTimeoutAppliesWhateverOptionOrder(t *testing.T) {
	for name, order := range map[string]func(hc *http.Client) []Option{
		"timeout first": func(hc *http.Client) []Option {
			return []Option{WithTimeout(3 * time.Second), WithHTTPClient(hc)}
		},
		"client first": func(hc *http.Client) []Option {
			return []Option{WithHTTPClient(hc), WithTimeout(3 * time.Second)}
		},
	} {
		t.Run(name, func(t *testing.T) {
			own := &http.Client{Timeout: time.Minute}
			client, err := New("http://127.0.0.1:1/api/v1", nil, order(own)...)
			if err != nil {
				t.Fatalf("New err: %v", err)
			}
			if client.httpClient.Timeout != 3*time.Second {
				t.Fatalf("expected 3s timeout, got %s", client.httpClient.Timeout)
			}
			if own.Timeout != time.Minute || own.Jar != nil {
				t.Fatalf("caller's http.Client was modified: timeout=%s jar=%v", own.Timeout, own.Jar)
			}
		})
	}
}

func TestMetricsCountRequestsAndRefreshes(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})
	r.Get("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	sess, _ := session.New(nil)
	_ = sess.Set("abc")
	client, _ := New(srv.URL+"/api/v1", sess,
		WithMetrics(metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	client.Get(context.Background(), "/me")

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "401")); got != 1 {
		t.Fatalf("expected one 401 GET, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.refreshes.WithLabelValues("failure")); got != 1 {
		t.Fatalf("expected one failed refresh, got %v", got)
	}
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	if _, err := New("/api/v1", nil); err == nil {
		t.Fatal("expected error for relative base url")
	}
}

func TestRateLimitHonorsContext(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/teams", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	client, _ := New(srv.URL+"/api/v1", nil,
		WithRateLimit(0.5, 1),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if res := client.Get(context.Background(), "/teams"); !res.Ok() {
		t.Fatalf("first call should pass the limiter: %q", res.Error)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if res := client.Get(ctx, "/teams"); res.Error != MsgNetworkError {
		t.Fatalf("expected limiter wait to fail under deadline, got %+v", res)
	}
}
