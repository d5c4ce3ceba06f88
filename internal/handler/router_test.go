package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zhouzirui/teamboard/internal/handler"
	"github.com/zhouzirui/teamboard/internal/service/mockapi"
)

func setupRouter(t *testing.T) (http.Handler, *mockapi.Service) {
	t.Helper()
	svc := mockapi.NewService(time.Minute)
	return handler.NewRouter(svc, prometheus.NewRegistry()), svc
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, handler.APIPrefix+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func login(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	resp := do(t, h, http.MethodPost, "/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil || out.Token == "" {
		t.Fatalf("expected token in signup response: %s", resp.Body.String())
	}
	return out.Token
}

func TestPrivateRoutesRequireBearer(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(t, r, http.MethodGet, "/teams", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodGet, "/teams", "bogus", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"error":"Unauthorized"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	r, _ := setupRouter(t)
	login(t, r, "ada")

	resp := do(t, r, http.MethodPost, "/login", "", map[string]string{"username": "ada", "password": "secret1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "refresh_token" || !cookies[0].HttpOnly {
		t.Fatalf("expected http-only refresh cookie, got %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodPost, handler.APIPrefix+"/refresh", nil)
	req.AddCookie(cookies[0])
	refreshed := httptest.NewRecorder()
	r.ServeHTTP(refreshed, req)
	if refreshed.Code != http.StatusOK || !strings.Contains(refreshed.Body.String(), "access_token") {
		t.Fatalf("expected refreshed token, got %d %s", refreshed.Code, refreshed.Body.String())
	}

	bad := do(t, r, http.MethodPost, "/login", "", map[string]string{"username": "ada", "password": "nope"})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", bad.Code)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(t, r, http.MethodPost, "/refresh", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestResponseShapes(t *testing.T) {
	r, _ := setupRouter(t)
	token := login(t, r, "ada")

	team := do(t, r, http.MethodPost, "/teams", token, map[string]any{"team": map[string]string{"name": "core"}})
	if team.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", team.Code, team.Body.String())
	}
	teamID := decodeID(t, team.Body.Bytes(), false)

	project := do(t, r, http.MethodPost, fmt.Sprintf("/teams/%d/projects", teamID), token,
		map[string]any{"project": map[string]string{"name": "launch"}})
	if project.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", project.Code, project.Body.String())
	}
	projectID := decodeID(t, project.Body.Bytes(), true)

	task := do(t, r, http.MethodPost, fmt.Sprintf("/projects/%d/tasks", projectID), token,
		map[string]any{"task": map[string]string{"name": "docs"}})
	if task.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", task.Code, task.Body.String())
	}
	taskID := decodeID(t, task.Body.Bytes(), false)

	sub := do(t, r, http.MethodPost, fmt.Sprintf("/tasks/%d/sub_tasks", taskID), token,
		map[string]any{"task": map[string]string{"name": "outline"}})
	if sub.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", sub.Code, sub.Body.String())
	}

	cases := []struct {
		path   string
		prefix string
	}{
		{"/teams", `[{`},
		{fmt.Sprintf("/teams/%d", teamID), `{"data":{`},
		{fmt.Sprintf("/teams/%d/projects", teamID), `{"data":[{`},
		{fmt.Sprintf("/projects/%d/tasks", projectID), `{"data":{"data":[{`},
		{fmt.Sprintf("/tasks/%d/sub_tasks", taskID), `[{"data":{`},
		{"/invitations", `[]`},
		{"/me", `{"data":{`},
	}
	for _, tc := range cases {
		resp := do(t, r, http.MethodGet, tc.path, token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.path, resp.Code)
		}
		if !strings.HasPrefix(resp.Body.String(), tc.prefix) {
			t.Fatalf("%s: expected body starting with %s, got %s", tc.path, tc.prefix, resp.Body.String())
		}
	}
}

func TestValidationErrorsAreLists(t *testing.T) {
	r, _ := setupRouter(t)
	token := login(t, r, "ada")

	resp := do(t, r, http.MethodPost, "/teams", token, map[string]any{"team": map[string]string{"name": ""}})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	var body struct {
		Error []string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Error) != 1 || body.Error[0] != "Name can't be blank" {
		t.Fatalf("unexpected errors %v", body.Error)
	}
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	r, _ := setupRouter(t)
	token := login(t, r, "ada")

	resp := do(t, r, http.MethodGet, "/teams/abc", token, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	resp = do(t, r, http.MethodGet, "/teams/99", token, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, handler.APIPrefix+"/teams", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials to be allowed")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodGet, "/teams", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `mockapi_http_requests_total{code="401",method="GET"`) {
		t.Fatalf("expected request counter in metrics output:\n%s", resp.Body.String())
	}
}

func decodeID(t *testing.T, body []byte, wrapped bool) int64 {
	t.Helper()
	var out struct {
		ID   int64 `json:"id"`
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if wrapped {
		return out.Data.ID
	}
	return out.ID
}
