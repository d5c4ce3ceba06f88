package apiclient

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/zhouzirui/teamboard/internal/session"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// persistentJar is a cookie jar that mirrors the cookies for the API host
// into session storage, so the refresh cookie outlives the process.
type persistentJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	base    *url.URL
	storage session.Storage
	logger  *slog.Logger
}

func newPersistentJar(base *url.URL, storage session.Storage, logger *slog.Logger) (*persistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	j := &persistentJar{jar: jar, base: base, storage: storage, logger: logger}
	j.restore()
	return j, nil
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if u.Host == j.base.Host {
		j.persist()
	}
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *persistentJar) restore() {
	raw, ok, err := j.storage.Get(session.CookiesKey)
	if err != nil || !ok || raw == "" {
		return
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		j.logger.Warn("Ignoring unreadable stored cookies", "error", err)
		return
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	j.jar.SetCookies(j.base, cookies)
}

func (j *persistentJar) persist() {
	j.mu.Lock()
	defer j.mu.Unlock()

	current := j.jar.Cookies(j.base)
	if len(current) == 0 {
		if err := j.storage.Delete(session.CookiesKey); err != nil {
			j.logger.Warn("Failed to drop stored cookies", "error", err)
		}
		return
	}

	stored := make([]storedCookie, 0, len(current))
	for _, c := range current {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := j.storage.Set(session.CookiesKey, string(b)); err != nil {
		j.logger.Warn("Failed to persist cookies", "error", err)
	}
}
