package httpapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/mistakeknot/agentmail/internal/core"
)

func TestIdentityEndpointResolvesPlainDirectory(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	resp := env.get(t, "/api/identity?path="+url.QueryEscape(dir))
	requireStatus(t, resp, http.StatusOK)
	id := decodeJSON[core.ProjectIdentity](t, resp)
	if id.IdentityModeUsed != core.IdentityModeDir {
		t.Fatalf("mode = %q", id.IdentityModeUsed)
	}
	if id.Slug == "" {
		t.Fatal("slug must be set")
	}

	// Same path resolves to the same slug.
	resp = env.get(t, "/api/identity?path="+url.QueryEscape(dir))
	again := decodeJSON[core.ProjectIdentity](t, resp)
	if again.Slug != id.Slug {
		t.Fatalf("slug changed: %q vs %q", id.Slug, again.Slug)
	}
}

func TestIdentityEndpointRequiresPath(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/api/identity")
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestLocksEndpointEmptyProject(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/locks?project=proj-a")
	requireStatus(t, resp, http.StatusOK)
	body := decodeJSON[map[string][]core.LockStatus](t, resp)
	if locks := body["locks"]; len(locks) != 0 {
		t.Fatalf("locks = %+v", locks)
	}

	resp = env.get(t, "/api/locks")
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}
