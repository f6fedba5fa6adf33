package generator

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"simplane/internal/schedule"
	"simplane/internal/store"
)

func newTestRest(baseURL string, tokens map[string]string) *Rest {
	r := NewRest("technology", baseURL, tokens, "default-token")
	r.local = NewSyntheticWithRand("technology", rand.New(rand.NewSource(7)))
	return r
}

func TestRestBootstrapPushesContainersAndItems(t *testing.T) {
	var containerPosts, itemPosts int
	var seenAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = append(seenAuth, r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/containers":
			containerPosts++
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/items"):
			itemPosts++
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	g := newTestRest(server.URL, nil)
	delta, err := g.Bootstrap(context.Background(), store.JobConfig{InitialContainers: 1})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if containerPosts != 1 {
		t.Errorf("container posts = %d, want 1", containerPosts)
	}
	if itemPosts != len(delta.NewContainers[0].Items) {
		t.Errorf("item posts = %d, want %d", itemPosts, len(delta.NewContainers[0].Items))
	}
	for _, auth := range seenAuth {
		if !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer auth, got %q", auth)
		}
	}
}

func TestRestPerformUsesActorToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := newTestRest(server.URL, map[string]string{"u-mia": "mia-token"})
	world := worldWithAssignedItem("t1", "u-mia")

	_, err := g.Perform(context.Background(), schedule.ActivityConversation, world.FindItem("t1"), world)
	if err != nil {
		t.Fatalf("Perform failed: %v", err)
	}
	if gotAuth != "Bearer mia-token" {
		t.Errorf("auth = %q, want the acting user's token", gotAuth)
	}
}

func TestRestRateLimitMapsToTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := newTestRest(server.URL, nil)
	world := worldWithAssignedItem("t1", "u-mia")

	_, err := g.Perform(context.Background(), schedule.ActivityConversation, world.FindItem("t1"), world)
	if err == nil {
		t.Fatal("expected a rate limit error")
	}
	if !IsRateLimit(err) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 2*time.Minute {
		t.Errorf("RetryAfter = %v, want 2m", rl)
	}
}

func TestRestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	g := newTestRest(server.URL, nil)
	world := worldWithAssignedItem("t1", "u-mia")

	_, err := g.Perform(context.Background(), schedule.ActivityComplete, world.FindItem("t1"), world)
	if err == nil {
		t.Fatal("expected an error from a 500 response")
	}
	if IsRateLimit(err) {
		t.Error("a 500 must not classify as rate limiting")
	}
}

func TestRestCleanupCollectsPartialFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/c-bad") {
			http.Error(w, "cannot delete", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	g := newTestRest(server.URL, nil)
	world := &store.WorldState{Containers: []store.Container{
		{ID: "c-ok", Items: []store.WorkItem{{ID: "t1"}, {ID: "t2"}}},
		{ID: "c-bad", Items: []store.WorkItem{{ID: "t3"}}},
		{ID: "c-ok2"},
	}}

	report := g.Cleanup(context.Background(), world)
	if report.ContainersRemoved != 2 {
		t.Errorf("ContainersRemoved = %d, want 2", report.ContainersRemoved)
	}
	if report.ItemsRemoved != 2 {
		t.Errorf("ItemsRemoved = %d, want 2", report.ItemsRemoved)
	}
	err := report.Err()
	if err == nil {
		t.Fatal("expected a collected error for the failed delete")
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 1 {
		t.Errorf("expected exactly 1 collected error, got %v", err)
	}
}

func worldWithAssignedItem(id, assignee string) *store.WorldState {
	return &store.WorldState{Containers: []store.Container{{
		ID:        "c1",
		CreatedAt: time.Now(),
		Items: []store.WorkItem{{
			ID:           id,
			Status:       store.ItemInProgress,
			Assignee:     assignee,
			CommentCount: 1,
		}},
	}}}
}

