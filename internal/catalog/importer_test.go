package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/gameportal/internal/game"
	"github.com/hitoshi/gameportal/internal/metrics"
	"github.com/hitoshi/gameportal/internal/model"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Game Network</title>
  <link>https://network.example.com</link>
  <item>
    <title>Block Drop</title>
    <link>https://cdn.example.com/block-drop/</link>
    <description>&lt;p&gt;Stack blocks&lt;/p&gt;</description>
    <category>arcade</category>
    <enclosure url="https://cdn.example.com/block-drop/thumb.png" type="image/png" length="1024"/>
  </item>
  <item>
    <title>Existing Racer</title>
    <link>https://cdn.example.com/racer/</link>
  </item>
  <item>
    <title></title>
    <link>https://cdn.example.com/untitled/</link>
  </item>
</channel>
</rss>`

type mockGuard struct {
	validateErr error
}

func (m *mockGuard) ValidateURL(rawURL string) error { return m.validateErr }

func (m *mockGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

type mockCreator struct {
	createFn func(ctx context.Context, in game.Input) (*model.Game, error)
	inputs   []game.Input
}

func (m *mockCreator) Create(ctx context.Context, in game.Input) (*model.Game, error) {
	m.inputs = append(m.inputs, in)
	return m.createFn(ctx, in)
}

func newFeedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestImport(t *testing.T) {
	ts := newFeedServer(t, http.StatusOK, testFeed)
	creator := &mockCreator{createFn: func(ctx context.Context, in game.Input) (*model.Game, error) {
		switch in.Title {
		case "Existing Racer":
			return nil, model.NewConflictError(model.ErrCodeSlugTaken, "taken")
		case "":
			return nil, model.NewValidationError("title")
		}
		return &model.Game{ID: "g-1", Title: in.Title}, nil
	}}

	im := NewImporter(creator, &mockGuard{}, 5*time.Second, 1<<20, metrics.Nop{}, nil)
	result, err := im.Import(context.Background(), ts.URL, "Puzzle")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Created != 1 || result.Skipped != 2 {
		t.Errorf("result = %+v, want created 1 skipped 2", result)
	}

	first := creator.inputs[0]
	if first.GameURL != "https://cdn.example.com/block-drop/" {
		t.Errorf("GameURL = %q", first.GameURL)
	}
	if first.ThumbnailURL != "https://cdn.example.com/block-drop/thumb.png" {
		t.Errorf("ThumbnailURL = %q", first.ThumbnailURL)
	}
	if first.Category != "Puzzle" {
		t.Errorf("Category = %q", first.Category)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "arcade" {
		t.Errorf("Tags = %v", first.Tags)
	}
	if first.Description != "<p>Stack blocks</p>" {
		t.Errorf("Description = %q", first.Description)
	}
}

func TestImport_RejectsUnsafeURL(t *testing.T) {
	creator := &mockCreator{}
	im := NewImporter(creator, &mockGuard{validateErr: errors.New("blocked IP address")}, time.Second, 1<<20, nil, nil)

	_, err := im.Import(context.Background(), "http://10.0.0.1/feed.xml", "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Fatalf("Import() error = %v, want VALIDATION_FAILED", err)
	}
	if len(creator.inputs) != 0 {
		t.Error("no games should be created")
	}
}

func TestImport_FetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"HTTPエラー", http.StatusNotFound, "not found"},
		{"フィードではない", http.StatusOK, "<html><body>hello</body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newFeedServer(t, tt.status, tt.body)
			im := NewImporter(&mockCreator{}, &mockGuard{}, time.Second, 1<<20, nil, nil)

			_, err := im.Import(context.Background(), ts.URL, "")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("Import() error = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestImport_StopsOnInternalError(t *testing.T) {
	ts := newFeedServer(t, http.StatusOK, testFeed)
	creator := &mockCreator{createFn: func(ctx context.Context, in game.Input) (*model.Game, error) {
		return nil, errors.New("db down")
	}}
	im := NewImporter(creator, &mockGuard{}, time.Second, 1<<20, nil, nil)

	result, err := im.Import(context.Background(), ts.URL, "")
	if err == nil {
		t.Fatal("Import() error = nil, want error")
	}
	if result == nil || result.Created != 0 || len(creator.inputs) != 1 {
		t.Errorf("result = %+v, inputs = %d", result, len(creator.inputs))
	}
}
