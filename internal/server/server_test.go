package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sparsetree/pkg/cache"
	"github.com/matzehuels/sparsetree/pkg/errors"
	sio "github.com/matzehuels/sparsetree/pkg/io"
	"github.com/matzehuels/sparsetree/pkg/manifest"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	ts := httptest.NewServer(New("testdata", opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestList(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/layouts")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var got struct{ Layouts []string }
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got.Layouts, ",") != "broken,particles" {
		t.Errorf("layouts = %v", got.Layouts)
	}
}

func TestSnapshot(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/layouts/particles")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	snap, err := sio.ReadJSON(strings.NewReader(string(body)))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Name != "particles" || len(snap.Nodes) != 13 {
		t.Errorf("snapshot %q with %d nodes", snap.Name, len(snap.Nodes))
	}
	if etag := resp.Header.Get("ETag"); etag != `"`+snap.ID+`"` {
		t.Errorf("ETag = %s, id %s", etag, snap.ID)
	}
}

func TestDumpAndDOT(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/layouts/particles/dump")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "S0root\n") {
		t.Errorf("dump: status %d, body %q", resp.StatusCode, body)
	}

	resp, body = get(t, ts, "/layouts/particles/graph.dot?detailed=true")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "digraph G {") {
		t.Errorf("dot: status %d, body %q", resp.StatusCode, body)
	}
}

func TestFields(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/layouts/particles/fields/x")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var x manifest.FieldInfo
	if err := json.Unmarshal(body, &x); err != nil {
		t.Fatal(err)
	}
	if x.SparseAncestor != "S3pointer" || len(x.Shape) != 1 || x.Shape[0] != 320 {
		t.Errorf("x = %+v", x)
	}

	_, body = get(t, ts, "/layouts/particles/fields")
	var all []manifest.FieldInfo
	if err := json.Unmarshal(body, &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("got %d fields", len(all))
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		path   string
		status int
		code   errors.Code
	}{
		{"/layouts/missing", http.StatusNotFound, errors.ErrCodeNotFound},
		{"/layouts/particles/fields/nope", http.StatusNotFound, errors.ErrCodeNotFound},
		{"/layouts/..%2Fsecret", http.StatusNotFound, errors.ErrCodeNotFound},
		{"/layouts/broken", http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts, tt.path)
			if resp.StatusCode != tt.status {
				t.Fatalf("status %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
			var e errorBody
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatal(err)
			}
			if tt.code != "" && e.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
		})
	}
}

func TestSVGCached(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := New("testdata", WithLogger(log.New(io.Discard)), WithCache(c))
	calls := 0
	s.svg = func(_ context.Context, dot string) ([]byte, error) {
		calls++
		return []byte("<svg/>"), nil
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for range 2 {
		resp, body := get(t, ts, "/layouts/particles/graph.svg")
		if resp.StatusCode != http.StatusOK || string(body) != "<svg/>" {
			t.Fatalf("status %d, body %q", resp.StatusCode, body)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
			t.Errorf("Content-Type = %s", ct)
		}
	}
	if calls != 1 {
		t.Errorf("renderer called %d times, want 1", calls)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{errors.ErrCodeInconsistentLayout, http.StatusUnprocessableEntity},
		{errors.ErrCodeInvalidManifest, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
