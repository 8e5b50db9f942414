package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"plotboard/app/internal/db"
	"plotboard/app/internal/plot"
)

type plotDoc struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Work    string  `json:"work"`
	Status  string  `json:"status"`
	Summary *string `json:"summary"`
}

func TestCRUDLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newPersistentServer(t)

	// Create three plots; ids must come back strictly increasing.
	seeds := []string{
		`{"title":"Dragon Rises","work":"A","status":"open","summary":"A dragon awakes."}`,
		`{"title":"Quiet Chapter","work":"B","status":"open"}`,
		`{"title":"Closing Act","work":"A","status":"closed"}`,
	}

	var created []plotDoc
	var lastID int64
	for _, payload := range seeds {
		doc := doJSON(t, srv, "POST", "/plots", payload, 200)
		if doc.ID <= lastID {
			t.Fatalf("expected strictly increasing ids, got %d after %d", doc.ID, lastID)
		}
		lastID = doc.ID
		created = append(created, doc)
	}

	// Round-trip: fetching by id yields the created record.
	fetched := doJSON(t, srv, "GET", pathFor(created[0].ID), "", 200)
	if fetched.ID != created[0].ID || fetched.Title != created[0].Title ||
		fetched.Work != created[0].Work || fetched.Status != created[0].Status {
		t.Fatalf("expected round-trip record %#v, got %#v", created[0], fetched)
	}
	if fetched.Summary == nil || *fetched.Summary != "A dragon awakes." {
		t.Fatalf("expected summary preserved, got %v", fetched.Summary)
	}

	// AND filter: work=A and status=open matches only the first seed.
	filtered := doJSONList(t, srv, "/plots?work=A&status=open")
	if len(filtered) != 1 || filtered[0].ID != created[0].ID {
		t.Fatalf("expected only the first plot for work=A&status=open, got %#v", filtered)
	}

	// Case-insensitive search over title and summary.
	if results := doJSONList(t, srv, "/plots?q=dragon"); len(results) != 1 || results[0].Title != "Dragon Rises" {
		t.Fatalf("expected 'dragon' to match one plot, got %#v", results)
	}
	if results := doJSONList(t, srv, "/plots?q=zzz"); len(results) != 0 {
		t.Fatalf("expected no matches for 'zzz', got %#v", results)
	}

	// Full replace: omitting summary clears it.
	updated := doJSON(t, srv, "PUT", pathFor(created[0].ID), `{"title":"Dragon Rises","work":"A","status":"closed"}`, 200)
	if updated.Status != "closed" {
		t.Fatalf("expected status replaced, got %q", updated.Status)
	}
	if updated.Summary != nil {
		t.Fatalf("expected summary cleared to null, got %q", *updated.Summary)
	}

	// Listing stays ordered by id after deletes in the middle.
	req := httptest.NewRequest("DELETE", pathFor(created[1].ID), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected delete to succeed, got %d", rec.Code)
	}

	remaining := doJSONList(t, srv, "/plots")
	if len(remaining) != 2 {
		t.Fatalf("expected two plots after delete, got %d", len(remaining))
	}
	if remaining[0].ID != created[0].ID || remaining[1].ID != created[2].ID {
		t.Fatalf("expected ascending ids %d,%d, got %d,%d",
			created[0].ID, created[2].ID, remaining[0].ID, remaining[1].ID)
	}

	// Deleted id is gone for every verb.
	for _, method := range []string{"GET", "DELETE"} {
		req := httptest.NewRequest(method, pathFor(created[1].ID), nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != 404 {
			t.Fatalf("expected 404 for %s on deleted id, got %d", method, rec.Code)
		}
	}

	putReq := httptest.NewRequest("PUT", pathFor(created[1].ID), strings.NewReader(`{"title":"x","work":"y","status":"z"}`))
	putReq.Header.Set("Content-Type", "application/json")
	putRec := httptest.NewRecorder()
	srv.ServeHTTP(putRec, putReq)
	if putRec.Code != 404 {
		t.Fatalf("expected 404 for PUT on deleted id, got %d", putRec.Code)
	}
}

func pathFor(id int64) string {
	return "/plots/" + strconv.FormatInt(id, 10)
}

func doJSON(t *testing.T, srv *Server, method, path, payload string, wantStatus int) plotDoc {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, rec.Code, rec.Body.String())
	}

	var doc plotDoc
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("%s %s: decoding response failed: %v", method, path, err)
	}

	return doc
}

func doJSONList(t *testing.T, srv *Server, path string) []plotDoc {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("GET %s: expected status 200, got %d", path, rec.Code)
	}

	var docs []plotDoc
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("GET %s: decoding response failed: %v", path, err)
	}

	return docs
}

func newPersistentServer(t *testing.T) *Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crud.db")
	gormDB, err := db.Open(db.Options{DSN: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := plot.Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := plot.NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	service, err := plot.NewService(repo, logger, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	srv, err := NewServer(Options{
		PlotService: service,
		Database:    gormDB,
		Logger:      logger,
		RateLimiter: RateLimiterSettings{
			RequestsPerSecond: 1000,
			Burst:             1000,
			ClientTTL:         time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}

	return srv
}
