package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drivebridge/drivebridge/internal/config"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		APIBaseURL:      server.URL,
		ActivityBaseURL: server.URL,
		PeopleBaseURL:   server.URL,
		AccessToken:     "test-token",
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(&config.Config{})
	if err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestListChildrenPagination(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "'folder1' in parents and trashed = false" {
			t.Errorf("q = %q", got)
		}

		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"nextPageToken":"page2","files":[{"id":"a","name":"a.txt","mimeType":"text/plain","size":"10"}]}`)
			return
		}
		fmt.Fprint(w, `{"files":[{"id":"b","name":"sub","mimeType":"application/vnd.google-apps.folder"}]}`)
	}))

	items, token, err := client.ListChildren(context.Background(), "'folder1' in parents and trashed = false", "", 50)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" || items[0].Size != 10 {
		t.Errorf("unexpected first page: %+v", items)
	}
	if token != "page2" {
		t.Errorf("token = %q, want page2", token)
	}

	items, token, err = client.ListChildren(context.Background(), "'folder1' in parents and trashed = false", token, 50)
	if err != nil {
		t.Fatalf("ListChildren page 2 failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("unexpected second page: %+v", items)
	}
	if token != "" {
		t.Errorf("token = %q, want empty", token)
	}
}

func TestGetMetadataNotFound(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"File not found","errors":[{"reason":"notFound","message":"File not found: missing"}]}}`)
	}))

	_, err := client.GetMetadata(context.Background(), "missing", "")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.ID != "missing" {
		t.Errorf("NotFoundError.ID = %q", nf.ID)
	}
}

func TestDownloadContentAbusiveFile(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("acknowledgeAbuse") == "true" {
			fmt.Fprint(w, "flagged content")
			return
		}
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"errors":[{"reason":"cannotDownloadAbusiveFile"}]}}`)
	}))

	var buf bytes.Buffer
	err := client.DownloadContent(context.Background(), "f1", &buf, false, nil)
	if !IsAbusiveFile(err) {
		t.Fatalf("expected AbusiveFileError, got %v", err)
	}

	buf.Reset()
	if err := client.DownloadContent(context.Background(), "f1", &buf, true, nil); err != nil {
		t.Fatalf("acknowledged download failed: %v", err)
	}
	if buf.String() != "flagged content" {
		t.Errorf("content = %q", buf.String())
	}
}

func TestDownloadContentProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 3<<20)
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))

	var reports []int64
	var buf bytes.Buffer
	err := client.DownloadContent(context.Background(), "big", &buf, false, func(n int64) {
		reports = append(reports, n)
	})
	if err != nil {
		t.Fatalf("DownloadContent failed: %v", err)
	}
	if buf.Len() != len(payload) {
		t.Errorf("got %d bytes, want %d", buf.Len(), len(payload))
	}
	if len(reports) == 0 {
		t.Fatal("no progress reports")
	}
	if final := reports[len(reports)-1]; final != int64(len(payload)) {
		t.Errorf("final report = %d, want %d", final, len(payload))
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] <= reports[i-1] {
			t.Errorf("progress not monotonic: %d then %d", reports[i-1], reports[i])
		}
	}
}

func TestExportContent(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/doc1/export" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("mimeType"); got != "application/pdf" {
			t.Errorf("mimeType = %q", got)
		}
		fmt.Fprint(w, "%PDF-1.4")
	}))

	var buf bytes.Buffer
	if err := client.ExportContent(context.Background(), "doc1", "application/pdf", &buf, nil); err != nil {
		t.Fatalf("ExportContent failed: %v", err)
	}
	if buf.String() != "%PDF-1.4" {
		t.Errorf("content = %q", buf.String())
	}
}

func TestExportSizeLimit(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"errors":[{"reason":"exportSizeLimitExceeded"}]}}`)
	}))

	var buf bytes.Buffer
	err := client.ExportContent(context.Background(), "huge", "application/pdf", &buf, nil)
	if !IsExportSizeLimit(err) {
		t.Fatalf("expected ExportSizeLimitError, got %v", err)
	}
}

func TestQueryActivityProjection(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if body["ancestorName"] != "items/root1" {
			t.Errorf("ancestorName = %v", body["ancestorName"])
		}
		fmt.Fprint(w, `{
			"activities": [{
				"timestamp": "2026-08-01T10:00:00Z",
				"primaryActionDetail": {"move": {}},
				"actors": [{"user": {"knownUser": {"personName": "people/123"}}}],
				"targets": [{"driveItem": {"name": "items/f1", "title": "report.txt"}}],
				"actions": [{"detail": {"move": {"addedParents": [{"driveItem": {"title": "Archive"}}]}}}]
			}],
			"nextPageToken": "next1"
		}`)
	}))

	events, token, err := client.QueryActivity(context.Background(), ActivityQuery{AncestorID: "root1", PageSize: 20})
	if err != nil {
		t.Fatalf("QueryActivity failed: %v", err)
	}
	if token != "next1" {
		t.Errorf("token = %q", token)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Action != "move" || e.TargetID != "f1" || e.TargetTitle != "report.txt" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.ActorUserID != "people/123" {
		t.Errorf("ActorUserID = %q", e.ActorUserID)
	}
	if e.MovedToTitle != "Archive" {
		t.Errorf("MovedToTitle = %q", e.MovedToTitle)
	}
}

func TestResolveUsername(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/people/123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"names":[{"displayName":"Ada Lovelace"}]}`)
	}))

	name, err := client.ResolveUsername(context.Background(), "people/123")
	if err != nil {
		t.Fatalf("ResolveUsername failed: %v", err)
	}
	if name != "Ada Lovelace" {
		t.Errorf("name = %q", name)
	}
}

func TestSearchEscapesQuotes(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != `name contains 'o\'brien' and trashed = false` {
			t.Errorf("q = %q", got)
		}
		fmt.Fprint(w, `{"files":[]}`)
	}))

	if _, _, err := client.Search(context.Background(), "o'brien", "", 50); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestGetMD5(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fields"); got != "md5Checksum" {
			t.Errorf("fields = %q", got)
		}
		fmt.Fprint(w, `{"md5Checksum":"d41d8cd98f00b204e9800998ecf8427e"}`)
	}))

	sum, err := client.GetMD5(context.Background(), "f1")
	if err != nil {
		t.Fatalf("GetMD5 failed: %v", err)
	}
	if sum != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("sum = %q", sum)
	}
}

func TestInitAuthExpired(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.Init(context.Background())
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
}
