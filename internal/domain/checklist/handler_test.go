package checklist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fieldmed/pma/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockRepo) {
	repo := newMockRepo()
	return NewHandler(NewService(testCatalog(), repo)), repo
}

func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), auth.ActorNameKey, "J. Moreau")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestToggleHandler(t *testing.T) {
	e := echo.New()
	h, repo := newTestHandler()

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/checklist/toggle", `{"item":"Tent pitched"}`)
	if err := h.Toggle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Item    string `json:"item"`
		Checked bool   `json:"checked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Item != "Tent pitched" || !resp.Checked {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(repo.log) != 1 || repo.log[0].ActorName != "J. Moreau" {
		t.Errorf("expected logged actor from auth context, got %+v", repo.log)
	}
}

func TestToggleHandler_MissingItem(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler()

	c, _ := newJSONContext(e, http.MethodPost, "/api/v1/checklist/toggle", `{}`)
	err := h.Toggle(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestToggleHandler_UnknownItem(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler()

	c, _ := newJSONContext(e, http.MethodPost, "/api/v1/checklist/toggle", `{"item":"Kitchen sink"}`)
	err := h.Toggle(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetStatusHandler(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler()

	if _, err := h.svc.Toggle(context.Background(), "Oxygen checked", "Op"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/checklist", "")
	if err := h.GetStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Categories []CategoryStatus `json:"categories"`
		Completion int              `json:"completion"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(resp.Categories))
	}
	if resp.Completion != 25 {
		t.Errorf("expected global completion 25, got %d", resp.Completion)
	}
}

func TestGetLogHandler(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler()

	if _, err := h.svc.Toggle(context.Background(), "Tent pitched", "Op"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/checklist/log", "")
	if err := h.GetLog(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entries []LogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != ActionCheck {
		t.Errorf("unexpected log: %+v", entries)
	}
}

func TestRequestResetHandler(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler()

	if _, err := h.svc.Toggle(context.Background(), "Tent pitched", "Op"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/checklist/reset", "")
	if err := h.RequestReset(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var preview ResetPreview
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if preview.CheckedCount != 1 || preview.TotalCount != 4 {
		t.Errorf("unexpected preview: %+v", preview)
	}
}

func TestResetHandler(t *testing.T) {
	e := echo.New()
	h, repo := newTestHandler()

	if _, err := h.svc.Toggle(context.Background(), "Tent pitched", "Op"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/checklist/reset", "")
	if err := h.Reset(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	if len(repo.state) != 0 {
		t.Errorf("expected cleared state, got %v", repo.state)
	}
	last := repo.log[len(repo.log)-1]
	if last.Action != ActionReset || last.ActorName != "J. Moreau" {
		t.Errorf("unexpected reset entry: %+v", last)
	}
}
