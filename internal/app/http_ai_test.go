package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"leancanvas/api/internal/ai"
)

func TestGenerateEndpointReturnsDraft(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "user-1", "Avery")
	svc := newTestService(fs)
	svc.ai = &fakeAI{
		draftFn: func(_ context.Context, blockID string, draftCtx ai.DraftContext) (string, error) {
			if blockID != "problem" {
				t.Fatalf("expected blockId problem, got %q", blockID)
			}
			if draftCtx.CanvasName != "Acme" {
				t.Fatalf("expected canvas name forwarded, got %q", draftCtx.CanvasName)
			}
			if len(draftCtx.LinkedBacklogs) != 1 || draftCtx.LinkedBacklogs[0].Title != "Slow exports" {
				t.Fatalf("expected linked backlog forwarded, got %v", draftCtx.LinkedBacklogs)
			}
			return "Teams lose hours to manual exports.", nil
		},
	}
	server := NewHTTPServer(svc, "*")

	body := `{"blockId":"problem","canvasData":{"name":"Acme"},"linkedBacklogs":[{"title":"Slow exports","priority":"High"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate", bytes.NewBufferString(body))
	req.Header.Set("Authorization", bearerHeaderFor(t, svc, "user-1"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSONBody(t, rr)
	if payload["generatedText"] != "Teams lose hours to manual exports." {
		t.Fatalf("unexpected generatedText: %v", payload["generatedText"])
	}
}

func TestGenerateEndpointRequiresAuth(t *testing.T) {
	svc := newTestService(newFakeStore())
	svc.ai = &fakeAI{}
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate", bytes.NewBufferString(`{"blockId":"problem"}`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assertUnauthorizedCode(t, rr)
}

func TestExtractProblemsValidationSurfacesAs422(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "user-1", "Avery")
	svc := newTestService(fs)
	svc.ai = &fakeAI{
		extractFn: func(context.Context, string) ([]ai.ExtractedProblem, error) {
			return nil, &ai.ValidationError{Message: "interview notes must be at least 50 characters"}
		},
	}
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPost, "/api/ai/extract-problems", bytes.NewBufferString(`{"interviewNotes":"too short"}`))
	req.Header.Set("Authorization", bearerHeaderFor(t, svc, "user-1"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSONBody(t, rr)
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected code VALIDATION_ERROR, got %v", payload["code"])
	}
}

func TestExtractProblemsFormatErrorCarriesRawResponse(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "user-1", "Avery")
	svc := newTestService(fs)
	svc.ai = &fakeAI{
		extractFn: func(context.Context, string) ([]ai.ExtractedProblem, error) {
			return nil, &ai.FormatError{Raw: "I could not find any problems, sorry!"}
		},
	}
	server := NewHTTPServer(svc, "*")

	notes := `{"interviewNotes":"We spoke with a dozen ops leads about their weekly export workflow and pain points."}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/extract-problems", bytes.NewBufferString(notes))
	req.Header.Set("Authorization", bearerHeaderFor(t, svc, "user-1"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSONBody(t, rr)
	if payload["code"] != "UPSTREAM_FORMAT" {
		t.Fatalf("expected code UPSTREAM_FORMAT, got %v", payload["code"])
	}
	details, _ := payload["details"].(map[string]any)
	if details["rawResponse"] != "I could not find any problems, sorry!" {
		t.Fatalf("expected raw response in details, got %v", details)
	}
}

func TestExtractProblemsReturnsCount(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "user-1", "Avery")
	svc := newTestService(fs)
	svc.ai = &fakeAI{
		extractFn: func(context.Context, string) ([]ai.ExtractedProblem, error) {
			return []ai.ExtractedProblem{
				{Title: "Exports time out", Priority: "High", Source: "Interview"},
				{Title: "No mobile view", Priority: "Medium", Source: "Interview"},
			}, nil
		},
	}
	server := NewHTTPServer(svc, "*")

	notes := `{"interviewNotes":"We spoke with a dozen ops leads about their weekly export workflow and pain points."}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/extract-problems", bytes.NewBufferString(notes))
	req.Header.Set("Authorization", bearerHeaderFor(t, svc, "user-1"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSONBody(t, rr)
	if payload["count"] != float64(2) {
		t.Fatalf("expected count 2, got %v", payload["count"])
	}
	problems, _ := payload["problems"].([]any)
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d", len(problems))
	}
}

func TestGroupBacklogsForwardsInputs(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "user-1", "Avery")
	svc := newTestService(fs)
	svc.ai = &fakeAI{
		groupFn: func(_ context.Context, items []ai.BacklogInput) ([]ai.Group, error) {
			if len(items) != 2 {
				t.Fatalf("expected 2 inputs, got %d", len(items))
			}
			return []ai.Group{{
				GroupName:         "Export pipeline",
				BacklogIDs:        []string{items[0].ID, items[1].ID},
				SuggestedPriority: "High",
			}}, nil
		},
	}
	server := NewHTTPServer(svc, "*")

	body := `{"backlogs":[{"id":"bkl-1","title":"Slow exports"},{"id":"bkl-2","title":"Export crashes"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/group-backlogs", bytes.NewBufferString(body))
	req.Header.Set("Authorization", bearerHeaderFor(t, svc, "user-1"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSONBody(t, rr)
	if payload["count"] != float64(1) {
		t.Fatalf("expected count 1, got %v", payload["count"])
	}
}

func TestAIUnconfiguredReturnsUpstreamError(t *testing.T) {
	fs := newFakeStore()
	seedUser(fs, "user-1", "Avery")
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate", bytes.NewBufferString(`{"blockId":"problem"}`))
	req.Header.Set("Authorization", bearerHeaderFor(t, svc, "user-1"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSONBody(t, rr)
	if payload["code"] != "UPSTREAM_ERROR" {
		t.Fatalf("expected code UPSTREAM_ERROR, got %v", payload["code"])
	}
}
