package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestDraftRejectsUnknownBlock(t *testing.T) {
	fc := &fakeCompleter{response: "ignored"}
	svc := NewService(fc)

	_, err := svc.Draft(context.Background(), "swimlanes", DraftContext{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fc.calls != 0 {
		t.Fatalf("expected no model call for an unknown block, got %d", fc.calls)
	}
}

func TestDraftReturnsTextVerbatim(t *testing.T) {
	fc := &fakeCompleter{response: "1. Customers lose receipts\n2. Refunds take weeks"}
	svc := NewService(fc)

	text, err := svc.Draft(context.Background(), "problem", DraftContext{CanvasName: "Receiptly"})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if text != fc.response {
		t.Fatalf("expected verbatim text, got %q", text)
	}
}

func TestDraftEmptyCompletionIsUpstreamError(t *testing.T) {
	svc := NewService(&fakeCompleter{response: ""})

	_, err := svc.Draft(context.Background(), "solution", DraftContext{})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError for empty completion, got %v", err)
	}
}

func TestDraftProblemPromptIncludesLinkedBacklogs(t *testing.T) {
	fc := &fakeCompleter{response: "ok"}
	svc := NewService(fc)

	_, err := svc.Draft(context.Background(), "problem", DraftContext{
		CanvasName: "Receiptly",
		LinkedBacklogs: []BacklogSummary{
			{Title: "Receipts fade", Priority: "High", Tags: "ux"},
		},
	})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}

	prompt := fc.prompts[0]
	if !strings.Contains(prompt, "Receipts fade") {
		t.Fatalf("prompt missing linked backlog title:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[High]") {
		t.Fatalf("prompt missing backlog priority:\n%s", prompt)
	}
}

func TestDraftSolutionPromptIncorporatesProblem(t *testing.T) {
	fc := &fakeCompleter{response: "ok"}
	svc := NewService(fc)

	_, err := svc.Draft(context.Background(), "solution", DraftContext{
		Problem:        "Paper receipts are unsearchable",
		RevenueStreams: "Subscriptions",
	})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}

	prompt := fc.prompts[0]
	if !strings.Contains(prompt, "Paper receipts are unsearchable") {
		t.Fatalf("solution prompt should carry the problem field:\n%s", prompt)
	}
	if strings.Contains(prompt, "Subscriptions") {
		t.Fatalf("solution prompt should not carry unrelated fields:\n%s", prompt)
	}
}

func TestExtractRejectsShortNotesWithoutModelCall(t *testing.T) {
	fc := &fakeCompleter{response: "[]"}
	svc := NewService(fc)

	_, err := svc.ExtractProblems(context.Background(), strings.Repeat("x", 40))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for 40-char notes, got %v", err)
	}
	if fc.calls != 0 {
		t.Fatalf("expected no model call, got %d", fc.calls)
	}
}

func TestExtractNormalizesAndTruncates(t *testing.T) {
	items := make([]map[string]string, 12)
	for i := range items {
		items[i] = map[string]string{"title": fmt.Sprintf("Problem %d", i)}
	}
	items[0]["priority"] = "Urgent" // not a valid value
	items[1]["source"] = "Twitter"  // not a valid value
	items[2]["title"] = ""
	raw, _ := json.Marshal(items)

	svc := NewService(&fakeCompleter{response: string(raw)})
	problems, err := svc.ExtractProblems(context.Background(), strings.Repeat("customer said something ", 10))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(problems) != 10 {
		t.Fatalf("expected truncation to 10, got %d", len(problems))
	}
	if problems[0].Priority != "Medium" {
		t.Fatalf("invalid priority should default to Medium, got %q", problems[0].Priority)
	}
	if problems[1].Source != "Interview" {
		t.Fatalf("invalid source should default to Interview, got %q", problems[1].Source)
	}
	if problems[2].Title != "Untitled Problem" {
		t.Fatalf("missing title should get the placeholder, got %q", problems[2].Title)
	}
}

func TestExtractStripsCodeFences(t *testing.T) {
	response := "```json\n[{\"title\": \"Fenced problem\"}]\n```"
	svc := NewService(&fakeCompleter{response: response})

	problems, err := svc.ExtractProblems(context.Background(), strings.Repeat("notes ", 20))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(problems) != 1 || problems[0].Title != "Fenced problem" {
		t.Fatalf("unexpected result: %+v", problems)
	}
}

func TestExtractMalformedResponseCarriesRaw(t *testing.T) {
	svc := NewService(&fakeCompleter{response: "Here are the problems I found: ..."})

	_, err := svc.ExtractProblems(context.Background(), strings.Repeat("notes ", 20))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Raw != "Here are the problems I found: ..." {
		t.Fatalf("FormatError should carry the raw response, got %q", fe.Raw)
	}
}

func TestExtractObjectResponseIsFormatError(t *testing.T) {
	svc := NewService(&fakeCompleter{response: `{"problems": []}`})

	_, err := svc.ExtractProblems(context.Background(), strings.Repeat("notes ", 20))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError for a JSON object, got %v", err)
	}
}

func groupInputs(n int) []BacklogInput {
	items := make([]BacklogInput, n)
	for i := range items {
		items[i] = BacklogInput{ID: fmt.Sprintf("bkl_%d", i), Title: fmt.Sprintf("Item %d", i), Priority: "Medium"}
	}
	return items
}

func TestGroupRejectsOutOfRangeInput(t *testing.T) {
	svc := NewService(&fakeCompleter{response: "[]"})

	var ve *ValidationError
	if _, err := svc.GroupBacklogs(context.Background(), groupInputs(1)); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for 1 item, got %v", err)
	}
	if _, err := svc.GroupBacklogs(context.Background(), groupInputs(51)); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for 51 items, got %v", err)
	}
}

func TestGroupDiscardsSmallGroups(t *testing.T) {
	response := `[
		{"groupName": "Lonely", "backlogIds": ["bkl_0"], "suggestedPriority": "High"},
		{"groupName": "Checkout pain", "backlogIds": ["bkl_1", "bkl_2", "bkl_3"], "suggestedPriority": "High"}
	]`
	svc := NewService(&fakeCompleter{response: response})

	groups, err := svc.GroupBacklogs(context.Background(), groupInputs(4))
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected single surviving group, got %d", len(groups))
	}
	if groups[0].GroupName != "Checkout pain" {
		t.Fatalf("wrong group survived: %+v", groups[0])
	}
}

func TestGroupNormalizesAndTruncates(t *testing.T) {
	raw := make([]map[string]any, 7)
	for i := range raw {
		raw[i] = map[string]any{
			"backlogIds":        []string{"bkl_0", "bkl_1"},
			"suggestedPriority": "Whenever",
		}
	}
	response, _ := json.Marshal(raw)
	svc := NewService(&fakeCompleter{response: string(response)})

	groups, err := svc.GroupBacklogs(context.Background(), groupInputs(2))
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 5 {
		t.Fatalf("expected truncation to 5 groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.GroupName != "Unnamed Group" {
			t.Fatalf("missing group name should get the placeholder, got %q", g.GroupName)
		}
		if g.SuggestedPriority != "Medium" {
			t.Fatalf("invalid priority should default to Medium, got %q", g.SuggestedPriority)
		}
	}
}

func TestGroupMalformedIDListDropsGroup(t *testing.T) {
	response := `[{"groupName": "Broken", "backlogIds": "bkl_0,bkl_1"}]`
	svc := NewService(&fakeCompleter{response: response})

	groups, err := svc.GroupBacklogs(context.Background(), groupInputs(2))
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("group with unparseable id list should be dropped, got %+v", groups)
	}
}

func TestGroupMalformedResponseCarriesRaw(t *testing.T) {
	svc := NewService(&fakeCompleter{response: "no json here"})

	_, err := svc.GroupBacklogs(context.Background(), groupInputs(2))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Raw != "no json here" {
		t.Fatalf("FormatError should carry the raw response, got %q", fe.Raw)
	}
}

func TestUpstreamFailurePropagates(t *testing.T) {
	svc := NewService(&fakeCompleter{err: errors.New("connection refused")})

	_, err := svc.ExtractProblems(context.Background(), strings.Repeat("notes ", 20))
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}
