package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	draftMaxTokens      = 1024
	structuredMaxTokens = 4096

	minNotesLength  = 50
	maxProblems     = 10
	maxGroups       = 5
	minGroupInputs  = 2
	maxGroupInputs  = 50
	minGroupMembers = 2

	defaultProblemTitle = "Untitled Problem"
	defaultGroupName    = "Unnamed Group"
)

var validPriorities = map[string]bool{"High": true, "Medium": true, "Low": true}
var validSources = map[string]bool{"Interview": true, "Meeting": true, "Survey": true, "Research": true, "Other": true}

// Service runs the drafting, extraction, and grouping pipelines on top
// of a Completer.
type Service struct {
	completer Completer
}

// NewService creates an AI service backed by the given completer.
func NewService(completer Completer) *Service {
	return &Service{completer: completer}
}

// Draft generates free text for one canvas block. The result is
// returned verbatim; the caller decides whether to keep it.
func (s *Service) Draft(ctx context.Context, blockID string, draftCtx DraftContext) (string, error) {
	tmpl, ok := blockTemplates[blockID]
	if !ok {
		return "", &ValidationError{Message: fmt.Sprintf("unknown canvas block %q", blockID)}
	}

	text, err := s.completer.Complete(ctx, buildDraftPrompt(tmpl, draftCtx), draftMaxTokens)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	if text == "" {
		return "", &UpstreamError{}
	}
	return text, nil
}

// ExtractedProblem is one backlog candidate pulled out of free-text
// notes, normalized and ready to create.
type ExtractedProblem struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Priority      string `json:"priority"`
	Source        string `json:"source"`
	SuggestedTags string `json:"suggestedTags"`
}

// ExtractProblems turns raw interview or meeting notes into backlog
// candidates. Nothing is persisted; each accepted candidate becomes a
// separate backlog create.
func (s *Service) ExtractProblems(ctx context.Context, notes string) ([]ExtractedProblem, error) {
	if len(strings.TrimSpace(notes)) < minNotesLength {
		return nil, &ValidationError{Message: fmt.Sprintf("notes too short, need at least %d characters", minNotesLength)}
	}

	text, err := s.completer.Complete(ctx, buildExtractPrompt(notes), structuredMaxTokens)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	var problems []ExtractedProblem
	if err := json.Unmarshal([]byte(stripFences(text)), &problems); err != nil {
		return nil, &FormatError{Raw: text, Err: err}
	}

	for i := range problems {
		if problems[i].Title == "" {
			problems[i].Title = defaultProblemTitle
		}
		if !validPriorities[problems[i].Priority] {
			problems[i].Priority = "Medium"
		}
		if !validSources[problems[i].Source] {
			problems[i].Source = "Interview"
		}
	}

	if len(problems) > maxProblems {
		problems = problems[:maxProblems]
	}
	return problems, nil
}

// BacklogInput is one existing backlog item offered up for grouping.
type BacklogInput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Tags        string `json:"tags"`
}

// Group is one suggested cluster of related backlog items. Applying a
// group to its members is the caller's job.
type Group struct {
	GroupName         string   `json:"groupName"`
	Description       string   `json:"description"`
	BacklogIDs        []string `json:"backlogIds"`
	SuggestedPriority string   `json:"suggestedPriority"`
	SuggestedTags     string   `json:"suggestedTags"`
}

type rawGroup struct {
	GroupName         string          `json:"groupName"`
	Description       string          `json:"description"`
	BacklogIDs        json.RawMessage `json:"backlogIds"`
	SuggestedPriority string          `json:"suggestedPriority"`
	SuggestedTags     string          `json:"suggestedTags"`
}

// GroupBacklogs asks the model to cluster semantically related backlog
// items. Groups with fewer than two members are dropped.
func (s *Service) GroupBacklogs(ctx context.Context, items []BacklogInput) ([]Group, error) {
	if len(items) < minGroupInputs {
		return nil, &ValidationError{Message: fmt.Sprintf("need at least %d backlog items to group", minGroupInputs)}
	}
	if len(items) > maxGroupInputs {
		return nil, &ValidationError{Message: fmt.Sprintf("at most %d backlog items can be grouped at once", maxGroupInputs)}
	}

	text, err := s.completer.Complete(ctx, buildGroupPrompt(items), structuredMaxTokens)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	var raw []rawGroup
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, &FormatError{Raw: text, Err: err}
	}

	groups := make([]Group, 0, len(raw))
	for _, rg := range raw {
		g := Group{
			GroupName:         rg.GroupName,
			Description:       rg.Description,
			SuggestedPriority: rg.SuggestedPriority,
			SuggestedTags:     rg.SuggestedTags,
		}
		if g.GroupName == "" {
			g.GroupName = defaultGroupName
		}
		if !validPriorities[g.SuggestedPriority] {
			g.SuggestedPriority = "Medium"
		}
		// A malformed id list means an unusable group, not a failed
		// response; treat it as empty.
		if len(rg.BacklogIDs) > 0 {
			if err := json.Unmarshal(rg.BacklogIDs, &g.BacklogIDs); err != nil {
				g.BacklogIDs = nil
			}
		}
		if len(g.BacklogIDs) < minGroupMembers {
			continue
		}
		groups = append(groups, g)
	}

	if len(groups) > maxGroups {
		groups = groups[:maxGroups]
	}
	return groups, nil
}

// stripFences removes an optional surrounding markdown code fence so a
// fenced JSON answer still parses.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
