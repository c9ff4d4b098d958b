package app

import (
	"context"
	"errors"

	"leancanvas/api/internal/ai"
)

// DraftInput is the body of an AI drafting request. CanvasData carries
// the caller's current field values, which may be unsaved edits.
type DraftInput struct {
	BlockID        string             `json:"blockId"`
	CanvasData     DraftCanvasData    `json:"canvasData"`
	LinkedBacklogs []DraftBacklogItem `json:"linkedBacklogs"`
}

type DraftCanvasData struct {
	Name             string `json:"name"`
	Problem          string `json:"problem"`
	Solution         string `json:"solution"`
	UniqueValueProp  string `json:"uniqueValueProp"`
	UnfairAdvantage  string `json:"unfairAdvantage"`
	CustomerSegments string `json:"customerSegments"`
	KeyMetrics       string `json:"keyMetrics"`
	Channels         string `json:"channels"`
	CostStructure    string `json:"costStructure"`
	RevenueStreams   string `json:"revenueStreams"`
}

type DraftBacklogItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Tags        string `json:"tags"`
}

func (s *Service) DraftBlock(ctx context.Context, input DraftInput) (map[string]any, error) {
	if s.ai == nil {
		return nil, upstreamError("AI service not configured")
	}

	draftCtx := ai.DraftContext{
		CanvasName:       input.CanvasData.Name,
		Problem:          input.CanvasData.Problem,
		Solution:         input.CanvasData.Solution,
		UniqueValueProp:  input.CanvasData.UniqueValueProp,
		UnfairAdvantage:  input.CanvasData.UnfairAdvantage,
		CustomerSegments: input.CanvasData.CustomerSegments,
		KeyMetrics:       input.CanvasData.KeyMetrics,
		Channels:         input.CanvasData.Channels,
		CostStructure:    input.CanvasData.CostStructure,
		RevenueStreams:   input.CanvasData.RevenueStreams,
	}
	for _, item := range input.LinkedBacklogs {
		draftCtx.LinkedBacklogs = append(draftCtx.LinkedBacklogs, ai.BacklogSummary{
			Title:       item.Title,
			Description: item.Description,
			Priority:    item.Priority,
			Tags:        item.Tags,
		})
	}

	text, err := s.ai.Draft(ctx, input.BlockID, draftCtx)
	if err != nil {
		return nil, mapAIError(err)
	}

	return map[string]any{"generatedText": text}, nil
}

func (s *Service) ExtractProblems(ctx context.Context, notes string) (map[string]any, error) {
	if s.ai == nil {
		return nil, upstreamError("AI service not configured")
	}

	problems, err := s.ai.ExtractProblems(ctx, notes)
	if err != nil {
		return nil, mapAIError(err)
	}

	return map[string]any{
		"problems": problems,
		"count":    len(problems),
	}, nil
}

func (s *Service) GroupBacklogs(ctx context.Context, items []ai.BacklogInput) (map[string]any, error) {
	if s.ai == nil {
		return nil, upstreamError("AI service not configured")
	}

	groups, err := s.ai.GroupBacklogs(ctx, items)
	if err != nil {
		return nil, mapAIError(err)
	}

	return map[string]any{
		"groups": groups,
		"count":  len(groups),
	}, nil
}

func mapAIError(err error) error {
	var ve *ai.ValidationError
	if errors.As(err, &ve) {
		return validationError(ve.Message)
	}
	var fe *ai.FormatError
	if errors.As(err, &fe) {
		return upstreamFormatError("AI response was not in the expected format", fe.Raw)
	}
	var ue *ai.UpstreamError
	if errors.As(err, &ue) {
		return upstreamError(ue.Error())
	}
	return err
}
