package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"leancanvas/api/internal/search"
	"leancanvas/api/internal/store"
	"leancanvas/api/internal/util"
)

// CanvasPatch carries a partial canvas update. Only non-nil fields are
// applied; the slug never changes.
type CanvasPatch struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Problem          *string `json:"problem"`
	Solution         *string `json:"solution"`
	UniqueValueProp  *string `json:"uniqueValueProp"`
	UnfairAdvantage  *string `json:"unfairAdvantage"`
	CustomerSegments *string `json:"customerSegments"`
	KeyMetrics       *string `json:"keyMetrics"`
	Channels         *string `json:"channels"`
	CostStructure    *string `json:"costStructure"`
	RevenueStreams   *string `json:"revenueStreams"`
}

func (s *Service) ListCanvases(ctx context.Context, userID string) ([]map[string]any, error) {
	canvases, err := s.store.ListCanvases(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(canvases))
	for _, c := range canvases {
		items = append(items, map[string]any{
			"id":          c.ID,
			"slug":        c.Slug,
			"name":        c.Name,
			"description": nilIfEmpty(c.Description),
			"createdAt":   c.CreatedAt,
			"updatedAt":   c.UpdatedAt,
		})
	}
	return items, nil
}

func (s *Service) CreateCanvas(ctx context.Context, userID, name, description string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("name is required")
	}

	canvas := store.Canvas{
		ID:          util.NewID("cnv"),
		Slug:        util.Slugify(name),
		Name:        name,
		Description: strings.TrimSpace(description),
		UserID:      userID,
	}

	if err := s.store.InsertCanvas(ctx, canvas); err != nil {
		if !store.IsUniqueViolation(err) {
			return nil, err
		}
		// Slug taken; retry once with a random suffix.
		canvas.Slug = util.SlugSuffix(canvas.Slug)
		if err := s.store.InsertCanvas(ctx, canvas); err != nil {
			if store.IsUniqueViolation(err) {
				return nil, conflictError("canvas slug already exists")
			}
			return nil, err
		}
	}

	created, err := s.store.GetCanvasBySlug(ctx, canvas.Slug)
	if err != nil {
		return nil, err
	}
	s.indexCanvas(created)
	return canvasPayload(created), nil
}

// GetCanvas is readable by any caller; canvases are shared read-only by
// their slug URL. Only mutation is owner-gated.
func (s *Service) GetCanvas(ctx context.Context, slug string) (map[string]any, error) {
	canvas, err := s.store.GetCanvasBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("canvas not found")
		}
		return nil, err
	}

	payload := canvasPayload(canvas)
	if owner, err := s.store.GetUserByID(ctx, canvas.UserID); err == nil {
		payload["user"] = map[string]any{"name": owner.Name, "email": owner.Email}
	}
	return payload, nil
}

func (s *Service) UpdateCanvas(ctx context.Context, slug, requesterID string, patch CanvasPatch) (map[string]any, error) {
	canvas, err := s.store.GetCanvasBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("canvas not found")
		}
		return nil, err
	}
	if canvas.UserID != requesterID {
		return nil, forbiddenError()
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		canvas.Name = name
	}
	applyString(&canvas.Description, patch.Description)
	applyString(&canvas.Problem, patch.Problem)
	applyString(&canvas.Solution, patch.Solution)
	applyString(&canvas.UniqueValueProp, patch.UniqueValueProp)
	applyString(&canvas.UnfairAdvantage, patch.UnfairAdvantage)
	applyString(&canvas.CustomerSegments, patch.CustomerSegments)
	applyString(&canvas.KeyMetrics, patch.KeyMetrics)
	applyString(&canvas.Channels, patch.Channels)
	applyString(&canvas.CostStructure, patch.CostStructure)
	applyString(&canvas.RevenueStreams, patch.RevenueStreams)

	if err := s.store.UpdateCanvas(ctx, canvas); err != nil {
		return nil, err
	}

	updated, err := s.store.GetCanvasBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.indexCanvas(updated)
	return canvasPayload(updated), nil
}

func (s *Service) DeleteCanvas(ctx context.Context, slug, requesterID string) error {
	canvas, err := s.store.GetCanvasBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("canvas not found")
		}
		return err
	}
	if canvas.UserID != requesterID {
		return forbiddenError()
	}

	// Link rows go with the canvas via the storage cascade.
	if err := s.store.DeleteCanvas(ctx, canvas.ID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteCanvas(canvas.ID)
	}
	return nil
}

func (s *Service) indexCanvas(c store.Canvas) {
	if s.search == nil {
		return
	}
	s.search.IndexCanvas(search.CanvasRecord{
		ID:               c.ID,
		Slug:             c.Slug,
		Name:             c.Name,
		Problem:          c.Problem,
		Solution:         c.Solution,
		UniqueValueProp:  c.UniqueValueProp,
		CustomerSegments: c.CustomerSegments,
		UserID:           c.UserID,
	})
}

func applyString(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func canvasPayload(c store.Canvas) map[string]any {
	return map[string]any{
		"id":               c.ID,
		"slug":             c.Slug,
		"name":             c.Name,
		"description":      nilIfEmpty(c.Description),
		"problem":          nilIfEmpty(c.Problem),
		"solution":         nilIfEmpty(c.Solution),
		"uniqueValueProp":  nilIfEmpty(c.UniqueValueProp),
		"unfairAdvantage":  nilIfEmpty(c.UnfairAdvantage),
		"customerSegments": nilIfEmpty(c.CustomerSegments),
		"keyMetrics":       nilIfEmpty(c.KeyMetrics),
		"channels":         nilIfEmpty(c.Channels),
		"costStructure":    nilIfEmpty(c.CostStructure),
		"revenueStreams":   nilIfEmpty(c.RevenueStreams),
		"userId":           c.UserID,
		"createdAt":        c.CreatedAt,
		"updatedAt":        c.UpdatedAt,
	}
}
