package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"leancanvas/api/internal/store"
	"leancanvas/api/internal/util"
)

// ListCanvasBacklogs returns every backlog linked to the canvas,
// newest link first. Readable by any caller, like the canvas itself.
func (s *Service) ListCanvasBacklogs(ctx context.Context, canvasSlug string) ([]map[string]any, error) {
	canvas, err := s.store.GetCanvasBySlug(ctx, canvasSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("canvas not found")
		}
		return nil, err
	}

	linked, err := s.store.ListLinksForCanvas(ctx, canvas.ID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(linked))
	for _, lb := range linked {
		items = append(items, map[string]any{
			"linkId":    lb.LinkID,
			"notes":     nilIfEmpty(lb.LinkNotes),
			"createdAt": lb.LinkCreatedAt,
			"backlog":   backlogPayload(lb.Backlog),
		})
	}
	return items, nil
}

// ListBacklogCanvases is the symmetric operation, resolved to full
// canvas entities.
func (s *Service) ListBacklogCanvases(ctx context.Context, backlogSlug string) ([]map[string]any, error) {
	backlog, err := s.store.GetBacklogBySlug(ctx, backlogSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("backlog not found")
		}
		return nil, err
	}

	linked, err := s.store.ListLinksForBacklog(ctx, backlog.ID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(linked))
	for _, lc := range linked {
		items = append(items, map[string]any{
			"linkId":    lc.LinkID,
			"notes":     nilIfEmpty(lc.LinkNotes),
			"createdAt": lc.LinkCreatedAt,
			"canvas":    canvasPayload(lc.Canvas),
		})
	}
	return items, nil
}

// LinkBacklog attaches a backlog to a canvas. The requester must own
// both sides; cross-user linking is rejected even when the requester
// owns the canvas.
func (s *Service) LinkBacklog(ctx context.Context, canvasSlug, requesterID, backlogID, notes string) (map[string]any, error) {
	if strings.TrimSpace(backlogID) == "" {
		return nil, validationError("backlogId is required")
	}

	canvas, err := s.store.GetCanvasBySlug(ctx, canvasSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("canvas not found")
		}
		return nil, err
	}
	if canvas.UserID != requesterID {
		return nil, forbiddenError()
	}

	backlog, err := s.store.GetBacklogByID(ctx, backlogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("backlog not found")
		}
		return nil, err
	}
	if backlog.UserID != requesterID {
		return nil, forbiddenError()
	}

	link := store.CanvasBacklogLink{
		ID:        util.NewID("lnk"),
		CanvasID:  canvas.ID,
		BacklogID: backlog.ID,
		Notes:     strings.TrimSpace(notes),
	}
	if err := s.store.InsertLink(ctx, link); err != nil {
		// Two concurrent links for the same pair race to the unique
		// constraint; the loser sees a conflict.
		if store.IsUniqueViolation(err) {
			return nil, conflictError("backlog already linked to this canvas")
		}
		return nil, err
	}

	created, err := s.store.GetLink(ctx, canvas.ID, backlog.ID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"linkId":    created.ID,
		"canvasId":  created.CanvasID,
		"backlogId": created.BacklogID,
		"notes":     nilIfEmpty(created.Notes),
		"createdAt": created.CreatedAt,
	}, nil
}

// UnlinkBacklog removes a link. Ownership is checked on the canvas.
func (s *Service) UnlinkBacklog(ctx context.Context, canvasSlug, requesterID, backlogID string) error {
	canvas, err := s.store.GetCanvasBySlug(ctx, canvasSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("canvas not found")
		}
		return err
	}
	if canvas.UserID != requesterID {
		return forbiddenError()
	}

	link, err := s.store.GetLink(ctx, canvas.ID, backlogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("link not found")
		}
		return err
	}

	return s.store.DeleteLink(ctx, link.ID)
}
