package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"leancanvas/api/internal/search"
	"leancanvas/api/internal/store"
	"leancanvas/api/internal/tags"
	"leancanvas/api/internal/util"
)

// CreateBacklogInput is the body of a backlog create. Enum-ish fields
// are normalized, not rejected.
type CreateBacklogInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Source       string     `json:"source"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	Tags         string     `json:"tags"`
	DiscoveredAt *time.Time `json:"discoveredAt"`
}

// BacklogPatch carries a partial backlog update. Only non-nil fields
// are applied.
type BacklogPatch struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Source       *string    `json:"source"`
	Priority     *string    `json:"priority"`
	Status       *string    `json:"status"`
	Tags         *string    `json:"tags"`
	DiscoveredAt *time.Time `json:"discoveredAt"`
}

func (s *Service) ListBacklogs(ctx context.Context, userID string, filter store.BacklogFilter) ([]map[string]any, error) {
	backlogs, err := s.store.ListBacklogs(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	// One pass over the user's link rows instead of a query per backlog.
	refs, err := s.store.ListCanvasRefsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	refsByBacklog := make(map[string][]store.BacklogCanvasRef, len(refs))
	for _, ref := range refs {
		refsByBacklog[ref.BacklogID] = append(refsByBacklog[ref.BacklogID], ref)
	}

	items := make([]map[string]any, 0, len(backlogs))
	for _, b := range backlogs {
		payload := backlogPayload(b)
		payload["canvases"] = canvasRefsPayload(refsByBacklog[b.ID])
		items = append(items, payload)
	}
	return items, nil
}

func (s *Service) CreateBacklog(ctx context.Context, userID string, input CreateBacklogInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}

	discoveredAt := time.Now()
	if input.DiscoveredAt != nil {
		discoveredAt = *input.DiscoveredAt
	}

	backlog := store.Backlog{
		ID:           util.NewID("bkl"),
		Slug:         util.Slugify(title),
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Source:       normalizeSource(input.Source),
		Priority:     normalizePriority(input.Priority),
		Status:       normalizeStatus(input.Status),
		Tags:         strings.TrimSpace(input.Tags),
		DiscoveredAt: discoveredAt,
		UserID:       userID,
	}

	if err := s.store.InsertBacklog(ctx, backlog); err != nil {
		if !store.IsUniqueViolation(err) {
			return nil, err
		}
		backlog.Slug = util.SlugSuffix(backlog.Slug)
		if err := s.store.InsertBacklog(ctx, backlog); err != nil {
			if store.IsUniqueViolation(err) {
				return nil, conflictError("backlog slug already exists")
			}
			return nil, err
		}
	}

	created, err := s.store.GetBacklogBySlug(ctx, backlog.Slug)
	if err != nil {
		return nil, err
	}
	s.indexBacklog(created)
	return backlogPayload(created), nil
}

func (s *Service) GetBacklog(ctx context.Context, slug string) (map[string]any, error) {
	backlog, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("backlog not found")
		}
		return nil, err
	}

	payload := backlogPayload(backlog)
	if owner, err := s.store.GetUserByID(ctx, backlog.UserID); err == nil {
		payload["user"] = map[string]any{"name": owner.Name, "email": owner.Email}
	}

	linked, err := s.store.ListLinksForBacklog(ctx, backlog.ID)
	if err != nil {
		return nil, err
	}
	canvases := make([]map[string]any, 0, len(linked))
	for _, lc := range linked {
		canvases = append(canvases, map[string]any{
			"linkId":    lc.LinkID,
			"notes":     nilIfEmpty(lc.LinkNotes),
			"createdAt": lc.LinkCreatedAt,
			"canvas": map[string]any{
				"id":          lc.ID,
				"slug":        lc.Slug,
				"name":        lc.Name,
				"description": nilIfEmpty(lc.Description),
			},
		})
	}
	payload["canvases"] = canvases
	return payload, nil
}

func (s *Service) UpdateBacklog(ctx context.Context, slug, requesterID string, patch BacklogPatch) (map[string]any, error) {
	backlog, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("backlog not found")
		}
		return nil, err
	}
	if backlog.UserID != requesterID {
		return nil, forbiddenError()
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, validationError("title cannot be empty")
		}
		backlog.Title = title
	}
	applyString(&backlog.Description, patch.Description)
	applyString(&backlog.Tags, patch.Tags)
	if patch.Source != nil {
		backlog.Source = normalizeSource(*patch.Source)
	}
	if patch.Priority != nil {
		backlog.Priority = normalizePriority(*patch.Priority)
	}
	if patch.Status != nil {
		backlog.Status = normalizeStatus(*patch.Status)
	}
	if patch.DiscoveredAt != nil {
		backlog.DiscoveredAt = *patch.DiscoveredAt
	}

	if err := s.store.UpdateBacklog(ctx, backlog); err != nil {
		return nil, err
	}

	updated, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.indexBacklog(updated)
	return backlogPayload(updated), nil
}

func (s *Service) DeleteBacklog(ctx context.Context, slug, requesterID string) error {
	backlog, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("backlog not found")
		}
		return err
	}
	if backlog.UserID != requesterID {
		return forbiddenError()
	}

	if err := s.store.DeleteBacklog(ctx, backlog.ID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteBacklog(backlog.ID)
	}
	return nil
}

// EnableSharing turns on public read access. A fresh token is minted on
// every call, so re-enabling rotates the share URL and invalidates the
// previous one.
func (s *Service) EnableSharing(ctx context.Context, slug, requesterID, notifyEmail string) (map[string]any, error) {
	backlog, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("backlog not found")
		}
		return nil, err
	}
	if backlog.UserID != requesterID {
		return nil, forbiddenError()
	}

	token := util.NewShareToken()
	if err := s.store.SetBacklogSharing(ctx, backlog.ID, true, token); err != nil {
		return nil, err
	}

	shareURL := s.cfg.PublicOrigin + "/share/backlog/" + token

	notifyEmail = strings.TrimSpace(notifyEmail)
	if notifyEmail != "" && s.SMTPConfigured() {
		// The share link itself is live; a failed notification should
		// not roll it back.
		if err := s.email.SendShareLinkEmail(notifyEmail, backlog.Title, shareURL); err != nil {
			log.Printf("share: notification email to %s failed: %v", notifyEmail, err)
		}
	}

	updated, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"backlog":  backlogPayload(updated),
		"shareUrl": shareURL,
	}, nil
}

func (s *Service) DisableSharing(ctx context.Context, slug, requesterID string) (map[string]any, error) {
	backlog, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("backlog not found")
		}
		return nil, err
	}
	if backlog.UserID != requesterID {
		return nil, forbiddenError()
	}

	if err := s.store.SetBacklogSharing(ctx, backlog.ID, false, ""); err != nil {
		return nil, err
	}

	updated, err := s.store.GetBacklogBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return map[string]any{"backlog": backlogPayload(updated)}, nil
}

// GetSharedBacklog resolves a public share token. A disabled share and
// a token that never existed are indistinguishable to the caller.
func (s *Service) GetSharedBacklog(ctx context.Context, token string) (map[string]any, error) {
	backlog, err := s.store.GetBacklogByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("shared backlog not found")
		}
		return nil, err
	}

	payload := backlogPayload(backlog)
	delete(payload, "userId")
	return payload, nil
}

// PopularTags counts tag frequency across the user's backlogs. Ties
// break lexicographically so the ordering is stable.
func (s *Service) PopularTags(ctx context.Context, userID string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 20
	}

	rawTags, err := s.store.ListBacklogTagStrings(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, raw := range rawTags {
		for _, tag := range tags.Parse(raw) {
			counts[tag]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	if len(names) > limit {
		names = names[:limit]
	}

	items := make([]map[string]any, 0, len(names))
	for _, name := range names {
		items = append(items, map[string]any{
			"tag":   name,
			"count": counts[name],
			"color": tags.Color(name),
		})
	}
	return items, nil
}

func (s *Service) indexBacklog(b store.Backlog) {
	if s.search == nil {
		return
	}
	s.search.IndexBacklog(search.BacklogRecord{
		ID:          b.ID,
		Slug:        b.Slug,
		Title:       b.Title,
		Description: b.Description,
		Tags:        b.Tags,
		Priority:    b.Priority,
		Status:      b.Status,
		UserID:      b.UserID,
	})
}

func backlogPayload(b store.Backlog) map[string]any {
	return map[string]any{
		"id":           b.ID,
		"slug":         b.Slug,
		"title":        b.Title,
		"description":  nilIfEmpty(b.Description),
		"source":       b.Source,
		"priority":     b.Priority,
		"status":       b.Status,
		"tags":         nilIfEmpty(b.Tags),
		"isPublic":     b.IsPublic,
		"shareToken":   nilIfEmpty(b.ShareToken),
		"discoveredAt": b.DiscoveredAt,
		"userId":       b.UserID,
		"createdAt":    b.CreatedAt,
		"updatedAt":    b.UpdatedAt,
	}
}

func canvasRefsPayload(refs []store.BacklogCanvasRef) []map[string]any {
	items := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		items = append(items, map[string]any{
			"linkId":    ref.LinkID,
			"notes":     nilIfEmpty(ref.Notes),
			"createdAt": ref.LinkCreatedAt,
			"canvas": map[string]any{
				"id":          ref.CanvasID,
				"slug":        ref.CanvasSlug,
				"name":        ref.CanvasName,
				"description": nilIfEmpty(ref.CanvasDescription),
			},
		})
	}
	return items
}
