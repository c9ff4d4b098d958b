package app

import (
	"context"
	"log"
	"time"

	"leancanvas/api/internal/ai"
	"leancanvas/api/internal/auth"
	"leancanvas/api/internal/authpw"
	"leancanvas/api/internal/config"
	"leancanvas/api/internal/email"
	"leancanvas/api/internal/search"
	"leancanvas/api/internal/store"
	"leancanvas/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	UserEmail    string
	JTI          string
	ExpiresAt    time.Time
}

var allowedPriorities = map[string]struct{}{
	"High":   {},
	"Medium": {},
	"Low":    {},
}

var allowedStatuses = map[string]struct{}{
	"New":       {},
	"Validated": {},
	"InCanvas":  {},
	"Rejected":  {},
}

var allowedSources = map[string]struct{}{
	"Meeting":   {},
	"Interview": {},
	"Survey":    {},
	"Research":  {},
	"Other":     {},
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	ListCanvases(context.Context, string) ([]store.CanvasSummary, error)
	InsertCanvas(context.Context, store.Canvas) error
	GetCanvasBySlug(context.Context, string) (store.Canvas, error)
	GetCanvasByID(context.Context, string) (store.Canvas, error)
	UpdateCanvas(context.Context, store.Canvas) error
	DeleteCanvas(context.Context, string) error

	ListBacklogs(context.Context, string, store.BacklogFilter) ([]store.Backlog, error)
	InsertBacklog(context.Context, store.Backlog) error
	GetBacklogBySlug(context.Context, string) (store.Backlog, error)
	GetBacklogByID(context.Context, string) (store.Backlog, error)
	GetBacklogByShareToken(context.Context, string) (store.Backlog, error)
	UpdateBacklog(context.Context, store.Backlog) error
	SetBacklogSharing(context.Context, string, bool, string) error
	DeleteBacklog(context.Context, string) error
	ListBacklogTagStrings(context.Context, string) ([]string, error)

	InsertLink(context.Context, store.CanvasBacklogLink) error
	GetLink(context.Context, string, string) (store.CanvasBacklogLink, error)
	DeleteLink(context.Context, string) error
	ListLinksForCanvas(context.Context, string) ([]store.LinkedBacklog, error)
	ListLinksForBacklog(context.Context, string) ([]store.LinkedCanvas, error)
	ListCanvasRefsForUser(context.Context, string) ([]store.BacklogCanvasRef, error)

	Ping(ctx context.Context) error
}

// refreshStore holds refresh sessions. Redis when configured, the
// Postgres store otherwise.
type refreshStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

// aiService is the slice of the AI package the handlers call.
type aiService interface {
	Draft(ctx context.Context, blockID string, draftCtx ai.DraftContext) (string, error)
	ExtractProblems(ctx context.Context, notes string) ([]ai.ExtractedProblem, error)
	GroupBacklogs(ctx context.Context, items []ai.BacklogInput) ([]ai.Group, error)
}

type Service struct {
	cfg     config.Config
	store   dataStore
	refresh refreshStore
	ai      aiService
	authpw  *authpw.Service
	email   *email.Service
	search  *search.Service
}

func New(cfg config.Config, st dataStore, refresh refreshStore, aiSvc aiService, authSvc *authpw.Service, emailSvc *email.Service, searchSvc *search.Service) *Service {
	if refresh == nil {
		if rs, ok := st.(refreshStore); ok {
			refresh = rs
		}
	}
	return &Service{
		cfg:     cfg,
		store:   st,
		refresh: refresh,
		ai:      aiSvc,
		authpw:  authSvc,
		email:   emailSvc,
		search:  searchSvc,
	}
}

// AuthPasswordService exposes the email/password auth service to the
// HTTP layer. May be nil in tests.
func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

// SMTPConfigured reports whether outgoing email is available.
func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// SearchService exposes the full-text search facade. May be nil.
func (s *Service) SearchService() *search.Service {
	return s.search
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SendVerificationEmail delivers the email-verification link in the
// background. Delivery failure is logged, never surfaced; the dev
// bypass token covers the SMTP-less case.
func (s *Service) SendVerificationEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.PublicOrigin + "/verify-email?token=" + token
	go func() {
		if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
			log.Printf("email: verification to %s failed: %v", to, err)
		}
	}()
}

// SendPasswordResetEmail delivers the password-reset link in the
// background.
func (s *Service) SendPasswordResetEmail(to, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.PublicOrigin + "/reset-password?token=" + token
	go func() {
		if err := s.email.SendPasswordResetEmail(to, to, url); err != nil {
			log.Printf("email: password reset to %s failed: %v", to, err)
		}
	}()
}

// CreateSession issues access and refresh tokens for a verified user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	found, err := s.refresh.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.refresh.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// The Redis backend stores only the user ID; claims need the rest.
	user, err := s.store.GetUserByID(ctx, found.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.Name,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.refresh.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		UserEmail:    user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.refresh.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// normalizePriority maps unrecognized values to the documented default
// rather than rejecting. The same permissive rule applies to every
// enum-ish field coming in from the edge.
func normalizePriority(value string) string {
	if _, ok := allowedPriorities[value]; ok {
		return value
	}
	return "Medium"
}

func normalizeStatus(value string) string {
	if _, ok := allowedStatuses[value]; ok {
		return value
	}
	return "New"
}

func normalizeSource(value string) string {
	if _, ok := allowedSources[value]; ok {
		return value
	}
	return "Other"
}

func nilIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
