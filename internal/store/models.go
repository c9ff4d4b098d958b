package store

import "time"

type User struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Canvas is one lean-canvas document. The nine block fields are free text;
// empty string means the block has not been filled in yet.
type Canvas struct {
	ID               string
	Slug             string
	Name             string
	Description      string
	Problem          string
	Solution         string
	UniqueValueProp  string
	UnfairAdvantage  string
	CustomerSegments string
	KeyMetrics       string
	Channels         string
	CostStructure    string
	RevenueStreams   string
	UserID           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanvasSummary is the projection returned by list endpoints.
type CanvasSummary struct {
	ID          string
	Slug        string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Backlog struct {
	ID           string
	Slug         string
	Title        string
	Description  string
	Source       string
	Priority     string
	Status       string
	Tags         string
	IsPublic     bool
	ShareToken   string
	DiscoveredAt time.Time
	UserID       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CanvasBacklogLink struct {
	ID        string
	CanvasID  string
	BacklogID string
	Notes     string
	CreatedAt time.Time
}

// BacklogCanvasRef is a link row joined with the canvas it points at, used
// to annotate backlog listings with their outgoing links.
type BacklogCanvasRef struct {
	BacklogID         string
	LinkID            string
	Notes             string
	LinkCreatedAt     time.Time
	CanvasID          string
	CanvasSlug        string
	CanvasName        string
	CanvasDescription string
}

// LinkedBacklog is a link row resolved to its full backlog entity.
type LinkedBacklog struct {
	Backlog
	LinkID        string
	LinkNotes     string
	LinkCreatedAt time.Time
}

// LinkedCanvas is a link row resolved to its full canvas entity.
type LinkedCanvas struct {
	Canvas
	LinkID        string
	LinkNotes     string
	LinkCreatedAt time.Time
}

// BacklogFilter narrows ListBacklogs. Empty fields apply no constraint.
type BacklogFilter struct {
	Priority string
	Status   string
	Search   string
}
