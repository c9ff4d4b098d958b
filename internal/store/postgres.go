package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_email_verified, verification_token)
		VALUES ($1, $2, LOWER($3), $4, $5, NULLIF($6, ''))
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, is_email_verified, created_at, updated_at
		FROM users WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, is_email_verified, created_at, updated_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// --- canvases ---

const canvasColumns = `id, slug, name, COALESCE(description, ''),
	COALESCE(problem, ''), COALESCE(solution, ''), COALESCE(unique_value_prop, ''),
	COALESCE(unfair_advantage, ''), COALESCE(customer_segments, ''), COALESCE(key_metrics, ''),
	COALESCE(channels, ''), COALESCE(cost_structure, ''), COALESCE(revenue_streams, ''),
	user_id, created_at, updated_at`

func scanCanvas(row interface{ Scan(...any) error }) (Canvas, error) {
	var c Canvas
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description,
		&c.Problem, &c.Solution, &c.UniqueValueProp,
		&c.UnfairAdvantage, &c.CustomerSegments, &c.KeyMetrics,
		&c.Channels, &c.CostStructure, &c.RevenueStreams,
		&c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *PostgresStore) ListCanvases(ctx context.Context, userID string) ([]CanvasSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), created_at, updated_at
		FROM canvases
		WHERE user_id=$1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	defer rows.Close()

	items := make([]CanvasSummary, 0)
	for rows.Next() {
		var item CanvasSummary
		if err := rows.Scan(&item.ID, &item.Slug, &item.Name, &item.Description, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan canvas: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canvases: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertCanvas(ctx context.Context, canvas Canvas) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO canvases (id, slug, name, description, user_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	`, canvas.ID, canvas.Slug, canvas.Name, canvas.Description, canvas.UserID)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert canvas: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCanvasBySlug(ctx context.Context, slug string) (Canvas, error) {
	return scanCanvas(s.db.QueryRowContext(ctx,
		`SELECT `+canvasColumns+` FROM canvases WHERE slug=$1`, slug))
}

func (s *PostgresStore) GetCanvasByID(ctx context.Context, canvasID string) (Canvas, error) {
	return scanCanvas(s.db.QueryRowContext(ctx,
		`SELECT `+canvasColumns+` FROM canvases WHERE id=$1`, canvasID))
}

func (s *PostgresStore) UpdateCanvas(ctx context.Context, canvas Canvas) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE canvases SET
			name=$2, description=NULLIF($3, ''),
			problem=NULLIF($4, ''), solution=NULLIF($5, ''), unique_value_prop=NULLIF($6, ''),
			unfair_advantage=NULLIF($7, ''), customer_segments=NULLIF($8, ''), key_metrics=NULLIF($9, ''),
			channels=NULLIF($10, ''), cost_structure=NULLIF($11, ''), revenue_streams=NULLIF($12, ''),
			updated_at=NOW()
		WHERE id=$1
	`, canvas.ID, canvas.Name, canvas.Description,
		canvas.Problem, canvas.Solution, canvas.UniqueValueProp,
		canvas.UnfairAdvantage, canvas.CustomerSegments, canvas.KeyMetrics,
		canvas.Channels, canvas.CostStructure, canvas.RevenueStreams)
	if err != nil {
		return fmt.Errorf("update canvas: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCanvas(ctx context.Context, canvasID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM canvases WHERE id=$1`, canvasID)
	if err != nil {
		return fmt.Errorf("delete canvas: %w", err)
	}
	return nil
}

// --- backlogs ---

const backlogColumns = `id, slug, title, COALESCE(description, ''), source, priority, status,
	COALESCE(tags, ''), is_public, COALESCE(share_token, ''), discovered_at, user_id, created_at, updated_at`

func scanBacklog(row interface{ Scan(...any) error }) (Backlog, error) {
	var b Backlog
	err := row.Scan(&b.ID, &b.Slug, &b.Title, &b.Description, &b.Source, &b.Priority, &b.Status,
		&b.Tags, &b.IsPublic, &b.ShareToken, &b.DiscoveredAt, &b.UserID, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *PostgresStore) ListBacklogs(ctx context.Context, userID string, filter BacklogFilter) ([]Backlog, error) {
	query := `SELECT ` + backlogColumns + ` FROM backlogs WHERE user_id=$1`
	args := []any{userID}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		query += fmt.Sprintf(" AND priority=$%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR COALESCE(description, '') ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backlogs: %w", err)
	}
	defer rows.Close()

	items := make([]Backlog, 0)
	for rows.Next() {
		item, err := scanBacklog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backlog: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backlogs: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertBacklog(ctx context.Context, backlog Backlog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backlogs (id, slug, title, description, source, priority, status, tags, discovered_at, user_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), $9, $10)
	`, backlog.ID, backlog.Slug, backlog.Title, backlog.Description, backlog.Source,
		backlog.Priority, backlog.Status, backlog.Tags, backlog.DiscoveredAt, backlog.UserID)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert backlog: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBacklogBySlug(ctx context.Context, slug string) (Backlog, error) {
	return scanBacklog(s.db.QueryRowContext(ctx,
		`SELECT `+backlogColumns+` FROM backlogs WHERE slug=$1`, slug))
}

func (s *PostgresStore) GetBacklogByID(ctx context.Context, backlogID string) (Backlog, error) {
	return scanBacklog(s.db.QueryRowContext(ctx,
		`SELECT `+backlogColumns+` FROM backlogs WHERE id=$1`, backlogID))
}

func (s *PostgresStore) GetBacklogByShareToken(ctx context.Context, token string) (Backlog, error) {
	return scanBacklog(s.db.QueryRowContext(ctx,
		`SELECT `+backlogColumns+` FROM backlogs WHERE share_token=$1 AND is_public`, token))
}

func (s *PostgresStore) UpdateBacklog(ctx context.Context, backlog Backlog) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE backlogs SET
			title=$2, description=NULLIF($3, ''), source=$4, priority=$5, status=$6,
			tags=NULLIF($7, ''), discovered_at=$8, updated_at=NOW()
		WHERE id=$1
	`, backlog.ID, backlog.Title, backlog.Description, backlog.Source, backlog.Priority,
		backlog.Status, backlog.Tags, backlog.DiscoveredAt)
	if err != nil {
		return fmt.Errorf("update backlog: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetBacklogSharing(ctx context.Context, backlogID string, isPublic bool, shareToken string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE backlogs SET is_public=$2, share_token=NULLIF($3, ''), updated_at=NOW()
		WHERE id=$1
	`, backlogID, isPublic, shareToken)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("set backlog sharing: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBacklog(ctx context.Context, backlogID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM backlogs WHERE id=$1`, backlogID)
	if err != nil {
		return fmt.Errorf("delete backlog: %w", err)
	}
	return nil
}

// ListBacklogTagStrings returns the raw tags field of every backlog the
// user owns. Parsing and counting happen in the service layer.
func (s *PostgresStore) ListBacklogTagStrings(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(tags, '') FROM backlogs WHERE user_id=$1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list backlog tags: %w", err)
	}
	defer rows.Close()

	items := make([]string, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		items = append(items, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

// --- canvas/backlog links ---

func (s *PostgresStore) InsertLink(ctx context.Context, link CanvasBacklogLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO canvas_backlog_links (id, canvas_id, backlog_id, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`, link.ID, link.CanvasID, link.BacklogID, link.Notes)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLink(ctx context.Context, canvasID, backlogID string) (CanvasBacklogLink, error) {
	var link CanvasBacklogLink
	err := s.db.QueryRowContext(ctx, `
		SELECT id, canvas_id, backlog_id, COALESCE(notes, ''), created_at
		FROM canvas_backlog_links
		WHERE canvas_id=$1 AND backlog_id=$2
	`, canvasID, backlogID).Scan(&link.ID, &link.CanvasID, &link.BacklogID, &link.Notes, &link.CreatedAt)
	if err != nil {
		return CanvasBacklogLink{}, err
	}
	return link, nil
}

func (s *PostgresStore) DeleteLink(ctx context.Context, linkID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM canvas_backlog_links WHERE id=$1`, linkID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLinksForCanvas(ctx context.Context, canvasID string) ([]LinkedBacklog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.slug, b.title, COALESCE(b.description, ''), b.source, b.priority, b.status,
			COALESCE(b.tags, ''), b.is_public, COALESCE(b.share_token, ''), b.discovered_at, b.user_id,
			b.created_at, b.updated_at,
			l.id, COALESCE(l.notes, ''), l.created_at
		FROM canvas_backlog_links l
		JOIN backlogs b ON b.id = l.backlog_id
		WHERE l.canvas_id=$1
		ORDER BY l.created_at DESC
	`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("list canvas links: %w", err)
	}
	defer rows.Close()

	items := make([]LinkedBacklog, 0)
	for rows.Next() {
		var item LinkedBacklog
		if err := rows.Scan(&item.ID, &item.Slug, &item.Title, &item.Description, &item.Source,
			&item.Priority, &item.Status, &item.Tags, &item.IsPublic, &item.ShareToken,
			&item.DiscoveredAt, &item.UserID, &item.CreatedAt, &item.UpdatedAt,
			&item.LinkID, &item.LinkNotes, &item.LinkCreatedAt); err != nil {
			return nil, fmt.Errorf("scan linked backlog: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canvas links: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListLinksForBacklog(ctx context.Context, backlogID string) ([]LinkedCanvas, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.slug, c.name, COALESCE(c.description, ''),
			COALESCE(c.problem, ''), COALESCE(c.solution, ''), COALESCE(c.unique_value_prop, ''),
			COALESCE(c.unfair_advantage, ''), COALESCE(c.customer_segments, ''), COALESCE(c.key_metrics, ''),
			COALESCE(c.channels, ''), COALESCE(c.cost_structure, ''), COALESCE(c.revenue_streams, ''),
			c.user_id, c.created_at, c.updated_at,
			l.id, COALESCE(l.notes, ''), l.created_at
		FROM canvas_backlog_links l
		JOIN canvases c ON c.id = l.canvas_id
		WHERE l.backlog_id=$1
		ORDER BY l.created_at DESC
	`, backlogID)
	if err != nil {
		return nil, fmt.Errorf("list backlog links: %w", err)
	}
	defer rows.Close()

	items := make([]LinkedCanvas, 0)
	for rows.Next() {
		var item LinkedCanvas
		if err := rows.Scan(&item.ID, &item.Slug, &item.Name, &item.Description,
			&item.Problem, &item.Solution, &item.UniqueValueProp,
			&item.UnfairAdvantage, &item.CustomerSegments, &item.KeyMetrics,
			&item.Channels, &item.CostStructure, &item.RevenueStreams,
			&item.UserID, &item.CreatedAt, &item.UpdatedAt,
			&item.LinkID, &item.LinkNotes, &item.LinkCreatedAt); err != nil {
			return nil, fmt.Errorf("scan linked canvas: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backlog links: %w", err)
	}
	return items, nil
}

// ListCanvasRefsForUser returns every link row for backlogs the user owns,
// joined with a summary of the linked canvas. Used to annotate backlog
// listings without an N+1 query.
func (s *PostgresStore) ListCanvasRefsForUser(ctx context.Context, userID string) ([]BacklogCanvasRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.backlog_id, l.id, COALESCE(l.notes, ''), l.created_at,
			c.id, c.slug, c.name, COALESCE(c.description, '')
		FROM canvas_backlog_links l
		JOIN backlogs b ON b.id = l.backlog_id
		JOIN canvases c ON c.id = l.canvas_id
		WHERE b.user_id=$1
		ORDER BY l.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list canvas refs: %w", err)
	}
	defer rows.Close()

	items := make([]BacklogCanvasRef, 0)
	for rows.Next() {
		var item BacklogCanvasRef
		if err := rows.Scan(&item.BacklogID, &item.LinkID, &item.Notes, &item.LinkCreatedAt,
			&item.CanvasID, &item.CanvasSlug, &item.CanvasName, &item.CanvasDescription); err != nil {
			return nil, fmt.Errorf("scan canvas ref: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canvas refs: %w", err)
	}
	return items, nil
}

// --- refresh sessions (Postgres fallback when Redis is not configured) ---

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.name, u.email
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}
