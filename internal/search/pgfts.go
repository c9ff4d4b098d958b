package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across canvases and backlogs using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultCanvas {
		canvasWhere := "c.fts @@ " + tsQuery
		if q.UserID != "" {
			canvasWhere += fmt.Sprintf(" AND c.user_id = $%d", argN)
			args = append(args, q.UserID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'canvas'::text AS type, c.id, c.slug, c.name AS title,
				ts_headline('english', coalesce(c.problem, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS priority, ''::text AS status,
				ts_rank(c.fts, %s) AS rank
			FROM canvases c
			WHERE %s`, tsQuery, tsQuery, canvasWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultBacklog {
		backlogWhere := "b.fts @@ " + tsQuery
		if q.UserID != "" {
			backlogWhere += fmt.Sprintf(" AND b.user_id = $%d", argN)
			args = append(args, q.UserID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'backlog'::text AS type, b.id, b.slug, b.title,
				ts_headline('english', coalesce(b.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				b.priority, b.status,
				ts_rank(b.fts, %s) AS rank
			FROM backlogs b
			WHERE %s`, tsQuery, tsQuery, backlogWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, slug, title, snippet, priority, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Slug, &r.Title, &r.Snippet, &r.Priority, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]CanvasRecord, []BacklogRecord, error) {
	canvasRows, err := p.db.QueryContext(ctx, `
		SELECT id, slug, name,
			coalesce(problem, ''), coalesce(solution, ''),
			coalesce(unique_value_prop, ''), coalesce(customer_segments, ''),
			user_id
		FROM canvases
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load canvases: %w", err)
	}
	defer canvasRows.Close()

	canvases := make([]CanvasRecord, 0)
	for canvasRows.Next() {
		var c CanvasRecord
		if err := canvasRows.Scan(&c.ID, &c.Slug, &c.Name, &c.Problem, &c.Solution, &c.UniqueValueProp, &c.CustomerSegments, &c.UserID); err != nil {
			return nil, nil, fmt.Errorf("scan canvas: %w", err)
		}
		canvases = append(canvases, c)
	}
	if err := canvasRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate canvases: %w", err)
	}

	backlogRows, err := p.db.QueryContext(ctx, `
		SELECT id, slug, title,
			coalesce(description, ''), coalesce(tags, ''),
			priority, status, user_id
		FROM backlogs
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load backlogs: %w", err)
	}
	defer backlogRows.Close()

	backlogs := make([]BacklogRecord, 0)
	for backlogRows.Next() {
		var b BacklogRecord
		if err := backlogRows.Scan(&b.ID, &b.Slug, &b.Title, &b.Description, &b.Tags, &b.Priority, &b.Status, &b.UserID); err != nil {
			return nil, nil, fmt.Errorf("scan backlog: %w", err)
		}
		backlogs = append(backlogs, b)
	}
	if err := backlogRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate backlogs: %w", err)
	}

	return canvases, backlogs, nil
}
