package poems

import (
	"context"
	"fmt"
	"time"

	"github.com/shoiron/shoiron/internal/platform/db"
)

// MonthlyPoem ranks a poem by visits within the current month.
type MonthlyPoem struct {
	PoemID         int64  `json:"poem_id"`
	Title          string `json:"title"`
	AuthorID       int64  `json:"author_id"`
	AuthorFullName string `json:"author_full_name"`
	Visits         int64  `json:"visits"`
}

// MonthlyAuthor ranks an author by accumulated visits within the current month.
type MonthlyAuthor struct {
	AuthorID       int64  `json:"author_id"`
	AuthorFullName string `json:"author_full_name"`
	Visits         int64  `json:"visits"`
}

// DashboardStats is the admin home payload: live-catalog totals plus the
// current month's traffic leaders.
type DashboardStats struct {
	TotalPoems   int             `json:"total_poems"`
	TotalAuthors int             `json:"total_authors"`
	MonthLabel   string          `json:"month_label"`
	MonthVisits  int64           `json:"month_visits"`
	TopPoems     []MonthlyPoem   `json:"top_poems"`
	TopAuthors   []MonthlyAuthor `json:"top_authors"`
}

const monthlyFrom = ` FROM poem_monthly_visits m
	JOIN poems p ON p.id = m.poem_id AND p.deleted_at IS NULL
	JOIN authors a ON a.id = p.author_id AND a.deleted_at IS NULL `

// DashboardStats aggregates the admin home counters for the month holding
// now().
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	month := monthStart(now)
	stats := &DashboardStats{
		MonthLabel: monthLabel(now),
		TopPoems:   []MonthlyPoem{},
		TopAuthors: []MonthlyAuthor{},
	}

	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM poems WHERE deleted_at IS NULL`).Scan(&stats.TotalPoems)
	if err != nil {
		return nil, fmt.Errorf("poems: dashboard totals: %w", err)
	}
	err = s.pool.QueryRow(ctx, `SELECT count(*) FROM authors WHERE deleted_at IS NULL`).Scan(&stats.TotalAuthors)
	if err != nil {
		return nil, fmt.Errorf("poems: dashboard totals: %w", err)
	}
	err = s.pool.QueryRow(ctx, `SELECT COALESCE(sum(visits_count), 0)
		FROM poem_monthly_visits WHERE month_start = $1`, month).Scan(&stats.MonthVisits)
	if err != nil {
		return nil, fmt.Errorf("poems: month visits: %w", err)
	}

	stats.TopPoems, err = topMonthlyPoems(ctx, s.pool, month, topLimit)
	if err != nil {
		return nil, err
	}
	stats.TopAuthors, err = topMonthlyAuthors(ctx, s.pool, month, topLimit)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func topMonthlyPoems(ctx context.Context, q db.Querier, month time.Time, limit int) ([]MonthlyPoem, error) {
	rows, err := q.Query(ctx, `SELECT p.id, p.title, a.id, a.full_name, m.visits_count
		`+monthlyFrom+`WHERE m.month_start = $1
		ORDER BY m.visits_count DESC, p.title ASC LIMIT $2`, month, limit)
	if err != nil {
		return nil, fmt.Errorf("poems: month top poems: %w", err)
	}
	defer rows.Close()

	items := []MonthlyPoem{}
	for rows.Next() {
		var p MonthlyPoem
		if err := rows.Scan(&p.PoemID, &p.Title, &p.AuthorID, &p.AuthorFullName, &p.Visits); err != nil {
			return nil, fmt.Errorf("poems: scan month poem: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poems: month top poems: %w", err)
	}
	return items, nil
}

func topMonthlyAuthors(ctx context.Context, q db.Querier, month time.Time, limit int) ([]MonthlyAuthor, error) {
	rows, err := q.Query(ctx, `SELECT a.id, a.full_name, sum(m.visits_count) AS visits
		`+monthlyFrom+`WHERE m.month_start = $1
		GROUP BY a.id, a.full_name ORDER BY visits DESC, a.full_name ASC LIMIT $2`, month, limit)
	if err != nil {
		return nil, fmt.Errorf("poems: month top authors: %w", err)
	}
	defer rows.Close()

	items := []MonthlyAuthor{}
	for rows.Next() {
		var a MonthlyAuthor
		if err := rows.Scan(&a.AuthorID, &a.AuthorFullName, &a.Visits); err != nil {
			return nil, fmt.Errorf("poems: scan month author: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poems: month top authors: %w", err)
	}
	return items, nil
}
