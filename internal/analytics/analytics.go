// Package analytics implements the pipeline-summary and denial-trends
// read models of spec.md §4.9, derived from the applications/decisions
// tables and the audit-event stream rather than materialized separately.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/originpoint/backend/internal/domain"
)

// Repository reads the lending-schema tables needed for both analytics
// views; it never writes, so it holds the same *sql.DB as
// internal/appsvc.Repository without needing its own role.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// TurnTime is the average duration applications spend moving from one
// stage to the next, derived from stage_transition audit events.
type TurnTime struct {
	FromStage domain.ApplicationStage
	ToStage   domain.ApplicationStage
	Average   time.Duration
}

// PipelineSummary is spec.md §4.9's read-only pipeline view: stage counts,
// pull-through ratio, and per-transition turn times over a time window.
type PipelineSummary struct {
	TimeRangeStart time.Time
	TimeRangeEnd   time.Time
	ComputedAt     time.Time
	StageCounts    map[domain.ApplicationStage]int
	PullThrough    *decimal.Decimal // nil when zero applications initiated in window
	TurnTimes      []TurnTime
}

// PipelineSummary computes the window ending at 'now' and spanning 'days'.
func (r *Repository) PipelineSummary(ctx context.Context, now time.Time, days int) (*PipelineSummary, error) {
	start := now.AddDate(0, 0, -days)
	summary := &PipelineSummary{
		TimeRangeStart: start,
		TimeRangeEnd:   now,
		ComputedAt:     now,
		StageCounts:    make(map[domain.ApplicationStage]int),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT stage, COUNT(*) FROM applications
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY stage`, start, now)
	if err != nil {
		return nil, fmt.Errorf("stage counts: %w", err)
	}
	var initiated int
	var closed int
	for rows.Next() {
		var stage domain.ApplicationStage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		summary.StageCounts[stage] = count
		initiated += count
		if stage == domain.StageClosed {
			closed = count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if initiated > 0 {
		ratio := decimal.NewFromInt(int64(closed)).Div(decimal.NewFromInt(int64(initiated)))
		summary.PullThrough = &ratio
	}

	turnTimes, err := r.turnTimes(ctx, start, now)
	if err != nil {
		return nil, err
	}
	summary.TurnTimes = turnTimes
	return summary, nil
}

type stageTransitionEvent struct {
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
}

// turnTimes walks stage_transition audit events in the window, grouping by
// (from_stage, to_stage) and averaging the gap since the prior transition
// audited for the same application.
func (r *Repository) turnTimes(ctx context.Context, start, end time.Time) ([]TurnTime, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT application_id, timestamp, event_data
		FROM audit_events
		WHERE event_type = 'stage_transition' AND timestamp BETWEEN $1 AND $2 AND application_id IS NOT NULL
		ORDER BY application_id, timestamp`, start, end)
	if err != nil {
		return nil, fmt.Errorf("load stage transitions: %w", err)
	}
	defer rows.Close()

	type key struct{ from, to domain.ApplicationStage }
	sums := make(map[key]time.Duration)
	counts := make(map[key]int)

	var prevAppID string
	var prevTS time.Time
	var havePrev bool

	for rows.Next() {
		var appID string
		var ts time.Time
		var raw []byte
		if err := rows.Scan(&appID, &ts, &raw); err != nil {
			return nil, fmt.Errorf("scan stage transition: %w", err)
		}
		var ev stageTransitionEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		if havePrev && prevAppID == appID {
			k := key{from: domain.ApplicationStage(ev.FromStage), to: domain.ApplicationStage(ev.ToStage)}
			sums[k] += ts.Sub(prevTS)
			counts[k]++
		}
		prevAppID, prevTS, havePrev = appID, ts, true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]TurnTime, 0, len(sums))
	for k, total := range sums {
		out = append(out, TurnTime{FromStage: k.from, ToStage: k.to, Average: total / time.Duration(counts[k])})
	}
	return out, nil
}

// DenialTrends is spec.md §4.9's denial-trend view: overall rate, monthly
// buckets, top reasons (reasons with count < 3 collapsed into "Other"),
// and an optional per-product breakdown.
type DenialTrends struct {
	TimeRangeStart    time.Time
	TimeRangeEnd      time.Time
	ComputedAt        time.Time
	OverallDenialRate decimal.Decimal
	PeriodBuckets     []PeriodBucket
	TopDenialReasons  map[string]int
	ByProduct         map[domain.LoanType]decimal.Decimal // nil when product filter is set
}

type PeriodBucket struct {
	Period      string // "2026-01"
	DenialRate  decimal.Decimal
	Decisions   int
	Denials     int
}

type decisionRow struct {
	ApplicationID string
	DecisionType  domain.DecisionType
	DenialReasons []string
	CreatedAt     time.Time
	LoanType      *domain.LoanType
}

func (r *Repository) DenialTrends(ctx context.Context, now time.Time, days int, product *domain.LoanType) (*DenialTrends, error) {
	start := now.AddDate(0, 0, -days)

	query := `
		SELECT d.application_id, d.decision_type, d.denial_reasons, d.created_at, a.loan_type
		FROM decisions d
		JOIN applications a ON a.id = d.application_id
		WHERE d.created_at BETWEEN $1 AND $2`
	args := []interface{}{start, now}
	if product != nil {
		query += " AND a.loan_type = $3"
		args = append(args, *product)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	defer rows.Close()

	var decisions []decisionRow
	for rows.Next() {
		var d decisionRow
		var loanType sql.NullString
		if err := rows.Scan(&d.ApplicationID, &d.DecisionType, pq.Array(&d.DenialReasons), &d.CreatedAt, &loanType); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if loanType.Valid {
			lt := domain.LoanType(loanType.String)
			d.LoanType = &lt
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trends := &DenialTrends{
		TimeRangeStart: start,
		TimeRangeEnd:   now,
		ComputedAt:     now,
	}

	totalDecisions := len(decisions)
	totalDenials := 0
	rawReasonCounts := make(map[string]int)
	buckets := make(map[string]*PeriodBucket)
	byProductDenials := make(map[domain.LoanType]int)
	byProductTotals := make(map[domain.LoanType]int)

	for _, d := range decisions {
		period := d.CreatedAt.Format("2006-01")
		b, ok := buckets[period]
		if !ok {
			b = &PeriodBucket{Period: period}
			buckets[period] = b
		}
		b.Decisions++

		if d.LoanType != nil {
			byProductTotals[*d.LoanType]++
		}

		if d.DecisionType == domain.DecisionDenied {
			totalDenials++
			b.Denials++
			if d.LoanType != nil {
				byProductDenials[*d.LoanType]++
			}
			for _, reason := range d.DenialReasons {
				rawReasonCounts[reason]++
			}
		}
	}

	if totalDecisions > 0 {
		trends.OverallDenialRate = decimal.NewFromInt(int64(totalDenials)).Div(decimal.NewFromInt(int64(totalDecisions)))
	}

	for _, b := range buckets {
		if b.Decisions > 0 {
			b.DenialRate = decimal.NewFromInt(int64(b.Denials)).Div(decimal.NewFromInt(int64(b.Decisions)))
		}
		trends.PeriodBuckets = append(trends.PeriodBuckets, *b)
	}

	trends.TopDenialReasons = bucketSmallReasons(rawReasonCounts)

	if product == nil {
		byProduct := make(map[domain.LoanType]decimal.Decimal, len(byProductTotals))
		for lt, total := range byProductTotals {
			if total == 0 {
				continue
			}
			byProduct[lt] = decimal.NewFromInt(int64(byProductDenials[lt])).Div(decimal.NewFromInt(int64(total)))
		}
		trends.ByProduct = byProduct
	}

	return trends, nil
}

// bucketSmallReasons collapses any reason with fewer than 3 occurrences
// into "Other", per spec.md §4.9.
func bucketSmallReasons(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for reason, n := range counts {
		if n < 3 {
			out["Other"] += n
			continue
		}
		out[reason] = n
	}
	return out
}
