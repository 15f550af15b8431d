package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/domain"
)

// ============================================================================
// ANALYTICS UNIT TESTS
// ============================================================================

func TestBucketSmallReasons_CollapsesReasonsUnderThreeIntoOther(t *testing.T) {
	counts := map[string]int{
		"high_dti":        5,
		"low_credit":      3,
		"missing_docs":    2,
		"unstable_income": 1,
	}

	out := bucketSmallReasons(counts)

	assert.Equal(t, 5, out["high_dti"])
	assert.Equal(t, 3, out["low_credit"])
	assert.Equal(t, 3, out["Other"]) // 2 + 1 collapsed
	assert.NotContains(t, out, "missing_docs")
}

func newMockAnalyticsRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestPipelineSummary_ComputesPullThroughRatio(t *testing.T) {
	repo, mock := newMockAnalyticsRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	stageRows := sqlmock.NewRows([]string{"stage", "count"}).
		AddRow(string(domain.StageInquiry), 10).
		AddRow(string(domain.StageClosed), 4)
	mock.ExpectQuery("SELECT stage, COUNT").WillReturnRows(stageRows)

	transitionRows := sqlmock.NewRows([]string{"application_id", "timestamp", "event_data"})
	mock.ExpectQuery("SELECT application_id, timestamp, event_data").WillReturnRows(transitionRows)

	summary, err := repo.PipelineSummary(context.Background(), now, 30)

	require.NoError(t, err)
	require.NotNil(t, summary.PullThrough)
	assert.InDelta(t, 4.0/14.0, summary.PullThrough.InexactFloat64(), 0.0001) // 4 closed of 14 initiated
	assert.Equal(t, 10, summary.StageCounts[domain.StageInquiry])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelineSummary_NilPullThroughWhenNoApplicationsInitiated(t *testing.T) {
	repo, mock := newMockAnalyticsRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT stage, COUNT").WillReturnRows(sqlmock.NewRows([]string{"stage", "count"}))
	mock.ExpectQuery("SELECT application_id, timestamp, event_data").WillReturnRows(sqlmock.NewRows([]string{"application_id", "timestamp", "event_data"}))

	summary, err := repo.PipelineSummary(context.Background(), now, 30)

	require.NoError(t, err)
	assert.Nil(t, summary.PullThrough)
}

func TestDenialTrends_ZeroDecisionsYieldsZeroRate(t *testing.T) {
	repo, mock := newMockAnalyticsRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT d.application_id").WillReturnRows(sqlmock.NewRows(
		[]string{"application_id", "decision_type", "denial_reasons", "created_at", "loan_type"}))

	trends, err := repo.DenialTrends(context.Background(), now, 30, nil)

	require.NoError(t, err)
	assert.True(t, trends.OverallDenialRate.IsZero())
}

func TestDenialTrends_ComputesOverallRateAndTopReasons(t *testing.T) {
	repo, mock := newMockAnalyticsRepo(t)
	now := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"application_id", "decision_type", "denial_reasons", "created_at", "loan_type"}).
		AddRow("app-1", domain.DecisionDenied, "{high_dti}", now, string(domain.LoanConventional30)).
		AddRow("app-2", domain.DecisionDenied, "{high_dti}", now, string(domain.LoanConventional30)).
		AddRow("app-3", domain.DecisionApproved, "{}", now, string(domain.LoanConventional30))

	mock.ExpectQuery("SELECT d.application_id").WillReturnRows(rows)

	trends, err := repo.DenialTrends(context.Background(), now, 30, nil)

	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, trends.OverallDenialRate.InexactFloat64(), 0.0001)
	assert.Len(t, trends.PeriodBuckets, 1)
	assert.NotNil(t, trends.ByProduct)
	assert.NoError(t, mock.ExpectationsWereMet())
}
