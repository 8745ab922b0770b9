package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/repo"
)

// stubDateRunner 記錄被執行的日期，可設定特定日期失敗
type stubDateRunner struct {
	mu      sync.Mutex
	ran     []string
	failOn  string
	failErr error
}

func (s *stubDateRunner) RunDate(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ran = append(s.ran, date)
	if date == s.failOn {
		return s.failErr
	}
	return nil
}

func newTestBackfillService(t *testing.T, runner DateRunner) (*BackfillService, *repo.TickerRepo) {
	t.Helper()
	db := newServiceTestDB(t)
	tickerRepo := repo.NewTickerRepo(db)
	indicatorRepo := repo.NewTechnicalIndicatorRepo(db)
	analysis := NewAnalysisService(tickerRepo, indicatorRepo, zap.NewNop())
	holidays := newOfflineHolidayService(t)
	svc := NewBackfillService(runner, holidays, analysis, time.Millisecond, zap.NewNop())
	return svc, tickerRepo
}

func TestBackfillRangeSkipsWeekendAndRecordsFailures(t *testing.T) {
	runner := &stubDateRunner{failOn: "2025-05-05", failErr: errors.New("feed down")}
	svc, _ := newTestBackfillService(t, runner)

	// 週五到週一，中間夾一個週末
	outcomes, err := svc.Run(context.Background(), BackfillRequest{
		StartDate: "2025-05-02",
		EndDate:   "2025-05-05",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("outcomes: got %d, want 4", len(outcomes))
	}

	want := []DateStatus{DateStatusSuccess, DateStatusSkipped, DateStatusSkipped, DateStatusError}
	for i, status := range want {
		if outcomes[i].Status != status {
			t.Errorf("outcome[%d] %s: got %s, want %s", i, outcomes[i].Date, outcomes[i].Status, status)
		}
	}
	if outcomes[3].Error == "" {
		t.Error("failed date should carry the error message")
	}

	// 週末不應觸發 runner
	if len(runner.ran) != 2 {
		t.Errorf("runner ran for %v, want 2 working days", runner.ran)
	}
}

func TestBackfillExplicitDatesTakePrecedence(t *testing.T) {
	runner := &stubDateRunner{}
	svc, _ := newTestBackfillService(t, runner)

	outcomes, err := svc.Run(context.Background(), BackfillRequest{
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
		Dates:     []string{"2025-05-06", "2025-05-07"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 2 {
		t.Errorf("explicit dates should override the range, got %d outcomes", len(outcomes))
	}
}

func TestBackfillInvalidRange(t *testing.T) {
	svc, _ := newTestBackfillService(t, &stubDateRunner{})

	if _, err := svc.Run(context.Background(), BackfillRequest{
		StartDate: "2025-05-05",
		EndDate:   "2025-05-02",
	}); err == nil {
		t.Error("expected error when end date precedes start date")
	}

	if _, err := svc.Run(context.Background(), BackfillRequest{
		StartDate: "bad",
		EndDate:   "2025-05-02",
	}); err == nil {
		t.Error("expected error for malformed start date")
	}
}

func TestBackfillMissingOnly(t *testing.T) {
	runner := &stubDateRunner{}
	svc, tickerRepo := newTestBackfillService(t, runner)

	// 有行情但沒有技術指標的日期
	seedHistory(t, tickerRepo, "2330", []string{"2025-05-06", "2025-05-07"}, []float64{100, 101})

	outcomes, err := svc.Run(context.Background(), BackfillRequest{MissingOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes: got %d, want 2", len(outcomes))
	}
	if len(runner.ran) != 2 {
		t.Errorf("runner should cover both missing dates, ran %v", runner.ran)
	}
}

func TestBackfillContextCancellation(t *testing.T) {
	runner := &stubDateRunner{}
	svc, _ := newTestBackfillService(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := svc.Run(ctx, BackfillRequest{
		Dates: []string{"2025-05-06", "2025-05-07"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	// 已完成的日期結果仍會回傳
	if len(outcomes) != 1 {
		t.Errorf("partial outcomes: got %d, want 1", len(outcomes))
	}
}
