package repo

import (
	"context"
	"testing"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
)

func TestTechnicalIndicatorUpsertReplaces(t *testing.T) {
	repo := NewTechnicalIndicatorRepo(newTestDB(t))
	ctx := context.Background()

	first := &models.TechnicalIndicator{
		Date:           "2025-01-02",
		Symbol:         "2330",
		ClosePrice:     f(1100),
		MA5:            f(1080),
		TechnicalScore: 35,
		Recommendation: models.RecommendationBuy,
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// 重算後整筆覆蓋，ID 不變
	second := &models.TechnicalIndicator{
		Date:           "2025-01-02",
		Symbol:         "2330",
		ClosePrice:     f(1100),
		MA5:            f(1085),
		TechnicalScore: -10,
		Recommendation: models.RecommendationHold,
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID should survive recompute: %s vs %s", second.ID, first.ID)
	}

	stored, err := repo.FindByKey(ctx, "2025-01-02", "2330")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if stored.MA5 == nil || *stored.MA5 != 1085 {
		t.Errorf("ma5: got %v, want 1085", stored.MA5)
	}
	if stored.Recommendation != models.RecommendationHold {
		t.Errorf("recommendation: got %s, want hold", stored.Recommendation)
	}
}

func TestTechnicalIndicatorFindLatest(t *testing.T) {
	repo := NewTechnicalIndicatorRepo(newTestDB(t))
	ctx := context.Background()

	for _, date := range []string{"2025-01-02", "2025-01-03", "2025-01-06"} {
		if err := repo.Upsert(ctx, &models.TechnicalIndicator{
			Date:   date,
			Symbol: "2330",
		}); err != nil {
			t.Fatalf("Upsert %s: %v", date, err)
		}
	}

	latest, err := repo.FindLatestBySymbol(ctx, "2330")
	if err != nil {
		t.Fatalf("FindLatestBySymbol: %v", err)
	}
	if latest == nil || latest.Date != "2025-01-06" {
		t.Errorf("latest: got %+v, want 2025-01-06", latest)
	}

	missing, err := repo.FindLatestBySymbol(ctx, "9999")
	if err != nil {
		t.Fatalf("FindLatestBySymbol miss: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown symbol, got %+v", missing)
	}
}
