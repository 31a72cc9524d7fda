package repository

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/database/dbtest"
	"github.com/Ruscigno/QuantLab/pkg/market"
)

func testRow(symbol string, day int) market.PriceRow {
	return market.PriceRow{
		Time:   time.Date(2024, 3, day, 14, 30, 0, 0, time.UTC),
		Symbol: symbol,
		Open:   170.1,
		High:   172.4,
		Low:    169.8,
		Close:  171.9,
		Volume: 51234500,
	}
}

func TestPriceRepositoryInsert(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewPriceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	outcome, err := repo.Insert(ctx, testRow("AAPL", 11))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Errorf("Expected %s, got %s", OutcomeInserted, outcome)
	}

	// Same (time, symbol) with different prices is ignored, not merged.
	dup := testRow("AAPL", 11)
	dup.Close = 999
	outcome, err = repo.Insert(ctx, dup)
	if err != nil {
		t.Fatalf("Duplicate insert returned error: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Errorf("Expected %s, got %s", OutcomeDuplicate, outcome)
	}

	// Same time, different symbol is a distinct row.
	if outcome, err = repo.Insert(ctx, testRow("MSFT", 11)); err != nil || outcome != OutcomeInserted {
		t.Errorf("Expected MSFT insert, got %s, %v", outcome, err)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 rows, got %d", total)
	}

	rows, err := repo.Range(ctx, "AAPL", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 AAPL row, got %d", len(rows))
	}
	if rows[0].Close != 171.9 {
		t.Errorf("Expected original close 171.9 to be kept, got %f", rows[0].Close)
	}
}

func TestPriceRepositoryNonUTCTimesDeduplicate(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewPriceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	row := testRow("AAPL", 12)
	if _, err := repo.Insert(ctx, row); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	shifted := row
	shifted.Time = row.Time.In(time.FixedZone("EST", -5*3600))
	outcome, err := repo.Insert(ctx, shifted)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Errorf("Expected the same instant in another zone to be a duplicate, got %s", outcome)
	}
}

func TestPriceRepositoryCountBySymbol(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewPriceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		if _, err := repo.Insert(ctx, testRow("AAPL", day)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if _, err := repo.Insert(ctx, testRow("NVDA", 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	n, err := repo.CountBySymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("CountBySymbol failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 AAPL rows, got %d", n)
	}

	n, err = repo.CountBySymbol(ctx, "ZZZZ")
	if err != nil {
		t.Fatalf("CountBySymbol failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 ZZZZ rows, got %d", n)
	}
}

func TestPriceRepositoryInsertFailure(t *testing.T) {
	db := dbtest.NewSQLite(t)
	repo := NewPriceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	if _, err := db.Exec("DROP TABLE stock_prices"); err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}

	outcome, err := repo.Insert(ctx, testRow("AAPL", 11))
	if err == nil {
		t.Fatal("Expected insert into a missing table to fail")
	}
	if outcome != OutcomeFailed {
		t.Errorf("Expected %s, got %s", OutcomeFailed, outcome)
	}
}
