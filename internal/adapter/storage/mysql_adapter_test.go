package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/factorysim?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func cleanTables(t *testing.T, db *sql.DB) {
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `DELETE FROM orders WHERE customer LIKE 'test-%'`); err != nil {
		t.Fatalf("clean orders: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM inventory_units`); err != nil {
		t.Fatalf("clean units: %v", err)
	}
}

func testOrder(customer string, orderedAt float64, amount int) domain.Order {
	return domain.Order{
		ID:              uuid.NewString(),
		Customer:        customer,
		Status:          domain.OrderStatusPending,
		TotalAmount:     amount,
		RemainingAmount: amount,
		OrderedAt:       orderedAt,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func TestMySQLAdapter_OrderRoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	order := testOrder("test-customer", 1.5, 3)
	if err := adapter.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	got, err := adapter.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected order, got nil")
	}
	if got.Customer != "test-customer" || got.OrderedAt != 1.5 || got.RemainingAmount != 3 {
		t.Errorf("unexpected order: %+v", got)
	}

	got.Status = domain.OrderStatusInProgress
	got.RemainingAmount = 1
	if err := adapter.UpdateOrder(ctx, *got); err != nil {
		t.Fatalf("UpdateOrder failed: %v", err)
	}
	got, _ = adapter.GetOrder(ctx, order.ID)
	if got.Status != domain.OrderStatusInProgress || got.RemainingAmount != 1 {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestMySQLAdapter_GetOrder_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	got, err := NewMySQLAdapter(db).GetOrder(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent order")
	}
}

func TestMySQLAdapter_UpdateOrder_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	err := NewMySQLAdapter(db).UpdateOrder(context.Background(), testOrder("test-ghost", 1.0, 1))
	if err != domain.ErrOrderNotFound {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestMySQLAdapter_ReserveOldest(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	units := []domain.InventoryUnit{
		{ID: uuid.NewString(), Status: domain.UnitAvailable, ProducedAt: 2.0},
		{ID: uuid.NewString(), Status: domain.UnitAvailable, ProducedAt: 1.0},
		{ID: uuid.NewString(), Status: domain.UnitAvailable, ProducedAt: 3.0},
	}
	if err := adapter.InsertUnits(ctx, units); err != nil {
		t.Fatalf("InsertUnits failed: %v", err)
	}

	// Asking for more than exists must leave everything available.
	if err := adapter.ReserveOldest(ctx, 4); err != domain.ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	available, _ := adapter.CountByStatus(ctx, domain.UnitAvailable)
	if available != 3 {
		t.Errorf("failed reserve mutated units: available=%d", available)
	}

	if err := adapter.ReserveOldest(ctx, 1); err != nil {
		t.Fatalf("ReserveOldest failed: %v", err)
	}
	reserved, err := adapter.ListOldest(ctx, domain.UnitReserved, 10)
	if err != nil {
		t.Fatalf("ListOldest failed: %v", err)
	}
	if len(reserved) != 1 || reserved[0].ProducedAt != 1.0 {
		t.Errorf("expected the oldest unit reserved, got %+v", reserved)
	}
}

func TestMySQLAdapter_MarkSoldRejectsResale(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	unit := domain.InventoryUnit{ID: uuid.NewString(), Status: domain.UnitAvailable, ProducedAt: 1.0}
	if err := adapter.InsertUnits(ctx, []domain.InventoryUnit{unit}); err != nil {
		t.Fatalf("InsertUnits failed: %v", err)
	}

	if err := adapter.MarkSold(ctx, []string{unit.ID}, 2.0); err != nil {
		t.Fatalf("MarkSold failed: %v", err)
	}
	if err := adapter.MarkSold(ctx, []string{unit.ID}, 3.0); err != domain.ErrStateConflict {
		t.Errorf("expected ErrStateConflict on resale, got %v", err)
	}

	units, _ := adapter.ListOldest(ctx, domain.UnitSold, 1)
	if len(units) != 1 || units[0].SoldAt == nil || *units[0].SoldAt != 2.0 {
		t.Errorf("sold_at overwritten by failed resale: %+v", units)
	}
}

func TestMySQLAdapter_ExpireDue(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	if err := adapter.InsertUnits(ctx, []domain.InventoryUnit{
		{ID: uuid.NewString(), Status: domain.UnitReserved, ProducedAt: 1.0},
		{ID: uuid.NewString(), Status: domain.UnitReserved, ProducedAt: 1.0},
	}); err != nil {
		t.Fatalf("InsertUnits failed: %v", err)
	}

	stale := testOrder("test-stale", 1.0, 2)
	fresh := testOrder("test-fresh", 1.9, 1)
	for _, o := range []domain.Order{stale, fresh} {
		if err := adapter.CreateOrder(ctx, o); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
	}

	expired, err := adapter.ExpireDue(ctx, 2.0, 1.0)
	if err != nil {
		t.Fatalf("ExpireDue failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Fatalf("expected only the stale order expired, got %+v", expired)
	}

	available, _ := adapter.CountByStatus(ctx, domain.UnitAvailable)
	if available != 2 {
		t.Errorf("expected both reserved units released, got %d available", available)
	}

	// Repeat sweep finds nothing.
	expired, err = adapter.ExpireDue(ctx, 2.0, 1.0)
	if err != nil {
		t.Fatalf("repeat ExpireDue failed: %v", err)
	}
	if len(expired) != 0 {
		t.Errorf("repeat sweep expired %d orders", len(expired))
	}
}

func TestMySQLAdapter_SnapshotRoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	ref := time.Now().Truncate(time.Second)
	if err := adapter.SaveSnapshot(ctx, domain.ClockSnapshot{Running: true, Reference: ref, Day: 4}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	snap, err := adapter.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if !snap.Running || snap.Day != 4 || !snap.Reference.Equal(ref) {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	// Overwrite with a stopped snapshot; the zero reference stays zero.
	if err := adapter.SaveSnapshot(ctx, domain.ClockSnapshot{}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	snap, _ = adapter.LoadSnapshot(ctx)
	if snap.Running || snap.Day != 0 || !snap.Reference.IsZero() {
		t.Errorf("unexpected stopped snapshot: %+v", snap)
	}
}
