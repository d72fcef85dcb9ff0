package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// MySQLAdapter persists orders, inventory units, and the single clock
// snapshot row. Multi-row mutations run in one transaction with
// rows-affected guards so they are all-or-nothing.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (id, customer, status, total_amount, remaining_amount,
			ordered_at, processed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Customer, order.Status, order.TotalAmount, order.RemainingAmount,
		order.OrderedAt, order.ProcessedAt, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, customer, status, total_amount, remaining_amount,
			ordered_at, processed_at, created_at, updated_at
		FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.Customer, &o.Status, &o.TotalAmount, &o.RemainingAmount,
		&o.OrderedAt, &o.ProcessedAt, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &o, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, customer, status, total_amount, remaining_amount,
			ordered_at, processed_at, created_at, updated_at
		FROM orders ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Customer, &o.Status, &o.TotalAmount, &o.RemainingAmount,
			&o.OrderedAt, &o.ProcessedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (m *MySQLAdapter) UpdateOrder(ctx context.Context, order domain.Order) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, remaining_amount = ?, processed_at = ?, updated_at = ?
		WHERE id = ?`,
		order.Status, order.RemainingAmount, order.ProcessedAt, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Either the order does not exist or nothing changed; re-check.
		existing, err := m.GetOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrOrderNotFound
		}
	}
	return nil
}

func (m *MySQLAdapter) ExpireDue(ctx context.Context, now, expiryDays float64) ([]domain.Order, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, customer, status, total_amount, remaining_amount,
			ordered_at, processed_at, created_at, updated_at
		FROM orders
		WHERE status = ? AND ? - ordered_at >= ?
		FOR UPDATE`,
		domain.OrderStatusPending, now, expiryDays,
	)
	if err != nil {
		return nil, fmt.Errorf("select due orders: %w", err)
	}

	var due []domain.Order
	toRelease := 0
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Customer, &o.Status, &o.TotalAmount, &o.RemainingAmount,
			&o.OrderedAt, &o.ProcessedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan due order: %w", err)
		}
		due = append(due, o)
		toRelease += o.RemainingAmount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due orders: %w", err)
	}
	if len(due) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]any, 0, len(due)+2)
	placeholders := make([]string, len(due))
	for i, o := range due {
		placeholders[i] = "?"
		ids = append(ids, o.ID)
	}
	args := append([]any{domain.OrderStatusExpired, now}, ids...)
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE orders SET status = ?, processed_at = ?, updated_at = NOW()
		WHERE id IN (%s)`, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("expire orders: %w", err)
	}

	if toRelease > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE inventory_units SET status = ?
			WHERE status = ?
			ORDER BY produced_at, id
			LIMIT ?`,
			domain.UnitAvailable, domain.UnitReserved, toRelease,
		)
		if err != nil {
			return nil, fmt.Errorf("release units: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expiry: %w", err)
	}

	for i := range due {
		due[i].Status = domain.OrderStatusExpired
		processedAt := now
		due[i].ProcessedAt = &processedAt
	}
	return due, nil
}

func (m *MySQLAdapter) CountByStatus(ctx context.Context, status domain.InventoryStatus) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_units WHERE status = ?`, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return n, nil
}

func (m *MySQLAdapter) InsertUnits(ctx context.Context, units []domain.InventoryUnit) error {
	if len(units) == 0 {
		return nil
	}
	values := make([]string, len(units))
	args := make([]any, 0, len(units)*4)
	for i, u := range units {
		values[i] = "(?, ?, ?, ?)"
		args = append(args, u.ID, u.Status, u.ProducedAt, u.SoldAt)
	}
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO inventory_units (id, status, produced_at, sold_at)
		VALUES %s`, strings.Join(values, ",")),
		args...,
	)
	if err != nil {
		return fmt.Errorf("insert units: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ReserveOldest(ctx context.Context, quantity int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory_units SET status = ?
		WHERE status = ?
		ORDER BY produced_at, id
		LIMIT ?`,
		domain.UnitReserved, domain.UnitAvailable, quantity,
	)
	if err != nil {
		return fmt.Errorf("reserve units: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows != int64(quantity) {
		// Fewer available than asked for; the rollback undoes the partial
		// flip so the reservation is all-or-nothing.
		return domain.ErrInsufficientStock
	}
	return tx.Commit()
}

func (m *MySQLAdapter) ReleaseOldestReserved(ctx context.Context, upTo int) (int, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory_units SET status = ?
		WHERE status = ?
		ORDER BY produced_at, id
		LIMIT ?`,
		domain.UnitAvailable, domain.UnitReserved, upTo,
	)
	if err != nil {
		return 0, fmt.Errorf("release units: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func (m *MySQLAdapter) ListOldest(ctx context.Context, status domain.InventoryStatus, limit int) ([]domain.InventoryUnit, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, status, produced_at, sold_at
		FROM inventory_units
		WHERE status = ?
		ORDER BY produced_at, id
		LIMIT ?`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []domain.InventoryUnit
	for rows.Next() {
		var u domain.InventoryUnit
		if err := rows.Scan(&u.ID, &u.Status, &u.ProducedAt, &u.SoldAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (m *MySQLAdapter) MarkSold(ctx context.Context, ids []string, soldAt float64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, domain.UnitSold, soldAt)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, domain.UnitSold)

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE inventory_units SET status = ?, sold_at = ?
		WHERE id IN (%s) AND status != ?`, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark sold: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows != int64(len(ids)) {
		// Some unit was missing or already sold; selling never reuses a unit.
		return domain.ErrStateConflict
	}
	return tx.Commit()
}

func (m *MySQLAdapter) TruncateUnits(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `TRUNCATE TABLE inventory_units`); err != nil {
		return fmt.Errorf("truncate units: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) SaveSnapshot(ctx context.Context, snap domain.ClockSnapshot) error {
	var refNano int64
	if !snap.Reference.IsZero() {
		refNano = snap.Reference.UnixNano()
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO clock_snapshot (id, running, reference_unix_nano, day)
		VALUES (1, ?, ?, ?)
		ON DUPLICATE KEY UPDATE running = VALUES(running),
			reference_unix_nano = VALUES(reference_unix_nano), day = VALUES(day)`,
		snap.Running, refNano, snap.Day,
	)
	if err != nil {
		return fmt.Errorf("save clock snapshot: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) LoadSnapshot(ctx context.Context) (*domain.ClockSnapshot, error) {
	var (
		running bool
		refNano int64
		day     int
	)
	err := m.db.QueryRowContext(ctx,
		`SELECT running, reference_unix_nano, day FROM clock_snapshot WHERE id = 1`,
	).Scan(&running, &refNano, &day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load clock snapshot: %w", err)
	}
	snap := &domain.ClockSnapshot{Running: running, Day: day}
	if refNano != 0 {
		snap.Reference = time.Unix(0, refNano)
	}
	return snap, nil
}

var (
	_ port.OrderRepository     = (*MySQLAdapter)(nil)
	_ port.InventoryRepository = (*MySQLAdapter)(nil)
	_ port.ClockStore          = (*MySQLAdapter)(nil)
)
