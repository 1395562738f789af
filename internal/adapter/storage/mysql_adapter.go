package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

const mysqlDuplicateEntry = 1062

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_items (
		sku         VARCHAR(64)   NOT NULL PRIMARY KEY,
		name        VARCHAR(255)  NOT NULL DEFAULT '',
		description TEXT          NOT NULL,
		price       DECIMAL(12,2) NOT NULL DEFAULT 0,
		quantity    INT UNSIGNED  NOT NULL DEFAULT 0,
		version     INT           NOT NULL DEFAULT 0,
		created_at  TIMESTAMP     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS applied_transfers (
		transfer_id VARCHAR(64) NOT NULL,
		direction   VARCHAR(8)  NOT NULL,
		sku         VARCHAR(64) NOT NULL,
		quantity    INT         NOT NULL,
		created_at  TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (transfer_id, direction)
	)`,
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the tables the adapter relies on.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// PurgeAppliedTransfers drops transfer markers older than retention, the
// MySQL counterpart of the Redis marker TTL. Returns the number of rows removed.
func (m *MySQLAdapter) PurgeAppliedTransfers(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 0 {
		retention = 0
	}
	result, err := m.db.ExecContext(ctx, `
		DELETE FROM applied_transfers
		WHERE created_at <= NOW() - INTERVAL ? SECOND`,
		int64(retention/time.Second),
	)
	if err != nil {
		return 0, fmt.Errorf("purge applied transfers: %w", err)
	}
	return result.RowsAffected()
}

func (m *MySQLAdapter) GetItem(ctx context.Context, sku string) (domain.StockItem, error) {
	return getItem(ctx, m.db, sku)
}

func (m *MySQLAdapter) DecrementStock(ctx context.Context, req domain.TransferRequest) (domain.StockItem, domain.DecrementStatus, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockItem{}, domain.DecrementInsufficient, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fresh, err := markApplied(ctx, tx, transferKey(req.TransferID), "debit", req.SKU, req.Quantity)
	if err != nil {
		return domain.StockItem{}, domain.DecrementInsufficient, err
	}
	if !fresh {
		item, err := getItem(ctx, tx, req.SKU)
		return item, domain.DecrementReplayed, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE stock_items
		SET quantity = quantity - ?, version = version + 1
		WHERE sku = ? AND quantity >= ?`,
		req.Quantity, req.SKU, req.Quantity,
	)
	if err != nil {
		return domain.StockItem{}, domain.DecrementInsufficient, fmt.Errorf("update stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// rollback also drops the transfer marker
		item, err := getItem(ctx, tx, req.SKU)
		if errors.Is(err, domain.ErrItemNotFound) {
			return domain.StockItem{SKU: req.SKU}, domain.DecrementInsufficient, nil
		}
		return item, domain.DecrementInsufficient, err
	}

	item, err := getItem(ctx, tx, req.SKU)
	if err != nil {
		return domain.StockItem{}, domain.DecrementInsufficient, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StockItem{}, domain.DecrementInsufficient, fmt.Errorf("commit: %w", err)
	}
	return item, domain.DecrementApplied, nil
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fresh, err := markApplied(ctx, tx, transferKey(req.TransferID), "credit", req.SKU, req.Quantity)
	if err != nil {
		return domain.StockItem{}, err
	}
	if fresh {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_items (sku, name, description, price, quantity)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), version = version + 1`,
			req.SKU, req.Name, req.Description, req.Price, req.Quantity,
		)
		if err != nil {
			return domain.StockItem{}, fmt.Errorf("upsert stock: %w", err)
		}
	}

	item, err := getItem(ctx, tx, req.SKU)
	if err != nil {
		return domain.StockItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StockItem{}, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) SetItem(ctx context.Context, item domain.StockItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock_items (sku, name, description, price, quantity)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), description = VALUES(description),
			price = VALUES(price), quantity = VALUES(quantity), version = version + 1`,
		item.SKU, item.Name, item.Description, item.Price, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("set item: %w", err)
	}
	return nil
}

func getItem(ctx context.Context, q rowQuerier, sku string) (domain.StockItem, error) {
	var item domain.StockItem
	err := q.QueryRowContext(ctx, `
		SELECT sku, name, description, price, quantity
		FROM stock_items WHERE sku = ?`, sku,
	).Scan(&item.SKU, &item.Name, &item.Description, &item.Price, &item.Quantity)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.StockItem{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("query stock: %w", err)
	}
	return item, nil
}

// markApplied records the transfer leg, reporting false when it was already there.
func markApplied(ctx context.Context, tx *sql.Tx, transferID, direction, sku string, quantity int) (bool, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO applied_transfers (transfer_id, direction, sku, quantity)
		VALUES (?, ?, ?, ?)`,
		transferID, direction, sku, quantity,
	)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record transfer: %w", err)
	}
	return true, nil
}
