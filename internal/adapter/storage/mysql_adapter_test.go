package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

func getMySQLAdapter(t *testing.T) (*MySQLAdapter, *sql.DB) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/dcstock?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	adapter := NewMySQLAdapter(db)
	require.NoError(t, adapter.EnsureSchema(context.Background()))
	return adapter, db
}

func transferID(prefix string) string {
	return prefix + "-" + time.Now().Format("20060102150405.000000")
}

func TestMySQLDecrementStock_Success(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, adapter.SetItem(ctx, domain.StockItem{
		SKU: "test-item", Name: "Test", Price: decimal.NewFromInt(10), Quantity: 100,
	}))

	item, status, err := adapter.DecrementStock(ctx, domain.TransferRequest{
		TransferID: transferID("mysql-dec"), SKU: "test-item", Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementApplied, status)
	assert.Equal(t, 99, item.Quantity)

	var stock int
	db.QueryRowContext(ctx, `SELECT quantity FROM stock_items WHERE sku = 'test-item'`).Scan(&stock)
	assert.Equal(t, 99, stock)
}

func TestMySQLDecrementStock_InsufficientStock(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, adapter.SetItem(ctx, domain.StockItem{SKU: "empty-item", Name: "Empty", Quantity: 0}))

	id := transferID("mysql-insufficient")
	_, status, err := adapter.DecrementStock(ctx, domain.TransferRequest{TransferID: id, SKU: "empty-item", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementInsufficient, status)

	// the rejected leg must not leave a marker behind
	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applied_transfers WHERE transfer_id = ?`, id).Scan(&count)
	assert.Equal(t, 0, count)
}

func TestMySQLDecrementStock_ReplayedTransferAppliedOnce(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, adapter.SetItem(ctx, domain.StockItem{SKU: "replay-item", Name: "Replay", Quantity: 10}))

	req := domain.TransferRequest{TransferID: transferID("mysql-replay"), SKU: "replay-item", Quantity: 4}
	_, status, err := adapter.DecrementStock(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementApplied, status)

	for i := 1; i < 2; i++ {
		_, status, err = adapter.DecrementStock(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.DecrementReplayed, status)
	}

	item, err := adapter.GetItem(ctx, "replay-item")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
}

func TestMySQLIncrementStock_Upsert(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM stock_items WHERE sku = 'upsert-item'`)

	req := domain.CreditRequest{
		TransferRequest: domain.TransferRequest{TransferID: transferID("mysql-credit"), SKU: "upsert-item", Quantity: 20},
		Name:            "Hammer",
		Price:           decimal.NewFromInt(8),
	}
	item, err := adapter.IncrementStock(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 20, item.Quantity)
	assert.Equal(t, "Hammer", item.Name)

	req.TransferID = transferID("mysql-credit-2")
	item, err = adapter.IncrementStock(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 40, item.Quantity)
}

func TestMySQLGetItem_NotFound(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	_, err := adapter.GetItem(context.Background(), "nonexistent-item")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestMySQLPurgeAppliedTransfers(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, adapter.SetItem(ctx, domain.StockItem{SKU: "purge-item", Name: "Purge", Quantity: 10}))

	id := transferID("mysql-purge")
	_, status, err := adapter.DecrementStock(ctx, domain.TransferRequest{TransferID: id, SKU: "purge-item", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, domain.DecrementApplied, status)

	var count int
	countMarkers := func() int {
		db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applied_transfers WHERE transfer_id = ?`, id).Scan(&count)
		return count
	}

	_, err = adapter.PurgeAppliedTransfers(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, countMarkers())

	removed, err := adapter.PurgeAppliedTransfers(ctx, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))
	assert.Equal(t, 0, countMarkers())
}
