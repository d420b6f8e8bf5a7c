package tracking

import (
	"context"
	"database/sql"

	"github.com/clicksand/clicksand/internal/infrastructure/driver"
	"github.com/clicksand/clicksand/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// SnapshotSQL durable snapshot store over the shared SQL abstraction. One
// JSON document per user, the same document the extension wrote to disk,
// so rows imported from old installations load unchanged
type SnapshotSQL struct {
	Conn driver.ITransactionalDB
}

var _ SnapshotRepository = &SnapshotSQL{}

// NewSnapshotSQL create a SQL backed snapshot repository
func NewSnapshotSQL(Conn driver.ITransactionalDB) *SnapshotSQL {
	return &SnapshotSQL{Conn: Conn}
}

// Load fetch and decode the user's snapshot. An unparseable row degrades to
// (nil, nil) so the caller falls back to default state instead of failing
func (repo *SnapshotSQL) Load(ctx context.Context, userID string) (*UserTimeStore, error) {
	conn := repo.Conn
	rows, err := conn.QueryContext(ctx, `SELECT snapshot FROM user_snapshot WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	var raw []byte
	if err := rows.Scan(&raw); err != nil {
		return nil, err
	}

	store, err := DecodeSnapshot(raw)
	if err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn("Discarding unparseable snapshot",
			zap.String("user.id", userID), zap.Error(err))
		return nil, nil
	}
	return store, nil
}

// Save upsert the user's snapshot inside one transaction
func (repo *SnapshotSQL) Save(ctx context.Context, userID string, store *UserTimeStore) error {
	raw, err := EncodeSnapshot(store)
	if err != nil {
		return err
	}

	tx, err := repo.Conn.BeginTx(ctx, &driver.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE user_snapshot SET snapshot = $1 WHERE user_id = $2`, raw, userID)
	if err != nil {
		tx.Rollback(ctx)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_snapshot(user_id, snapshot) VALUES($1, $2)`, userID, raw); err != nil {
			tx.Rollback(ctx)
			return err
		}
	}
	return tx.Commit(ctx)
}
