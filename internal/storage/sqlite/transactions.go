package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/budgetwise/internal/models"
)

const transactionColumns = `id, user_id, group_id, kind, amount, category, description, occurred_at, created_at`

// CreateTransaction persists a transaction and applies it to the owner's total.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if txn.CreatedAt == 0 {
		txn.CreatedAt = now
	}
	if txn.OccurredAt == 0 {
		txn.OccurredAt = txn.CreatedAt
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.ID, txn.UserID, nullable(txn.GroupID), string(txn.Kind), txn.Amount,
			txn.Category, txn.Description, txn.OccurredAt, txn.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		return adjustUserTotal(ctx, tx, txn.UserID, int64(txn.Signed()), now)
	})
}

// GetTransaction retrieves a transaction by ID.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

// UpdateTransaction replaces the editable fields of a transaction and moves
// the owner's total by the difference. The owner never changes.
func (s *SQLiteStore) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	now := time.Now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getTransaction(ctx, tx, txn.ID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions
			 SET group_id = ?, kind = ?, amount = ?, category = ?, description = ?, occurred_at = ?
			 WHERE id = ?`,
			nullable(txn.GroupID), string(txn.Kind), txn.Amount, txn.Category, txn.Description, txn.OccurredAt,
			txn.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}

		txn.UserID = existing.UserID
		txn.CreatedAt = existing.CreatedAt
		delta := int64(txn.Signed() - existing.Signed())
		if delta == 0 {
			return nil
		}
		return adjustUserTotal(ctx, tx, existing.UserID, delta, now)
	})
}

// DeleteTransaction removes a transaction and reverses its effect on the owner's total.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	now := time.Now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		return adjustUserTotal(ctx, tx, existing.UserID, -int64(existing.Signed()), now)
	})
}

// ListTransactions retrieves transactions matching filter, most recent first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY occurred_at DESC, created_at DESC, id`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

// CategoryTotals sums matching transactions per kind and category, largest first.
func (s *SQLiteStore) CategoryTotals(ctx context.Context, filter models.TransactionFilter) ([]models.CategoryAmount, error) {
	where, args := filterClause(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, category, SUM(amount), COUNT(*) FROM transactions`+where+
			` GROUP BY kind, category ORDER BY kind, SUM(amount) DESC, category`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	defer rows.Close()

	var totals []models.CategoryAmount
	for rows.Next() {
		var ca models.CategoryAmount
		var kind string
		if err := rows.Scan(&kind, &ca.Category, &ca.Amount, &ca.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		ca.Kind = models.Kind(kind)
		totals = append(totals, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category totals: %w", err)
	}
	return totals, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTransaction(ctx context.Context, q querier, id string) (*models.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if isNoRows(err) {
		return nil, notFound("transaction", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	txn := &models.Transaction{}
	var groupID sql.NullString
	var kind string
	err := row.Scan(&txn.ID, &txn.UserID, &groupID, &kind, &txn.Amount,
		&txn.Category, &txn.Description, &txn.OccurredAt, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	txn.GroupID = groupID.String
	txn.Kind = models.Kind(kind)
	return txn, nil
}

func filterClause(f models.TransactionFilter) (string, []any) {
	var conds []string
	var args []any
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.GroupID != "" {
		conds = append(conds, "group_id = ?")
		args = append(args, f.GroupID)
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.From != 0 {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From)
	}
	if f.To != 0 {
		conds = append(conds, "occurred_at < ?")
		args = append(args, f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
