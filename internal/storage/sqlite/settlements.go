package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/internal/money"
)

const settlementColumns = `id, group_id, from_user_id, to_user_id, amount, created_at, created_by, note`

// CreateSettlement persists a new settlement to the database.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (`+settlementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount, settlement.CreatedAt, settlement.CreatedBy, nullable(settlement.Note),
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`,
		settlementID,
	)
	settlement, err := scanSettlement(row)
	if isNoRows(err) {
		return nil, notFound("settlement", settlementID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// ListSettlementsByGroup retrieves all settlements for a group, newest first.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE group_id = ? ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// DeleteSettlement removes a settlement by ID.
func (s *SQLiteStore) DeleteSettlement(ctx context.Context, settlementID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM settlements WHERE id = ?", settlementID)
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	if n == 0 {
		return notFound("settlement", settlementID)
	}
	return nil
}

// GroupContributions computes each current member's share of the group pool.
// Paying a settlement counts like paying an expense; receiving one counts
// against the receiver.
func (s *SQLiteStore) GroupContributions(ctx context.Context, groupID string) ([]models.MemberContribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.user_id,
		        COALESCE((SELECT SUM(t.amount) FROM transactions t
		                  WHERE t.group_id = m.group_id AND t.user_id = m.user_id AND t.kind = 'expense'), 0),
		        COALESCE((SELECT SUM(s.amount) FROM settlements s
		                  WHERE s.group_id = m.group_id AND s.from_user_id = m.user_id), 0),
		        COALESCE((SELECT SUM(s.amount) FROM settlements s
		                  WHERE s.group_id = m.group_id AND s.to_user_id = m.user_id), 0)
		 FROM group_members m
		 WHERE m.group_id = ?
		 ORDER BY m.joined_at, m.rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute group contributions: %w", err)
	}
	defer rows.Close()

	var contributions []models.MemberContribution
	for rows.Next() {
		var c models.MemberContribution
		var sent, received int64
		if err := rows.Scan(&c.UserID, &c.Paid, &sent, &received); err != nil {
			return nil, fmt.Errorf("failed to scan group contribution: %w", err)
		}
		c.Total = c.Paid + money.Cents(sent-received)
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group contributions: %w", err)
	}
	return contributions, nil
}

func scanSettlement(row scanner) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var note sql.NullString
	err := row.Scan(&settlement.ID, &settlement.GroupID, &settlement.FromUserID, &settlement.ToUserID,
		&settlement.Amount, &settlement.CreatedAt, &settlement.CreatedBy, &note)
	if err != nil {
		return nil, err
	}
	settlement.Note = note.String
	return settlement, nil
}
