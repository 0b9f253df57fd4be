package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mmynk/budgetwise/internal/cache"
	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/internal/money"
	"github.com/mmynk/budgetwise/internal/storage"
	"github.com/mmynk/budgetwise/pkg/api"
)

// TransactionService implements the Connect TransactionService.
type TransactionService struct {
	store  storage.Store
	cache  cache.SummaryCache
	loc    *time.Location
	logger *slog.Logger
}

var _ api.TransactionServiceHandler = (*TransactionService)(nil)

// NewTransactionService creates a TransactionService. Dates are interpreted
// in loc; a nil loc means UTC and a nil summaries cache disables caching.
func NewTransactionService(store storage.Store, summaries cache.SummaryCache, loc *time.Location, logger *slog.Logger) *TransactionService {
	if summaries == nil {
		summaries = cache.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TransactionService{store: store, cache: summaries, loc: loc, logger: logger}
}

// NormalizeCategory trims a category label and title-cases it, so that
// "groceries" and " Groceries" aggregate together.
func NormalizeCategory(category string) string {
	fields := strings.Fields(category)
	return cases.Title(language.Und).String(strings.Join(fields, " "))
}

// fromInput builds a transaction from the editable fields, checking the
// rules that span more than one field.
func (s *TransactionService) fromInput(ctx context.Context, userID string, in api.TransactionInput) (*models.Transaction, error) {
	kind, err := models.ParseKind(in.Kind)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	amount, err := money.Parse(in.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	txn := &models.Transaction{
		UserID:      userID,
		GroupID:     in.GroupID,
		Kind:        kind,
		Amount:      amount,
		Category:    NormalizeCategory(in.Category),
		Description: strings.TrimSpace(in.Description),
	}
	if txn.Category == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("category is required"))
	}

	day := time.Now().In(s.loc)
	if in.Date != "" {
		if day, err = time.ParseInLocation(api.DateLayout, in.Date, s.loc); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("date: %w", err))
		}
	}
	txn.OccurredAt = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc).Unix()

	if txn.GroupID != "" {
		if kind == models.KindEarning {
			return nil, connect.NewError(connect.CodeInvalidArgument, errGroupEarning)
		}
		if _, err := memberGroup(ctx, s.store, txn.GroupID, userID); err != nil {
			return nil, err
		}
	}
	return txn, nil
}

// ownTransaction loads a transaction the caller owns.
func (s *TransactionService) ownTransaction(ctx context.Context, id, userID string) (*models.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotYours)
	}
	return txn, nil
}

func (s *TransactionService) userTotal(ctx context.Context, userID string) (string, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Total.String(), nil
}

// invalidate drops the cached summaries the given transactions contribute to.
func (s *TransactionService) invalidate(ctx context.Context, txns ...*models.Transaction) {
	var scopes []string
	for _, t := range txns {
		scopes = append(scopes, cache.UserScope(t.UserID))
		if t.GroupID != "" {
			scopes = append(scopes, cache.GroupScope(t.GroupID))
		}
	}
	if err := s.cache.Invalidate(ctx, scopes...); err != nil {
		s.logger.Warn("Summary cache invalidation failed", "scopes", scopes, "error", err)
	}
}

// CreateTransaction records an expense or an earning for the caller.
func (s *TransactionService) CreateTransaction(ctx context.Context, req *connect.Request[api.CreateTransactionRequest]) (*connect.Response[api.CreateTransactionResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	txn, err := s.fromInput(ctx, userID, req.Msg.TransactionInput)
	if err != nil {
		return nil, toConnectError(s.logger, "CreateTransaction", err)
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, toConnectError(s.logger, "CreateTransaction", err)
	}
	s.invalidate(ctx, txn)

	total, err := s.userTotal(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "CreateTransaction", err)
	}

	s.logger.Info("Transaction created",
		"transaction_id", txn.ID,
		"user_id", userID,
		"group_id", txn.GroupID,
		"kind", txn.Kind,
		"amount", txn.Amount.String(),
	)
	return connect.NewResponse(&api.CreateTransactionResponse{
		Transaction: toAPITransaction(txn, s.loc),
		UserTotal:   total,
	}), nil
}

// GetTransaction retrieves one of the caller's transactions.
func (s *TransactionService) GetTransaction(ctx context.Context, req *connect.Request[api.GetTransactionRequest]) (*connect.Response[api.GetTransactionResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	txn, err := s.ownTransaction(ctx, req.Msg.TransactionID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetTransaction", err)
	}
	return connect.NewResponse(&api.GetTransactionResponse{Transaction: toAPITransaction(txn, s.loc)}), nil
}

// UpdateTransaction replaces the editable fields of one of the caller's transactions.
func (s *TransactionService) UpdateTransaction(ctx context.Context, req *connect.Request[api.UpdateTransactionRequest]) (*connect.Response[api.UpdateTransactionResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	existing, err := s.ownTransaction(ctx, req.Msg.TransactionID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateTransaction", err)
	}

	txn, err := s.fromInput(ctx, userID, req.Msg.TransactionInput)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateTransaction", err)
	}
	txn.ID = existing.ID
	if err := s.store.UpdateTransaction(ctx, txn); err != nil {
		return nil, toConnectError(s.logger, "UpdateTransaction", err)
	}
	s.invalidate(ctx, existing, txn)

	total, err := s.userTotal(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateTransaction", err)
	}

	s.logger.Info("Transaction updated", "transaction_id", txn.ID, "user_id", userID)
	return connect.NewResponse(&api.UpdateTransactionResponse{
		Transaction: toAPITransaction(txn, s.loc),
		UserTotal:   total,
	}), nil
}

// DeleteTransaction removes one of the caller's transactions.
func (s *TransactionService) DeleteTransaction(ctx context.Context, req *connect.Request[api.DeleteTransactionRequest]) (*connect.Response[api.DeleteTransactionResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	txn, err := s.ownTransaction(ctx, req.Msg.TransactionID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteTransaction", err)
	}
	if err := s.store.DeleteTransaction(ctx, txn.ID); err != nil {
		return nil, toConnectError(s.logger, "DeleteTransaction", err)
	}
	s.invalidate(ctx, txn)

	total, err := s.userTotal(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteTransaction", err)
	}

	s.logger.Info("Transaction deleted", "transaction_id", txn.ID, "user_id", userID)
	return connect.NewResponse(&api.DeleteTransactionResponse{UserTotal: total}), nil
}

// ListTransactions lists the caller's transactions, or all of a group's
// transactions when GroupID is set and the caller is a member.
func (s *TransactionService) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	if req.Msg.Month != 0 && req.Msg.Year == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMonthNeedsYear)
	}

	filter := models.TransactionFilter{
		Kind:  models.Kind(req.Msg.Kind),
		Limit: req.Msg.Limit,
	}
	if req.Msg.GroupID != "" {
		if _, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID); err != nil {
			return nil, toConnectError(s.logger, "ListTransactions", err)
		}
		filter.GroupID = req.Msg.GroupID
	} else {
		filter.UserID = userID
	}
	if req.Msg.Year != 0 {
		filter.From, filter.To = period(req.Msg.Year, req.Msg.Month, s.loc)
	}

	txns, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, toConnectError(s.logger, "ListTransactions", err)
	}

	out := make([]*api.Transaction, len(txns))
	for i, t := range txns {
		out[i] = toAPITransaction(t, s.loc)
	}
	return connect.NewResponse(&api.ListTransactionsResponse{Transactions: out}), nil
}

// period returns the half-open Unix range of a month, or of the whole year
// when month is 0.
func period(year, month int, loc *time.Location) (from, to int64) {
	if month == 0 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return start.Unix(), start.AddDate(1, 0, 0).Unix()
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start.Unix(), start.AddDate(0, 1, 0).Unix()
}
