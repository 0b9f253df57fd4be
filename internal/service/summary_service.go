package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/budgetwise/internal/cache"
	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/internal/storage"
	"github.com/mmynk/budgetwise/pkg/api"
)

// SummaryService implements the Connect SummaryService.
type SummaryService struct {
	store  storage.Store
	cache  cache.SummaryCache
	loc    *time.Location
	logger *slog.Logger
}

var _ api.SummaryServiceHandler = (*SummaryService)(nil)

// NewSummaryService creates a SummaryService that buckets transactions into
// months in loc. A nil loc means UTC and a nil summaries cache disables caching.
func NewSummaryService(store storage.Store, summaries cache.SummaryCache, loc *time.Location, logger *slog.Logger) *SummaryService {
	if summaries == nil {
		summaries = cache.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryService{store: store, cache: summaries, loc: loc, logger: logger}
}

// GetMonthlySummary totals a month of the caller's (or a group's) transactions.
func (s *SummaryService) GetMonthlySummary(ctx context.Context, req *connect.Request[api.GetMonthlySummaryRequest]) (*connect.Response[api.GetMonthlySummaryResponse], error) {
	scope, filter, err := s.scope(ctx, req.Msg.GroupID, req.Msg)
	if err != nil {
		return nil, err
	}

	summary, err := s.cached(ctx, cache.Key{Scope: scope, Year: req.Msg.Year, Month: req.Msg.Month}, func() (*models.Summary, error) {
		return s.month(ctx, filter, req.Msg.Year, req.Msg.Month)
	})
	if err != nil {
		return nil, toConnectError(s.logger, "GetMonthlySummary", err)
	}
	return connect.NewResponse(&api.GetMonthlySummaryResponse{Summary: toAPISummary(summary)}), nil
}

// GetYearlySummary totals a year, with one row per month.
func (s *SummaryService) GetYearlySummary(ctx context.Context, req *connect.Request[api.GetYearlySummaryRequest]) (*connect.Response[api.GetYearlySummaryResponse], error) {
	scope, filter, err := s.scope(ctx, req.Msg.GroupID, req.Msg)
	if err != nil {
		return nil, err
	}

	summary, err := s.cached(ctx, cache.Key{Scope: scope, Year: req.Msg.Year}, func() (*models.Summary, error) {
		return s.year(ctx, filter, req.Msg.Year)
	})
	if err != nil {
		return nil, toConnectError(s.logger, "GetYearlySummary", err)
	}
	return connect.NewResponse(&api.GetYearlySummaryResponse{Summary: toAPISummary(summary)}), nil
}

// scope authorizes the request and returns its cache scope and base filter.
func (s *SummaryService) scope(ctx context.Context, groupID string, msg any) (string, models.TransactionFilter, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", models.TransactionFilter{}, err
	}
	if err := validateMsg(msg); err != nil {
		return "", models.TransactionFilter{}, err
	}

	if groupID == "" {
		return cache.UserScope(userID), models.TransactionFilter{UserID: userID}, nil
	}
	if _, err := memberGroup(ctx, s.store, groupID, userID); err != nil {
		return "", models.TransactionFilter{}, toConnectError(s.logger, "Summary", err)
	}
	return cache.GroupScope(groupID), models.TransactionFilter{GroupID: groupID}, nil
}

// cached serves key from the cache, computing and storing it on a miss.
// Cache failures fall through to compute.
func (s *SummaryService) cached(ctx context.Context, key cache.Key, compute func() (*models.Summary, error)) (*models.Summary, error) {
	summary, gen, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Summary cache lookup failed", "scope", key.Scope, "error", err)
	}
	if summary != nil {
		return summary, nil
	}

	summary, err = compute()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, gen, summary); err != nil {
		s.logger.Warn("Summary cache store failed", "scope", key.Scope, "error", err)
	}
	return summary, nil
}

func (s *SummaryService) month(ctx context.Context, filter models.TransactionFilter, year, month int) (*models.Summary, error) {
	filter.From, filter.To = period(year, month, s.loc)
	totals, err := s.store.CategoryTotals(ctx, filter)
	if err != nil {
		return nil, err
	}
	return summarize(year, month, totals), nil
}

func (s *SummaryService) year(ctx context.Context, filter models.TransactionFilter, year int) (*models.Summary, error) {
	yearFilter := filter
	yearFilter.From, yearFilter.To = period(year, 0, s.loc)
	totals, err := s.store.CategoryTotals(ctx, yearFilter)
	if err != nil {
		return nil, err
	}

	summary := summarize(year, 0, totals)
	summary.Months = make([]models.Summary, 0, 12)
	for m := 1; m <= 12; m++ {
		monthly, err := s.month(ctx, filter, year, m)
		if err != nil {
			return nil, err
		}
		summary.Months = append(summary.Months, *monthly)
	}
	return summary, nil
}

func summarize(year, month int, totals []models.CategoryAmount) *models.Summary {
	summary := &models.Summary{Year: year, Month: month, ByCategory: totals}
	if summary.ByCategory == nil {
		summary.ByCategory = []models.CategoryAmount{}
	}
	for _, c := range totals {
		switch c.Kind {
		case models.KindExpense:
			summary.Expenses += c.Amount
		case models.KindEarning:
			summary.Earnings += c.Amount
		}
	}
	return summary
}
