package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

type CategoryTotal struct {
	Category string `json:"category"`
	Kind     string `json:"kind"`
	Amount   string `json:"amount"`
	Count    int    `json:"count"`
}

type Summary struct {
	Year int `json:"year"`
	// Month is 0 for yearly summaries.
	Month      int             `json:"month,omitempty"`
	Expenses   string          `json:"expenses"`
	Earnings   string          `json:"earnings"`
	Net        string          `json:"net"`
	Categories []CategoryTotal `json:"categories"`
	// Months is the per-month breakdown of a yearly summary.
	Months []*Summary `json:"months,omitempty"`
}

// GetMonthlySummaryRequest summarizes the caller's transactions, or a whole
// group's when GroupID is set.
type GetMonthlySummaryRequest struct {
	GroupID string `json:"group_id,omitempty"`
	Year    int    `json:"year" validate:"required,min=1970,max=9999"`
	Month   int    `json:"month" validate:"required,min=1,max=12"`
}

type GetMonthlySummaryResponse struct {
	Summary *Summary `json:"summary"`
}

type GetYearlySummaryRequest struct {
	GroupID string `json:"group_id,omitempty"`
	Year    int    `json:"year" validate:"required,min=1970,max=9999"`
}

type GetYearlySummaryResponse struct {
	Summary *Summary `json:"summary"`
}

const (
	SummaryServiceName = "budgetwise.v1.SummaryService"

	SummaryServiceGetMonthlySummaryProcedure = "/" + SummaryServiceName + "/GetMonthlySummary"
	SummaryServiceGetYearlySummaryProcedure  = "/" + SummaryServiceName + "/GetYearlySummary"
)

// SummaryServiceHandler is implemented by the server.
type SummaryServiceHandler interface {
	GetMonthlySummary(context.Context, *connect.Request[GetMonthlySummaryRequest]) (*connect.Response[GetMonthlySummaryResponse], error)
	GetYearlySummary(context.Context, *connect.Request[GetYearlySummaryRequest]) (*connect.Response[GetYearlySummaryResponse], error)
}

// NewSummaryServiceHandler returns the path prefix to mount the service on and its handler.
func NewSummaryServiceHandler(svc SummaryServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, SummaryServiceGetMonthlySummaryProcedure, svc.GetMonthlySummary, opts)
	handle(mux, SummaryServiceGetYearlySummaryProcedure, svc.GetYearlySummary, opts)
	return "/" + SummaryServiceName + "/", mux
}

// SummaryServiceClient calls SummaryService over HTTP.
type SummaryServiceClient struct {
	getMonthlySummary *connect.Client[GetMonthlySummaryRequest, GetMonthlySummaryResponse]
	getYearlySummary  *connect.Client[GetYearlySummaryRequest, GetYearlySummaryResponse]
}

func NewSummaryServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SummaryServiceClient {
	return &SummaryServiceClient{
		getMonthlySummary: newClient[GetMonthlySummaryRequest, GetMonthlySummaryResponse](httpClient, baseURL, SummaryServiceGetMonthlySummaryProcedure, opts),
		getYearlySummary:  newClient[GetYearlySummaryRequest, GetYearlySummaryResponse](httpClient, baseURL, SummaryServiceGetYearlySummaryProcedure, opts),
	}
}

func (c *SummaryServiceClient) GetMonthlySummary(ctx context.Context, req *connect.Request[GetMonthlySummaryRequest]) (*connect.Response[GetMonthlySummaryResponse], error) {
	return c.getMonthlySummary.CallUnary(ctx, req)
}

func (c *SummaryServiceClient) GetYearlySummary(ctx context.Context, req *connect.Request[GetYearlySummaryRequest]) (*connect.Response[GetYearlySummaryResponse], error) {
	return c.getYearlySummary.CallUnary(ctx, req)
}
