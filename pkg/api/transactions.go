package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// DateLayout is the format of Transaction.Date.
const DateLayout = "2006-01-02"

type Transaction struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	GroupID     string `json:"group_id,omitempty"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	CreatedAt   int64  `json:"created_at"`
}

// TransactionInput holds the editable fields shared by create and update.
type TransactionInput struct {
	GroupID     string `json:"group_id,omitempty"`
	Kind        string `json:"kind" validate:"required,oneof=expense earning"`
	Amount      string `json:"amount" validate:"required,positive_amount"`
	Category    string `json:"category" validate:"required,max=64"`
	Description string `json:"description,omitempty" validate:"max=500"`
	// Date defaults to today when empty.
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CreateTransactionRequest struct {
	TransactionInput
}

type CreateTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
	// UserTotal is the caller's running total after the write.
	UserTotal string `json:"user_total"`
}

type GetTransactionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

type GetTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type UpdateTransactionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	TransactionInput
}

type UpdateTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
	UserTotal   string       `json:"user_total"`
}

type DeleteTransactionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

type DeleteTransactionResponse struct {
	UserTotal string `json:"user_total"`
}

// ListTransactionsRequest lists the caller's transactions, or every member's
// transactions in a group when GroupID is set.
type ListTransactionsRequest struct {
	GroupID string `json:"group_id,omitempty"`
	Kind    string `json:"kind,omitempty" validate:"omitempty,oneof=expense earning"`
	Year    int    `json:"year,omitempty" validate:"omitempty,min=1970,max=9999"`
	// Month requires Year.
	Month int `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=1000"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

const (
	TransactionServiceName = "budgetwise.v1.TransactionService"

	TransactionServiceCreateTransactionProcedure = "/" + TransactionServiceName + "/CreateTransaction"
	TransactionServiceGetTransactionProcedure    = "/" + TransactionServiceName + "/GetTransaction"
	TransactionServiceUpdateTransactionProcedure = "/" + TransactionServiceName + "/UpdateTransaction"
	TransactionServiceDeleteTransactionProcedure = "/" + TransactionServiceName + "/DeleteTransaction"
	TransactionServiceListTransactionsProcedure  = "/" + TransactionServiceName + "/ListTransactions"
)

// TransactionServiceHandler is implemented by the server.
type TransactionServiceHandler interface {
	CreateTransaction(context.Context, *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error)
	GetTransaction(context.Context, *connect.Request[GetTransactionRequest]) (*connect.Response[GetTransactionResponse], error)
	UpdateTransaction(context.Context, *connect.Request[UpdateTransactionRequest]) (*connect.Response[UpdateTransactionResponse], error)
	DeleteTransaction(context.Context, *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
}

// NewTransactionServiceHandler returns the path prefix to mount the service on and its handler.
func NewTransactionServiceHandler(svc TransactionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, TransactionServiceCreateTransactionProcedure, svc.CreateTransaction, opts)
	handle(mux, TransactionServiceGetTransactionProcedure, svc.GetTransaction, opts)
	handle(mux, TransactionServiceUpdateTransactionProcedure, svc.UpdateTransaction, opts)
	handle(mux, TransactionServiceDeleteTransactionProcedure, svc.DeleteTransaction, opts)
	handle(mux, TransactionServiceListTransactionsProcedure, svc.ListTransactions, opts)
	return "/" + TransactionServiceName + "/", mux
}

// TransactionServiceClient calls TransactionService over HTTP.
type TransactionServiceClient struct {
	createTransaction *connect.Client[CreateTransactionRequest, CreateTransactionResponse]
	getTransaction    *connect.Client[GetTransactionRequest, GetTransactionResponse]
	updateTransaction *connect.Client[UpdateTransactionRequest, UpdateTransactionResponse]
	deleteTransaction *connect.Client[DeleteTransactionRequest, DeleteTransactionResponse]
	listTransactions  *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
}

func NewTransactionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TransactionServiceClient {
	return &TransactionServiceClient{
		createTransaction: newClient[CreateTransactionRequest, CreateTransactionResponse](httpClient, baseURL, TransactionServiceCreateTransactionProcedure, opts),
		getTransaction:    newClient[GetTransactionRequest, GetTransactionResponse](httpClient, baseURL, TransactionServiceGetTransactionProcedure, opts),
		updateTransaction: newClient[UpdateTransactionRequest, UpdateTransactionResponse](httpClient, baseURL, TransactionServiceUpdateTransactionProcedure, opts),
		deleteTransaction: newClient[DeleteTransactionRequest, DeleteTransactionResponse](httpClient, baseURL, TransactionServiceDeleteTransactionProcedure, opts),
		listTransactions:  newClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL, TransactionServiceListTransactionsProcedure, opts),
	}
}

func (c *TransactionServiceClient) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error) {
	return c.createTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) GetTransaction(ctx context.Context, req *connect.Request[GetTransactionRequest]) (*connect.Response[GetTransactionResponse], error) {
	return c.getTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) UpdateTransaction(ctx context.Context, req *connect.Request[UpdateTransactionRequest]) (*connect.Response[UpdateTransactionResponse], error) {
	return c.updateTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	return c.deleteTransaction.CallUnary(ctx, req)
}

func (c *TransactionServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}
