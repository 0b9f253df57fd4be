package service

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/budgetwise/internal/auth"
	"github.com/mmynk/budgetwise/internal/cache"
	"github.com/mmynk/budgetwise/internal/middleware"
	"github.com/mmynk/budgetwise/internal/storage/sqlite"
	"github.com/mmynk/budgetwise/pkg/api"
)

// testEnv is a full server over a temp SQLite database and an in-memory Redis.
type testEnv struct {
	store *sqlite.SQLiteStore
	redis *miniredis.Miniredis

	auth         *api.AuthServiceClient
	groups       *api.GroupServiceClient
	transactions *api.TransactionServiceClient
	summaries    *api.SummaryServiceClient
}

// testUser is a registered account and its bearer token.
type testUser struct {
	ID    string
	Email string
	Token string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	summaries := cache.NewRedis(rdb, time.Minute)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	public := connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor(logger))
	private := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(logger))

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, logger), public))
	mux.Handle(api.NewGroupServiceHandler(NewGroupService(store, summaries, logger), private))
	mux.Handle(api.NewTransactionServiceHandler(NewTransactionService(store, summaries, time.UTC, logger), private))
	mux.Handle(api.NewSummaryServiceHandler(NewSummaryService(store, summaries, time.UTC, logger), private))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:        store,
		redis:        mr,
		auth:         api.NewAuthServiceClient(http.DefaultClient, server.URL),
		groups:       api.NewGroupServiceClient(http.DefaultClient, server.URL),
		transactions: api.NewTransactionServiceClient(http.DefaultClient, server.URL),
		summaries:    api.NewSummaryServiceClient(http.DefaultClient, server.URL),
	}
}

func (e *testEnv) register(t *testing.T, email, name string) testUser {
	t.Helper()
	resp, err := e.auth.Register(t.Context(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: name,
		Password:    "password123",
	}))
	require.NoError(t, err)
	return testUser{ID: resp.Msg.User.ID, Email: resp.Msg.User.Email, Token: resp.Msg.Token}
}

// as builds a request authenticated as u.
func as[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if u.Token != "" {
		req.Header().Set("Authorization", "Bearer "+u.Token)
	}
	return req
}

func (e *testEnv) expense(t *testing.T, u testUser, groupID, amount, category, date string) *api.Transaction {
	t.Helper()
	resp, err := e.transactions.CreateTransaction(t.Context(), as(u, &api.CreateTransactionRequest{
		TransactionInput: api.TransactionInput{
			GroupID:  groupID,
			Kind:     "expense",
			Amount:   amount,
			Category: category,
			Date:     date,
		},
	}))
	require.NoError(t, err)
	return resp.Msg.Transaction
}
