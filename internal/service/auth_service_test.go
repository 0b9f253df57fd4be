package service

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/budgetwise/pkg/api"
)

func TestRegister(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.auth.Register(t.Context(), connect.NewRequest(&api.RegisterRequest{
		Email:       " Alice@Example.com ",
		DisplayName: "Alice",
		Password:    "password123",
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Msg.Token)
	assert.NotEmpty(t, resp.Msg.User.ID)
	assert.Equal(t, "alice@example.com", resp.Msg.User.Email)
	assert.Equal(t, "0.00", resp.Msg.User.Total)
}

func TestRegister_Errors(t *testing.T) {
	env := setupTestServer(t)
	env.register(t, "alice@example.com", "Alice")

	tests := []struct {
		name string
		req  *api.RegisterRequest
		code connect.Code
	}{
		{"duplicate email", &api.RegisterRequest{Email: "ALICE@example.com", DisplayName: "A", Password: "password123"}, connect.CodeAlreadyExists},
		{"weak password", &api.RegisterRequest{Email: "bob@example.com", DisplayName: "Bob", Password: "short"}, connect.CodeInvalidArgument},
		{"invalid email", &api.RegisterRequest{Email: "not-an-email", DisplayName: "Bob", Password: "password123"}, connect.CodeInvalidArgument},
		{"missing name", &api.RegisterRequest{Email: "bob@example.com", Password: "password123"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(t.Context(), connect.NewRequest(tt.req))
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestLogin(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice@example.com", "Alice")

	resp, err := env.auth.Login(t.Context(), connect.NewRequest(&api.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resp.Msg.User.ID)
	assert.NotEmpty(t, resp.Msg.Token)

	_, err = env.auth.Login(t.Context(), connect.NewRequest(&api.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = env.auth.Login(t.Context(), connect.NewRequest(&api.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestGetCurrentUser(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice@example.com", "Alice")

	resp, err := env.auth.GetCurrentUser(t.Context(), as(alice, &api.GetCurrentUserRequest{}))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resp.Msg.User.ID)
	assert.Equal(t, "Alice", resp.Msg.User.DisplayName)
	assert.NotZero(t, resp.Msg.User.CreatedAt)

	_, err = env.auth.GetCurrentUser(t.Context(), connect.NewRequest(&api.GetCurrentUserRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = env.auth.GetCurrentUser(t.Context(), as(testUser{Token: "garbage"}, &api.GetCurrentUserRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestPrivateServicesRequireToken(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.groups.ListGroups(t.Context(), connect.NewRequest(&api.ListGroupsRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = env.transactions.ListTransactions(t.Context(), connect.NewRequest(&api.ListTransactionsRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = env.summaries.GetMonthlySummary(t.Context(), connect.NewRequest(&api.GetMonthlySummaryRequest{Year: 2024, Month: 1}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}
