package service

import (
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/budgetwise/internal/auth"
	"github.com/mmynk/budgetwise/internal/money"
	"github.com/mmynk/budgetwise/internal/settle"
	"github.com/mmynk/budgetwise/internal/storage"
)

var (
	errNotMember      = errors.New("not a member of this group")
	errNotOwner       = errors.New("only the group owner can do this")
	errNotYours       = errors.New("transaction belongs to another user")
	errOwnerLeaving   = errors.New("the owner cannot be removed; delete the group instead")
	errUnsettled      = errors.New("member still has an open balance; settle up first")
	errGroupEarning   = errors.New("earnings are personal and cannot belong to a group")
	errMonthNeedsYear = errors.New("month requires year")
)

// toConnectError maps domain and storage errors onto Connect codes.
// Errors that are already *connect.Error pass through.
func toConnectError(logger *slog.Logger, op string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrAlreadyExists), errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, settle.ErrDuplicateMember),
		errors.Is(err, settle.ErrInvalidTotal):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	}

	logger.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, fmt.Errorf("%s failed", op))
}
