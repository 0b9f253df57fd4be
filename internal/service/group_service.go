package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"connectrpc.com/connect"

	"github.com/mmynk/budgetwise/internal/auth"
	"github.com/mmynk/budgetwise/internal/cache"
	"github.com/mmynk/budgetwise/internal/middleware"
	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/internal/money"
	"github.com/mmynk/budgetwise/internal/settle"
	"github.com/mmynk/budgetwise/internal/storage"
	"github.com/mmynk/budgetwise/pkg/api"
)

// GroupService implements the Connect GroupService.
type GroupService struct {
	store  storage.Store
	cache  cache.SummaryCache
	logger *slog.Logger
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService with the given storage backend.
// A nil summaries cache disables caching.
func NewGroupService(store storage.Store, summaries cache.SummaryCache, logger *slog.Logger) *GroupService {
	if summaries == nil {
		summaries = cache.Nop{}
	}
	return &GroupService{store: store, cache: summaries, logger: logger}
}

// callerID returns the authenticated user, or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// memberGroup loads a group the caller belongs to. Non-members get
// PermissionDenied so group IDs cannot be probed for their contents.
func memberGroup(ctx context.Context, groups storage.GroupStore, groupID, userID string) (*models.Group, error) {
	group, err := groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotMember)
	}
	return group, nil
}

func (s *GroupService) render(ctx context.Context, group *models.Group) (*api.Group, error) {
	users, err := s.store.GetUsersByIDs(ctx, group.Members)
	if err != nil {
		return nil, err
	}
	return toAPIGroup(group, users), nil
}

// CreateGroup creates a group owned by the caller. Every address in
// MemberEmails must belong to a registered user.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	s.logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.MemberEmails),
	)

	group := &models.Group{Name: req.Msg.Name, OwnerID: userID, Members: []string{userID}}
	for _, email := range req.Msg.MemberEmails {
		member, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(email))
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no user registered with email %q", email))
		}
		if err != nil {
			return nil, toConnectError(s.logger, "CreateGroup", err)
		}
		if !group.HasMember(member.ID) {
			group.Members = append(group.Members, member.ID)
		}
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, toConnectError(s.logger, "CreateGroup", err)
	}

	out, err := s.render(ctx, group)
	if err != nil {
		return nil, toConnectError(s.logger, "CreateGroup", err)
	}

	s.logger.Info("Group created", "group_id", group.ID, "owner_id", userID)
	return connect.NewResponse(&api.CreateGroupResponse{Group: out}), nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetGroup", err)
	}
	out, err := s.render(ctx, group)
	if err != nil {
		return nil, toConnectError(s.logger, "GetGroup", err)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: out}), nil
}

// ListGroups lists the groups the caller belongs to, newest first.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListGroups", err)
	}

	var ids []string
	for _, g := range groups {
		ids = append(ids, g.Members...)
	}
	slices.Sort(ids)
	users, err := s.store.GetUsersByIDs(ctx, slices.Compact(ids))
	if err != nil {
		return nil, toConnectError(s.logger, "ListGroups", err)
	}

	out := make([]*api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g, users)
	}

	s.logger.Debug("ListGroups successful", "user_id", userID, "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMember adds a registered user to the group. Any member may add others.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "AddMember", err)
	}

	member, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(req.Msg.Email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no user registered with email %q", req.Msg.Email))
	}
	if err != nil {
		return nil, toConnectError(s.logger, "AddMember", err)
	}

	if err := s.store.AddGroupMember(ctx, group.ID, member.ID); err != nil {
		return nil, toConnectError(s.logger, "AddMember", err)
	}
	group.Members = append(group.Members, member.ID)

	out, err := s.render(ctx, group)
	if err != nil {
		return nil, toConnectError(s.logger, "AddMember", err)
	}

	s.logger.Info("Member added", "group_id", group.ID, "member_id", member.ID, "added_by", userID)
	return connect.NewResponse(&api.AddMemberResponse{Group: out}), nil
}

// RemoveMember removes a member from the group. The owner may remove anyone
// but themselves; other members may only remove themselves. The member's
// balance must be settled first. Their group expenses become personal.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "RemoveMember", err)
	}

	target := req.Msg.UserID
	switch {
	case target == group.OwnerID:
		return nil, connect.NewError(connect.CodeFailedPrecondition, errOwnerLeaving)
	case userID != group.OwnerID && userID != target:
		return nil, connect.NewError(connect.CodePermissionDenied, errNotOwner)
	case !group.HasMember(target):
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("user %s is not a member", target))
	}

	view, err := s.balances(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "RemoveMember", err)
	}
	for _, b := range view.balances {
		if b.Name == target && b.Total.Abs() > settle.Epsilon {
			return nil, connect.NewError(connect.CodeFailedPrecondition, errUnsettled)
		}
	}

	if err := s.store.RemoveGroupMember(ctx, group.ID, target); err != nil {
		return nil, toConnectError(s.logger, "RemoveMember", err)
	}
	s.invalidate(ctx, cache.GroupScope(group.ID))
	group.Members = slices.DeleteFunc(group.Members, func(id string) bool { return id == target })

	out, err := s.render(ctx, group)
	if err != nil {
		return nil, toConnectError(s.logger, "RemoveMember", err)
	}

	s.logger.Info("Member removed", "group_id", group.ID, "member_id", target, "removed_by", userID)
	return connect.NewResponse(&api.RemoveMemberResponse{Group: out}), nil
}

// DeleteGroup removes a group. Only the owner may delete it. The members'
// transactions are kept as personal transactions.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteGroup", err)
	}
	if group.OwnerID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotOwner)
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, toConnectError(s.logger, "DeleteGroup", err)
	}
	s.invalidate(ctx, cache.GroupScope(group.ID))

	s.logger.Info("Group deleted", "group_id", group.ID)
	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// balanceView is a group's pool netted against its average.
type balanceView struct {
	contributions []models.MemberContribution
	// balances are keyed by user ID in Name, in member order.
	balances  []settle.Contribution
	average   money.Cents
	transfers []settle.Transfer
}

func (s *GroupService) balances(ctx context.Context, groupID string) (*balanceView, error) {
	contributions, err := s.store.GroupContributions(ctx, groupID)
	if err != nil {
		return nil, err
	}

	pool := make([]settle.Contribution, len(contributions))
	for i, c := range contributions {
		pool[i] = settle.Contribution{Name: c.UserID, Total: c.Total}
	}

	view := &balanceView{contributions: contributions, average: settle.Average(pool)}
	if view.balances, err = settle.Balances(pool); err != nil {
		return nil, err
	}
	if view.transfers, err = settle.SettleCents(pool); err != nil {
		return nil, err
	}
	return view, nil
}

// GetGroupBalances nets every member's contribution against the group
// average and suggests the transfers that would even the group out.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	s.logger.Info("GetGroupBalances request received", "group_id", groupID)

	group, err := memberGroup(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetGroupBalances", err)
	}

	view, err := s.balances(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetGroupBalances", err)
	}

	users, err := s.store.GetUsersByIDs(ctx, group.Members)
	if err != nil {
		return nil, toConnectError(s.logger, "GetGroupBalances", err)
	}
	name := func(id string) string {
		if u, ok := users[id]; ok {
			return u.DisplayName
		}
		return id
	}

	balances := make([]*api.MemberBalance, len(view.contributions))
	for i, c := range view.contributions {
		balances[i] = &api.MemberBalance{
			UserID:      c.UserID,
			DisplayName: name(c.UserID),
			Paid:        c.Paid.String(),
			Total:       c.Total.String(),
			Balance:     view.balances[i].Total.String(),
		}
	}

	suggestions := make([]*api.SuggestedSettlement, len(view.transfers))
	for i, t := range view.transfers {
		suggestions[i] = &api.SuggestedSettlement{
			FromUserID: t.From,
			FromName:   name(t.From),
			ToUserID:   t.To,
			ToName:     name(t.To),
			Amount:     t.Amount.String(),
			Statement:  fmt.Sprintf("%s owes %s %s", name(t.From), name(t.To), t.Amount),
		}
	}

	s.logger.Info("GetGroupBalances successful",
		"group_id", groupID,
		"members_count", len(balances),
		"settlements_count", len(suggestions),
	)

	return connect.NewResponse(&api.GetGroupBalancesResponse{
		Average:     view.average.String(),
		Balances:    balances,
		Settlements: suggestions,
	}), nil
}

// RecordSettlement records a payment between two members of the group.
// Any member may record it.
func (s *GroupService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "RecordSettlement", err)
	}
	for _, id := range []string{req.Msg.FromUserID, req.Msg.ToUserID} {
		if !group.HasMember(id) {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("user %s is not a member", id))
		}
	}

	amount, err := money.Parse(req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(s.logger, "RecordSettlement", err)
	}

	settlement := &models.Settlement{
		GroupID:    group.ID,
		FromUserID: req.Msg.FromUserID,
		ToUserID:   req.Msg.ToUserID,
		Amount:     amount,
		CreatedBy:  userID,
		Note:       req.Msg.Note,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, toConnectError(s.logger, "RecordSettlement", err)
	}

	s.logger.Info("Settlement recorded",
		"group_id", group.ID,
		"settlement_id", settlement.ID,
		"from", settlement.FromUserID,
		"to", settlement.ToUserID,
		"amount", settlement.Amount.String(),
	)
	return connect.NewResponse(&api.RecordSettlementResponse{Settlement: toAPISettlement(settlement)}), nil
}

// ListSettlements lists the group's recorded payments, newest first.
func (s *GroupService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListSettlements", err)
	}

	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListSettlements", err)
	}

	out := make([]*api.Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = toAPISettlement(st)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}

// DeleteSettlement removes a recorded payment. Only the member who recorded
// it or the group owner may delete it.
func (s *GroupService) DeleteSettlement(ctx context.Context, req *connect.Request[api.DeleteSettlementRequest]) (*connect.Response[api.DeleteSettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	settlement, err := s.store.GetSettlement(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteSettlement", err)
	}
	group, err := memberGroup(ctx, s.store, settlement.GroupID, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteSettlement", err)
	}
	if userID != settlement.CreatedBy && userID != group.OwnerID {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("only the recorder or the group owner can delete a settlement"))
	}

	if err := s.store.DeleteSettlement(ctx, settlement.ID); err != nil {
		return nil, toConnectError(s.logger, "DeleteSettlement", err)
	}

	s.logger.Info("Settlement deleted", "group_id", group.ID, "settlement_id", settlement.ID)
	return connect.NewResponse(&api.DeleteSettlementResponse{}), nil
}

// invalidate drops cached summaries. Failures only cost freshness until the
// entries expire, so they are logged rather than returned.
func (s *GroupService) invalidate(ctx context.Context, scopes ...string) {
	if err := s.cache.Invalidate(ctx, scopes...); err != nil {
		s.logger.Warn("Summary cache invalidation failed", "scopes", scopes, "error", err)
	}
}
