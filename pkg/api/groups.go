package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

type Member struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"owner_id"`
	Members   []Member `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

// MemberBalance is one member's position in the group pool.
type MemberBalance struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	// Paid is the sum of the member's group expenses.
	Paid string `json:"paid"`
	// Total is Paid adjusted by recorded settlements.
	Total string `json:"total"`
	// Balance is Total minus the group average: positive means the member is owed.
	Balance string `json:"balance"`
}

// SuggestedSettlement is a transfer that would even out the group.
type SuggestedSettlement struct {
	FromUserID string `json:"from_user_id"`
	FromName   string `json:"from_name"`
	ToUserID   string `json:"to_user_id"`
	ToName     string `json:"to_name"`
	Amount     string `json:"amount"`
	// Statement is a ready-to-render sentence, e.g. "Bob owes Alice 50.00".
	Statement string `json:"statement"`
}

// Settlement is a payment that was recorded between two members.
type Settlement struct {
	ID         string `json:"id"`
	GroupID    string `json:"group_id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     string `json:"amount"`
	Note       string `json:"note,omitempty"`
	CreatedBy  string `json:"created_by"`
	CreatedAt  int64  `json:"created_at"`
}

type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	// MemberEmails are added alongside the caller, who becomes the owner.
	MemberEmails []string `json:"member_emails" validate:"max=50,dive,email"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMemberRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

type AddMemberResponse struct {
	Group *Group `json:"group"`
}

type RemoveMemberRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
}

type RemoveMemberResponse struct {
	Group *Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type DeleteGroupResponse struct{}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupBalancesResponse struct {
	// Average is the equal share every member should end up with.
	Average     string                 `json:"average"`
	Balances    []*MemberBalance       `json:"balances"`
	Settlements []*SuggestedSettlement `json:"settlements"`
}

type RecordSettlementRequest struct {
	GroupID    string `json:"group_id" validate:"required"`
	FromUserID string `json:"from_user_id" validate:"required"`
	ToUserID   string `json:"to_user_id" validate:"required,nefield=FromUserID"`
	Amount     string `json:"amount" validate:"required,positive_amount"`
	Note       string `json:"note" validate:"max=500"`
}

type RecordSettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

type DeleteSettlementRequest struct {
	SettlementID string `json:"settlement_id" validate:"required"`
}

type DeleteSettlementResponse struct{}

const (
	GroupServiceName = "budgetwise.v1.GroupService"

	GroupServiceCreateGroupProcedure      = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure         = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure       = "/" + GroupServiceName + "/ListGroups"
	GroupServiceAddMemberProcedure        = "/" + GroupServiceName + "/AddMember"
	GroupServiceRemoveMemberProcedure     = "/" + GroupServiceName + "/RemoveMember"
	GroupServiceDeleteGroupProcedure      = "/" + GroupServiceName + "/DeleteGroup"
	GroupServiceGetGroupBalancesProcedure = "/" + GroupServiceName + "/GetGroupBalances"
	GroupServiceRecordSettlementProcedure = "/" + GroupServiceName + "/RecordSettlement"
	GroupServiceListSettlementsProcedure  = "/" + GroupServiceName + "/ListSettlements"
	GroupServiceDeleteSettlementProcedure = "/" + GroupServiceName + "/DeleteSettlement"
)

// GroupServiceHandler is implemented by the server.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	RecordSettlement(context.Context, *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
	DeleteSettlement(context.Context, *connect.Request[DeleteSettlementRequest]) (*connect.Response[DeleteSettlementResponse], error)
}

// NewGroupServiceHandler returns the path prefix to mount the service on and its handler.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, GroupServiceCreateGroupProcedure, svc.CreateGroup, opts)
	handle(mux, GroupServiceGetGroupProcedure, svc.GetGroup, opts)
	handle(mux, GroupServiceListGroupsProcedure, svc.ListGroups, opts)
	handle(mux, GroupServiceAddMemberProcedure, svc.AddMember, opts)
	handle(mux, GroupServiceRemoveMemberProcedure, svc.RemoveMember, opts)
	handle(mux, GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts)
	handle(mux, GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts)
	handle(mux, GroupServiceRecordSettlementProcedure, svc.RecordSettlement, opts)
	handle(mux, GroupServiceListSettlementsProcedure, svc.ListSettlements, opts)
	handle(mux, GroupServiceDeleteSettlementProcedure, svc.DeleteSettlement, opts)
	return "/" + GroupServiceName + "/", mux
}

// GroupServiceClient calls GroupService over HTTP.
type GroupServiceClient struct {
	createGroup      *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup         *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups       *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMember        *connect.Client[AddMemberRequest, AddMemberResponse]
	removeMember     *connect.Client[RemoveMemberRequest, RemoveMemberResponse]
	deleteGroup      *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	recordSettlement *connect.Client[RecordSettlementRequest, RecordSettlementResponse]
	listSettlements  *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
	deleteSettlement *connect.Client[DeleteSettlementRequest, DeleteSettlementResponse]
}

func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	return &GroupServiceClient{
		createGroup:      newClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL, GroupServiceCreateGroupProcedure, opts),
		getGroup:         newClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL, GroupServiceGetGroupProcedure, opts),
		listGroups:       newClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL, GroupServiceListGroupsProcedure, opts),
		addMember:        newClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL, GroupServiceAddMemberProcedure, opts),
		removeMember:     newClient[RemoveMemberRequest, RemoveMemberResponse](httpClient, baseURL, GroupServiceRemoveMemberProcedure, opts),
		deleteGroup:      newClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL, GroupServiceDeleteGroupProcedure, opts),
		getGroupBalances: newClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL, GroupServiceGetGroupBalancesProcedure, opts),
		recordSettlement: newClient[RecordSettlementRequest, RecordSettlementResponse](httpClient, baseURL, GroupServiceRecordSettlementProcedure, opts),
		listSettlements:  newClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL, GroupServiceListSettlementsProcedure, opts),
		deleteSettlement: newClient[DeleteSettlementRequest, DeleteSettlementResponse](httpClient, baseURL, GroupServiceDeleteSettlementProcedure, opts),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteSettlement(ctx context.Context, req *connect.Request[DeleteSettlementRequest]) (*connect.Response[DeleteSettlementResponse], error) {
	return c.deleteSettlement.CallUnary(ctx, req)
}
