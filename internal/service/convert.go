package service

import (
	"time"

	"github.com/mmynk/budgetwise/internal/models"
	"github.com/mmynk/budgetwise/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Total:       u.Total.String(),
		CreatedAt:   u.CreatedAt,
	}
}

// toAPIGroup renders group with member details from users. Members missing
// from users are listed by ID only.
func toAPIGroup(group *models.Group, users map[string]*models.User) *api.Group {
	members := make([]api.Member, len(group.Members))
	for i, id := range group.Members {
		members[i] = api.Member{UserID: id}
		if u, ok := users[id]; ok {
			members[i].DisplayName = u.DisplayName
			members[i].Email = u.Email
		}
	}
	return &api.Group{
		ID:        group.ID,
		Name:      group.Name,
		OwnerID:   group.OwnerID,
		Members:   members,
		CreatedAt: group.CreatedAt,
	}
}

func toAPISettlement(s *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:         s.ID,
		GroupID:    s.GroupID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     s.Amount.String(),
		Note:       s.Note,
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt,
	}
}

func toAPITransaction(t *models.Transaction, loc *time.Location) *api.Transaction {
	return &api.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		GroupID:     t.GroupID,
		Kind:        string(t.Kind),
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		Date:        time.Unix(t.OccurredAt, 0).In(loc).Format(api.DateLayout),
		CreatedAt:   t.CreatedAt,
	}
}

func toAPISummary(s *models.Summary) *api.Summary {
	out := &api.Summary{
		Year:       s.Year,
		Month:      s.Month,
		Expenses:   s.Expenses.String(),
		Earnings:   s.Earnings.String(),
		Net:        s.Net().String(),
		Categories: make([]api.CategoryTotal, len(s.ByCategory)),
	}
	for i, c := range s.ByCategory {
		out.Categories[i] = api.CategoryTotal{
			Category: c.Category,
			Kind:     string(c.Kind),
			Amount:   c.Amount.String(),
			Count:    c.Count,
		}
	}
	for i := range s.Months {
		out.Months = append(out.Months, toAPISummary(&s.Months[i]))
	}
	return out
}
