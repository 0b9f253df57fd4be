// Package settle computes the transfers that even out a group's shared spending.
//
// Every member is netted against the group average, each balance rounded to
// the cent, and the largest debtor is repeatedly matched with the largest
// creditor until both are within Epsilon of settled. Each transfer fully
// clears at least one member, so a group of n members needs at most n-1.
package settle

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/budgetwise/internal/metrics"
	"github.com/mmynk/budgetwise/internal/money"
)

// Epsilon is the imbalance at or below which a member counts as settled.
// Rounding every balance to the cent independently leaves residues of this
// size that are not worth a transfer.
const Epsilon money.Cents = 1

var (
	ErrInvalidTotal    = errors.New("member total must be a finite number within range")
	ErrDuplicateMember = errors.New("duplicate member name")
)

// Member is one participant's net contribution to the shared pool.
// A positive Total means the member paid in more than others.
type Member struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// Settlement is a payment instruction: From pays To the given Amount.
type Settlement struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Contribution is Member expressed in cents.
type Contribution struct {
	Name  string
	Total money.Cents
}

// Transfer is Settlement expressed in cents.
type Transfer struct {
	From   string
	To     string
	Amount money.Cents
}

// SettleBalances returns the payments that bring every member to the group
// average. Totals are rounded to cents first; non-finite totals and totals
// beyond money.MaxAbs are rejected. The input slice is never modified.
func SettleBalances(members []Member) ([]Settlement, error) {
	contribs := make([]Contribution, len(members))
	for i, m := range members {
		c, err := money.FromFloat(m.Total)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTotal, m.Name)
		}
		contribs[i] = Contribution{Name: m.Name, Total: c}
	}

	transfers, err := SettleCents(contribs)
	if err != nil {
		return nil, err
	}

	out := make([]Settlement, len(transfers))
	for i, t := range transfers {
		out[i] = Settlement{From: t.From, To: t.To, Amount: t.Amount.Float64()}
	}
	return out, nil
}

// SettleCents is SettleBalances over integer cents.
func SettleCents(contribs []Contribution) ([]Transfer, error) {
	if err := check(contribs); err != nil {
		return nil, err
	}

	if len(contribs) < 2 {
		return []Transfer{}, nil
	}

	return greedy(balances(contribs)), nil
}

// Balances returns each member's distance from the group average rounded to
// the cent, in input order. Positive means the member is owed money.
func Balances(contribs []Contribution) ([]Contribution, error) {
	if err := check(contribs); err != nil {
		return nil, err
	}
	out := make([]Contribution, len(contribs))
	if len(contribs) == 0 {
		return out, nil
	}
	for i, b := range balances(contribs) {
		out[i] = Contribution{Name: b.name, Total: b.cents}
	}
	return out, nil
}

// Average is the equal share of the pool, rounded half away from zero.
// Totals beyond money.MaxAbs make the result meaningless.
func Average(contribs []Contribution) money.Cents {
	if len(contribs) == 0 {
		return 0
	}
	return money.FromDecimal(average(contribs))
}

func average(contribs []Contribution) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range contribs {
		sum = sum.Add(c.Total.Decimal())
	}
	return sum.Div(decimal.NewFromInt(int64(len(contribs))))
}

func check(contribs []Contribution) error {
	seen := make(map[string]struct{}, len(contribs))
	for _, c := range contribs {
		if !c.Total.InRange() {
			return fmt.Errorf("%w: %q", ErrInvalidTotal, c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateMember, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

type balance struct {
	name  string
	cents money.Cents
}

// balances nets each total against the exact group average and rounds the
// result half away from zero. The rounded balances need not sum to zero;
// greedy leaves the difference with whoever is matched last.
func balances(contribs []Contribution) []balance {
	avg := average(contribs)
	out := make([]balance, len(contribs))
	for i, c := range contribs {
		out[i] = balance{name: c.Name, cents: money.FromDecimal(c.Total.Decimal().Sub(avg))}
	}
	return out
}

func greedy(bs []balance) []Transfer {
	transfers := make([]Transfer, 0, len(bs)-1)
	limit := len(bs) * len(bs)

	for iter := 0; iter < limit; iter++ {
		sort.SliceStable(bs, func(i, j int) bool {
			return bs[i].cents < bs[j].cents
		})
		debtor, creditor := &bs[0], &bs[len(bs)-1]

		if creditor.cents <= Epsilon && -debtor.cents <= Epsilon {
			return transfers
		}

		amount := min(-debtor.cents, creditor.cents)
		if amount <= 0 {
			return transfers
		}

		transfers = append(transfers, Transfer{From: debtor.name, To: creditor.name, Amount: amount})
		debtor.cents += amount
		creditor.cents -= amount
	}

	metrics.SettlementCapHits.Inc()
	slog.Error("settlement stopped at iteration cap",
		"members", len(bs),
		"cap", limit,
		"transfers", len(transfers),
	)
	return transfers
}
