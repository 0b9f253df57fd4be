package settle

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/budgetwise/internal/metrics"
	"github.com/mmynk/budgetwise/internal/money"
)

func TestSettleBalances_Trivial(t *testing.T) {
	got, err := SettleBalances(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = SettleBalances([]Member{{Name: "A", Total: 100}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettleBalances_TwoMembers(t *testing.T) {
	got, err := SettleBalances([]Member{{Name: "A", Total: 100}, {Name: "B", Total: 0}})
	require.NoError(t, err)
	assert.Equal(t, []Settlement{{From: "B", To: "A", Amount: 50}}, got)
}

func TestSettleBalances_AlreadySettled(t *testing.T) {
	got, err := SettleBalances([]Member{{Name: "A", Total: 50}, {Name: "B", Total: 50}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettleBalances_OneDebtorTwoCreditors(t *testing.T) {
	members := []Member{{Name: "A", Total: 0}, {Name: "B", Total: 30}, {Name: "C", Total: 30}}
	got, err := SettleBalances(members)
	require.NoError(t, err)
	require.Len(t, got, 2)

	var paid float64
	receivers := map[string]float64{}
	for _, s := range got {
		assert.Equal(t, "A", s.From)
		paid += s.Amount
		receivers[s.To] += s.Amount
	}
	assert.InDelta(t, 20.0, paid, 1e-9)
	assert.InDelta(t, 10.0, receivers["B"], 1e-9)
	assert.InDelta(t, 10.0, receivers["C"], 1e-9)
}

func TestSettleBalances_UnevenAverage(t *testing.T) {
	// Average is 3.333...; balances round to 6.67, -3.33, -3.33 and the
	// leftover cent stays with A.
	members := []Member{{Name: "A", Total: 10}, {Name: "B", Total: 0}, {Name: "C", Total: 0}}
	got, err := SettleBalances(members)
	require.NoError(t, err)
	assert.Equal(t, []Settlement{
		{From: "B", To: "A", Amount: 3.33},
		{From: "C", To: "A", Amount: 3.33},
	}, got)
	assertResettles(t, members, got, 0.01)
}

func TestSettleBalances_WithinEpsilon(t *testing.T) {
	tests := []struct {
		name    string
		members []Member
	}{
		{"one cent apart", []Member{{Name: "A", Total: 0.01}, {Name: "B", Total: 0}}},
		{"one cent apart on large totals", []Member{{Name: "A", Total: 100.01}, {Name: "B", Total: 100}}},
		{"two cents over three", []Member{{Name: "A", Total: 0.02}, {Name: "B", Total: 0}, {Name: "C", Total: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SettleBalances(tt.members)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSettleBalances_JustAboveEpsilon(t *testing.T) {
	// Average 0.015 rounds the balances to +0.02 and -0.02.
	got, err := SettleBalances([]Member{{Name: "A", Total: 0.03}, {Name: "B", Total: 0}})
	require.NoError(t, err)
	assert.Equal(t, []Settlement{{From: "B", To: "A", Amount: 0.02}}, got)
}

func TestSettleBalances_DoesNotMutateInput(t *testing.T) {
	members := []Member{{Name: "A", Total: 12.5}, {Name: "B", Total: 7.25}, {Name: "C", Total: 0}}
	snapshot := append([]Member(nil), members...)

	_, err := SettleBalances(members)
	require.NoError(t, err)
	assert.Equal(t, snapshot, members)
}

func TestSettleBalances_RejectsNonFinite(t *testing.T) {
	for _, total := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := SettleBalances([]Member{{Name: "A", Total: 1}, {Name: "B", Total: total}})
		assert.ErrorIs(t, err, ErrInvalidTotal)
	}
}

func TestSettleBalances_RejectsOutOfRange(t *testing.T) {
	for _, members := range [][]Member{
		{{Name: "A", Total: 1e20}, {Name: "B", Total: 0}},
		{{Name: "A", Total: 5e16}, {Name: "B", Total: 0}, {Name: "C", Total: 0}},
		{{Name: "A", Total: 0}, {Name: "B", Total: -1e14}},
	} {
		_, err := SettleBalances(members)
		assert.ErrorIs(t, err, ErrInvalidTotal, "members %v", members)
	}
}

func TestSettleCents_RejectsOutOfRange(t *testing.T) {
	_, err := SettleCents([]Contribution{{Name: "A", Total: money.MaxAbs + 1}, {Name: "B"}})
	assert.ErrorIs(t, err, ErrInvalidTotal)

	_, err = Balances([]Contribution{{Name: "A", Total: -money.MaxAbs - 1}, {Name: "B"}})
	assert.ErrorIs(t, err, ErrInvalidTotal)
}

func TestSettleCents_LargestTotals(t *testing.T) {
	got, err := SettleCents([]Contribution{
		{Name: "A", Total: money.MaxAbs},
		{Name: "B", Total: -money.MaxAbs},
		{Name: "C", Total: money.MaxAbs},
		{Name: "D", Total: -money.MaxAbs},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	var sum money.Cents
	for _, tr := range got {
		assert.Equal(t, money.MaxAbs, tr.Amount)
		sum += tr.Amount
	}
	assert.Equal(t, 2*money.MaxAbs, sum)
}

func TestSettleBalances_RejectsDuplicateNames(t *testing.T) {
	_, err := SettleBalances([]Member{{Name: "A", Total: 1}, {Name: "A", Total: 2}})
	assert.ErrorIs(t, err, ErrDuplicateMember)
}

func TestSettleBalances_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	capHits := testutil.ToFloat64(metrics.SettlementCapHits)

	for run := 0; run < 500; run++ {
		n := 1 + rng.IntN(100)
		members := make([]Member, n)
		for i := range members {
			// Realistic range: -5,000.00 .. 5,000.00 in whole cents.
			cents := rng.Int64N(1_000_001) - 500_000
			members[i] = Member{Name: memberName(i), Total: money.Cents(cents).Float64()}
		}

		got, err := SettleBalances(members)
		require.NoError(t, err)

		if n < 2 {
			assert.Empty(t, got)
			continue
		}
		assert.LessOrEqual(t, len(got), n-1, "run %d: too many transfers", run)

		avg := mean(members)
		paid := map[string]float64{}
		received := map[string]float64{}
		for _, s := range got {
			assert.Greater(t, s.Amount, 0.0)
			assert.Equal(t, s.Amount, math.Round(s.Amount*100)/100, "amount not in cents: %v", s.Amount)
			paid[s.From] += s.Amount
			received[s.To] += s.Amount
		}
		for _, m := range members {
			// Balances are rounded to the nearest cent, so nobody moves more
			// than half a cent past their exact share.
			owed := math.Abs(m.Total - avg)
			assert.LessOrEqual(t, paid[m.Name], owed+0.005+1e-6, "run %d: %s overpaid", run, m.Name)
			assert.LessOrEqual(t, received[m.Name], owed+0.005+1e-6, "run %d: %s overreceived", run, m.Name)
			if paid[m.Name] > 0 {
				assert.Zero(t, received[m.Name], "run %d: %s both paid and received", run, m.Name)
			}
		}
		// The rounding residue of every balance can end up with one member.
		assertResettles(t, members, got, 0.005+math.Max(0.01, 0.005*float64(n)))
	}

	assert.Equal(t, capHits, testutil.ToFloat64(metrics.SettlementCapHits), "iteration cap should never trigger")
}

func TestSettleCents_Deterministic(t *testing.T) {
	contribs := []Contribution{
		{Name: "A", Total: 4000},
		{Name: "B", Total: 1000},
		{Name: "C", Total: 1000},
		{Name: "D", Total: 0},
	}
	first, err := SettleCents(contribs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := SettleCents(contribs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	var sum money.Cents
	for _, tr := range first {
		assert.Equal(t, "A", tr.To)
		sum += tr.Amount
	}
	assert.Equal(t, money.Cents(2500), sum)
}

func TestBalances_RoundEachMember(t *testing.T) {
	tests := []struct {
		name   string
		totals []money.Cents
		want   []money.Cents
	}{
		{"half cents round away from zero", []money.Cents{1, 0}, []money.Cents{1, -1}},
		{"thirds", []money.Cents{1000, 0, 0}, []money.Cents{667, -333, -333}},
		{"already even", []money.Cents{500, 500}, []money.Cents{0, 0}},
		{"negative totals", []money.Cents{-300, 0, 0, 0}, []money.Cents{-225, 75, 75, 75}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contribs := make([]Contribution, len(tt.totals))
			for i, total := range tt.totals {
				contribs[i] = Contribution{Name: memberName(i), Total: total}
			}
			got, err := Balances(contribs)
			require.NoError(t, err)
			for i, b := range got {
				assert.Equal(t, tt.want[i], b.Total, b.Name)
			}
		})
	}
}

// assertResettles applies the settlements to the totals and checks that every
// member ends up within tolerance of the group average.
func assertResettles(t *testing.T, members []Member, settlements []Settlement, tolerance float64) {
	t.Helper()

	totals := make(map[string]float64, len(members))
	for _, m := range members {
		totals[m.Name] = m.Total
	}
	for _, s := range settlements {
		totals[s.From] += s.Amount
		totals[s.To] -= s.Amount
	}

	avg := mean(members)
	for name, total := range totals {
		assert.InDelta(t, avg, total, tolerance+1e-6, "member %s not settled", name)
	}
}

func mean(members []Member) float64 {
	var sum float64
	for _, m := range members {
		sum += m.Total
	}
	return sum / float64(len(members))
}

func memberName(i int) string {
	return "member-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
}

func TestBalances(t *testing.T) {
	got, err := Balances([]Contribution{
		{Name: "Alice", Total: 100},
		{Name: "Bob", Total: 0},
		{Name: "Carol", Total: 0},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []Contribution{
		{Name: "Alice", Total: 67},
		{Name: "Bob", Total: -33},
		{Name: "Carol", Total: -33},
	}, got)

	empty, err := Balances(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Balances([]Contribution{{Name: "A"}, {Name: "A"}})
	assert.ErrorIs(t, err, ErrDuplicateMember)
}

func TestAverage(t *testing.T) {
	assert.Equal(t, money.Cents(0), Average(nil))
	assert.Equal(t, money.Cents(33), Average([]Contribution{{Name: "a", Total: 100}, {Name: "b"}, {Name: "c"}}))
	assert.Equal(t, money.Cents(67), Average([]Contribution{{Name: "a", Total: 200}, {Name: "b"}, {Name: "c"}}))
	assert.Equal(t, money.Cents(-5000), Average([]Contribution{{Name: "a", Total: -10000}, {Name: "b"}}))
}
