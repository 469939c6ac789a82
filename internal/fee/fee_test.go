package fee

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	return NewPolicy(map[types.ServiceType]decimal.Decimal{
		types.WashAndFold: decimal.RequireFromString("10.00"),
		types.DryCleaning: decimal.RequireFromString("18.00"),
	}, decimal.RequireFromString("2.00"))
}

func TestCeilHours(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"zero", 0, 0},
		{"negative", -2 * time.Hour, 0},
		{"one minute", time.Minute, 1},
		{"59 minutes", 59 * time.Minute, 1},
		{"exactly one hour", 60 * time.Minute, 1},
		{"61 minutes", 61 * time.Minute, 2},
		{"75 minutes", 75 * time.Minute, 2},
		{"exactly two hours", 2 * time.Hour, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CeilHours(tc.elapsed))
		})
	}
}

func TestCeilHoursMonotonic(t *testing.T) {
	prev := int64(0)
	for m := 0; m <= 300; m += 7 {
		got := CeilHours(time.Duration(m) * time.Minute)
		assert.GreaterOrEqual(t, got, prev, "CeilHours must be non-decreasing at %d minutes", m)
		prev = got
	}
}

func TestServiceFee(t *testing.T) {
	p := testPolicy(t)

	t.Run("known kinds", func(t *testing.T) {
		washFee, err := p.ServiceFee(types.WashAndFold)
		require.NoError(t, err)
		assert.True(t, washFee.Equal(decimal.RequireFromString("10.00")))

		dryFee, err := p.ServiceFee(types.DryCleaning)
		require.NoError(t, err)
		assert.True(t, dryFee.Equal(decimal.RequireFromString("18.00")))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := p.ServiceFee(types.ServiceType("IRONING"))
		assert.Error(t, err)
	})
}

func TestTotal(t *testing.T) {
	p := testPolicy(t)

	t.Run("75 minutes wash-and-fold bills two started hours", func(t *testing.T) {
		total, err := p.Total(types.WashAndFold, 75*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "14.00", total.StringFixed(2))
	})

	t.Run("zero elapsed bills base fee only", func(t *testing.T) {
		total, err := p.Total(types.DryCleaning, 0)
		require.NoError(t, err)
		assert.Equal(t, "18.00", total.StringFixed(2))
	})
}
