package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testPolicy = Policy{
	FirstHourRate:       4000,
	AdditionalHourRate:  3000,
	MaxAdditionalCharge: 10000,
}

func TestComputeTimeCost(t *testing.T) {
	tests := []struct {
		name      string
		headcount int
		elapsed   int64
		want      int64
	}{
		{"zero headcount", 0, 3600, 0},
		{"negative headcount", -2, 3600, 0},
		{"negative elapsed clamps to zero", 1, -30, 4000},
		{"five minutes charges full first hour", 1, 300, 4000},
		{"exactly one hour", 1, 3600, 4000},
		{"one second past the hour starts a block", 1, 3601, 7000},
		{"ninety minutes", 1, 5400, 7000},
		{"two hours", 1, 7200, 7000},
		{"two hours one second", 1, 7201, 10000},
		{"two people one hour", 2, 3600, 8000},
		{"three people two and a half hours hits cap", 3, 9000, 22000},
		{"cap bounds long stays", 2, 100 * 3600, 18000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeTimeCost(tc.headcount, tc.elapsed, testPolicy))
		})
	}
}

func TestComputeTimeCostMonotonic(t *testing.T) {
	var prev int64
	for elapsed := int64(0); elapsed <= 6*3600; elapsed += 137 {
		cost := ComputeTimeCost(2, elapsed, testPolicy)
		assert.GreaterOrEqual(t, cost, prev, "cost decreased at %ds", elapsed)
		prev = cost
	}
}

func TestComputeTimeCostZeroRates(t *testing.T) {
	free := Policy{}
	assert.Equal(t, int64(0), ComputeTimeCost(3, 10*3600, free))
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, testPolicy.Validate())
	assert.NoError(t, Policy{}.Validate())

	assert.ErrorIs(t, Policy{FirstHourRate: -1}.Validate(), ErrInvalidPolicy)
	assert.ErrorIs(t, Policy{AdditionalHourRate: -1}.Validate(), ErrInvalidPolicy)
	assert.ErrorIs(t, Policy{MaxAdditionalCharge: -1}.Validate(), ErrInvalidPolicy)
}

func TestStaticHolder(t *testing.T) {
	h := NewStaticHolder(testPolicy)
	assert.Equal(t, testPolicy, h.Get())
}

func TestHolderDefaultsWithoutConfig(t *testing.T) {
	h, err := NewHolder("")
	assert.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), h.Get())
}
