package settlement

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	"github.com/shaghafhq/shaghaf/internal/session/domain"
)

var startedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testSession(headcount int) *domain.Session {
	s := &domain.Session{
		ID:                  snowflake.ID(1),
		Status:              domain.SessionStatusActive,
		FirstHourRate:       4000,
		AdditionalHourRate:  3000,
		MaxAdditionalCharge: 10000,
		StartedAt:           startedAt,
	}
	for i := 0; i < headcount; i++ {
		s.Individuals = append(s.Individuals, domain.Individual{
			ID:        snowflake.ID(int64(100 + i)),
			SessionID: s.ID,
			Name:      "guest",
			IsPrimary: i == 0,
			JoinedAt:  startedAt,
		})
	}
	return s
}

func TestSettleFullTimeOnly(t *testing.T) {
	s := testSession(2)
	res := SettleFull(s, startedAt.Add(time.Hour))

	assert.Equal(t, int64(8000), res.TimeCost)
	assert.Equal(t, int64(8000), res.Total)
	require.Len(t, res.Lines, 1)

	line := res.Lines[0]
	assert.Equal(t, invoicedomain.LineKindTime, line.Kind)
	assert.Equal(t, int64(2), line.Quantity)
	assert.Equal(t, int64(4000), line.UnitPrice)
	assert.Equal(t, int64(8000), line.TotalPrice)
}

func TestSettleFullWithProducts(t *testing.T) {
	s := testSession(3)
	s.Items = []domain.SessionItem{
		{ID: 201, SessionID: s.ID, Name: "Latte", Quantity: 2, UnitPrice: 1500, TotalPrice: 3000},
		{ID: 202, SessionID: s.ID, Name: "Water", Quantity: 3, UnitPrice: 500, TotalPrice: 1500},
	}

	// 2h30m: one additional block per head, capped at the policy maximum.
	res := SettleFull(s, startedAt.Add(150*time.Minute))

	assert.Equal(t, int64(22000), res.TimeCost)
	assert.Equal(t, int64(26500), res.Total)
	require.Len(t, res.Lines, 3)

	assert.Equal(t, invoicedomain.LineKindProduct, res.Lines[1].Kind)
	assert.Equal(t, "Latte", res.Lines[1].Description)
	assert.Equal(t, int64(3000), res.Lines[1].TotalPrice)
	assert.Equal(t, int64(1500), res.Lines[2].TotalPrice)
}

func TestSettleFullUsesEndedAt(t *testing.T) {
	s := testSession(1)
	ended := startedAt.Add(30 * time.Minute)
	s.EndedAt = &ended
	s.Status = domain.SessionStatusCompleted

	// Clock past the recorded end must not change the settled amount.
	res := SettleFull(s, startedAt.Add(5*time.Hour))
	assert.Equal(t, int64(4000), res.Total)
}

func TestSettlePartialRecomputesForExitingGroup(t *testing.T) {
	s := testSession(4)
	exiting := s.Individuals[:2]

	// 90 minutes in: each exit is billed a full first hour plus one block.
	res := SettlePartial(s, exiting, nil, startedAt.Add(90*time.Minute))

	assert.Equal(t, int64(14000), res.TimeCost)
	assert.Equal(t, int64(14000), res.Total)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, int64(2), res.Lines[0].Quantity)
	assert.Equal(t, int64(7000), res.Lines[0].UnitPrice)
	assert.Empty(t, res.Takes)
}

func TestSettlePartialTakesItems(t *testing.T) {
	s := testSession(3)
	s.Items = []domain.SessionItem{
		{ID: 201, SessionID: s.ID, Name: "Latte", Quantity: 3, UnitPrice: 1500, TotalPrice: 4500},
		{ID: 202, SessionID: s.ID, Name: "Water", Quantity: 2, UnitPrice: 500, TotalPrice: 1000},
	}
	takes := map[snowflake.ID]int64{
		201: 2,
		202: 0,
	}

	res := SettlePartial(s, s.Individuals[:1], takes, startedAt.Add(time.Hour))

	assert.Equal(t, int64(4000), res.TimeCost)
	assert.Equal(t, int64(7000), res.Total)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, int64(2), res.Lines[1].Quantity)
	assert.Equal(t, int64(3000), res.Lines[1].TotalPrice)

	require.Len(t, res.Takes, 1)
	assert.Equal(t, snowflake.ID(201), res.Takes[0].ItemID)
	assert.Equal(t, int64(2), res.Takes[0].Quantity)
	assert.Equal(t, int64(1), res.Takes[0].Remaining)
}

func TestSettlePartialClampsRequestedQuantity(t *testing.T) {
	s := testSession(2)
	s.Items = []domain.SessionItem{
		{ID: 201, SessionID: s.ID, Name: "Latte", Quantity: 1, UnitPrice: 1500, TotalPrice: 1500},
	}

	res := SettlePartial(s, s.Individuals[:1], map[snowflake.ID]int64{201: 10}, startedAt.Add(time.Hour))

	require.Len(t, res.Takes, 1)
	assert.Equal(t, int64(1), res.Takes[0].Quantity)
	assert.Equal(t, int64(0), res.Takes[0].Remaining)
	assert.Equal(t, int64(4000+1500), res.Total)
}

func TestSettlePartialSumExceedsFullSettlement(t *testing.T) {
	s := testSession(2)
	at := startedAt.Add(time.Hour)

	first := SettlePartial(s, s.Individuals[:1], nil, at)
	full := SettleFull(s, at)

	// Two separate first-hour fees cost no less than one grouped charge.
	assert.GreaterOrEqual(t, first.Total*2, full.Total)
}
