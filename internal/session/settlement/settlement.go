// Package settlement turns a live session ledger into invoice lines. It is
// pure computation over loaded models; persistence stays with the caller.
package settlement

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	"github.com/shaghafhq/shaghaf/internal/pricing"
	"github.com/shaghafhq/shaghaf/internal/session/domain"
)

// Result is one settlement: the lines to invoice and their sum.
type Result struct {
	TimeCost int64
	Total    int64
	Lines    []invoicedomain.FinalizeItem
}

// ItemTake records how much of a product line leaves with an exiting group.
type ItemTake struct {
	ItemID    snowflake.ID
	Quantity  int64
	Remaining int64
}

// PartialResult extends Result with the per-item quantities the caller must
// apply back to the ledger after invoicing.
type PartialResult struct {
	Result
	Takes []ItemTake
}

// PolicyOf rebuilds the pricing policy from the session's snapshot columns.
func PolicyOf(s *domain.Session) pricing.Policy {
	return pricing.Policy{
		FirstHourRate:       s.FirstHourRate,
		AdditionalHourRate:  s.AdditionalHourRate,
		MaxAdditionalCharge: s.MaxAdditionalCharge,
	}
}

// TimeCost is the running time charge for the whole group at the given
// instant, under the session's snapshot policy.
func TimeCost(s *domain.Session, now time.Time) int64 {
	return pricing.ComputeTimeCost(s.Headcount(), s.ElapsedSeconds(now), PolicyOf(s))
}

// SettleFull settles the complete ledger: one time line for the whole group
// plus every product line copied as-is.
func SettleFull(s *domain.Session, now time.Time) Result {
	timeCost := TimeCost(s, now)
	res := Result{TimeCost: timeCost}
	res.Lines = append(res.Lines, timeLine(s.Headcount(), s.ElapsedSeconds(now), timeCost))
	res.Total = timeCost
	for _, item := range s.Items {
		res.Lines = append(res.Lines, invoicedomain.FinalizeItem{
			Kind:         invoicedomain.LineKindProduct,
			Description:  item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
			AttributedTo: item.AttributedTo,
		})
		res.Total += item.TotalPrice
	}
	return res
}

// SettlePartial settles an exiting subgroup. The time charge is computed
// fresh for the exiting headcount over the full elapsed time, so the first
// hour fee applies to each exit independently of earlier ones. Requested
// item quantities are clamped to what the ledger still holds.
func SettlePartial(s *domain.Session, exiting []domain.Individual, itemQuantities map[snowflake.ID]int64, now time.Time) PartialResult {
	elapsed := s.ElapsedSeconds(now)
	timeCost := pricing.ComputeTimeCost(len(exiting), elapsed, PolicyOf(s))
	res := PartialResult{Result: Result{TimeCost: timeCost, Total: timeCost}}
	res.Lines = append(res.Lines, timeLine(len(exiting), elapsed, timeCost))

	for i := range s.Items {
		item := &s.Items[i]
		qty := itemQuantities[item.ID]
		if qty <= 0 {
			continue
		}
		if qty > item.Quantity {
			qty = item.Quantity
		}
		total := qty * item.UnitPrice
		res.Lines = append(res.Lines, invoicedomain.FinalizeItem{
			Kind:         invoicedomain.LineKindProduct,
			Description:  item.Name,
			Quantity:     qty,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   total,
			AttributedTo: item.AttributedTo,
		})
		res.Total += total
		res.Takes = append(res.Takes, ItemTake{
			ItemID:    item.ID,
			Quantity:  qty,
			Remaining: item.Quantity - qty,
		})
	}
	return res
}

func timeLine(headcount int, elapsedSeconds, timeCost int64) invoicedomain.FinalizeItem {
	var unit int64
	if headcount > 0 {
		unit = timeCost / int64(headcount)
	}
	return invoicedomain.FinalizeItem{
		Kind:        invoicedomain.LineKindTime,
		Description: fmt.Sprintf("Time charge (%d persons, %d min)", headcount, elapsedSeconds/60),
		Quantity:    int64(headcount),
		UnitPrice:   unit,
		TotalPrice:  timeCost,
	}
}
