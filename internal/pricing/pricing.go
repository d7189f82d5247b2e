// Package pricing implements the tiered time-cost model for shared-space
// sessions. All amounts are integer minor currency units.
package pricing

import "errors"

const secondsPerHour = 3600

// Policy is the rate configuration applied to a session. It is snapshotted
// onto the session at start, so a reload never changes an open session.
type Policy struct {
	// FirstHourRate is a flat entry fee per individual, charged in full
	// even when the elapsed time is under an hour.
	FirstHourRate int64 `mapstructure:"firstHourRate" json:"first_hour_rate"`
	// AdditionalHourRate is charged per individual per started hour block
	// beyond the first.
	AdditionalHourRate int64 `mapstructure:"additionalHourRate" json:"additional_hour_rate"`
	// MaxAdditionalCharge caps the total additional-hour component of one
	// settlement, across all individuals being settled.
	MaxAdditionalCharge int64 `mapstructure:"maxAdditionalCharge" json:"max_additional_charge"`
}

var ErrInvalidPolicy = errors.New("invalid_policy")

// Validate rejects negative rates.
func (p Policy) Validate() error {
	if p.FirstHourRate < 0 || p.AdditionalHourRate < 0 || p.MaxAdditionalCharge < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// ComputeTimeCost returns the time charge for headcount individuals present
// for elapsedSeconds. Partial additional hours round up to a full block.
func ComputeTimeCost(headcount int, elapsedSeconds int64, p Policy) int64 {
	if headcount <= 0 {
		return 0
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	base := int64(headcount) * p.FirstHourRate
	if elapsedSeconds <= secondsPerHour {
		return base
	}

	blocks := (elapsedSeconds - secondsPerHour + secondsPerHour - 1) / secondsPerHour
	additional := int64(headcount) * blocks * p.AdditionalHourRate
	if additional > p.MaxAdditionalCharge {
		additional = p.MaxAdditionalCharge
	}
	return base + additional
}
