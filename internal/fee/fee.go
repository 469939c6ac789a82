package fee

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

// Policy computes all charges: a fixed base fee per service kind plus a
// locker fee billed per started hour of storage.
type Policy struct {
	serviceFees map[types.ServiceType]decimal.Decimal
	hourlyRate  decimal.Decimal
}

func NewPolicy(serviceFees map[types.ServiceType]decimal.Decimal, hourlyRate decimal.Decimal) *Policy {
	fees := make(map[types.ServiceType]decimal.Decimal, len(serviceFees))
	for k, v := range serviceFees {
		fees[k] = v
	}
	return &Policy{serviceFees: fees, hourlyRate: hourlyRate}
}

func (p *Policy) ServiceFee(kind types.ServiceType) (decimal.Decimal, error) {
	f, ok := p.serviceFees[kind]
	if !ok {
		return decimal.Zero, fmt.Errorf("no fee configured for service type %q", kind)
	}
	return f, nil
}

// CeilHours converts an elapsed duration to billed "started hours": any
// fraction of an hour bills as a whole hour. Zero or negative elapsed time
// bills as zero; a negative duration means clock skew, not an error.
func CeilHours(d time.Duration) int64 {
	minutes := int64(d / time.Minute)
	if minutes <= 0 {
		return 0
	}
	return (minutes + 59) / 60
}

func (p *Policy) LockerFee(elapsed time.Duration) decimal.Decimal {
	return p.hourlyRate.Mul(decimal.NewFromInt(CeilHours(elapsed)))
}

func (p *Policy) Total(kind types.ServiceType, elapsed time.Duration) (decimal.Decimal, error) {
	base, err := p.ServiceFee(kind)
	if err != nil {
		return decimal.Zero, err
	}
	return base.Add(p.LockerFee(elapsed)), nil
}

func (p *Policy) HourlyRate() decimal.Decimal {
	return p.hourlyRate
}
