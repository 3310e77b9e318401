package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/profitfirst/internal/common"
)

// ProfitDistribution records a quarterly withdrawal from the PROFIT bucket.
// Only IsCompleted may change after creation.
type ProfitDistribution struct {
	Date               time.Time
	TotalProfit        decimal.Decimal
	DistributionAmount decimal.Decimal
	ToOwners           decimal.Decimal
	ToCompany          decimal.Decimal
	ID                 string
	Quarter            string
	Notes              string
	IsCompleted        bool
}

var half = decimal.NewFromFloat(0.5)

// NewDistribution withdraws half of profitBalance and splits it evenly between
// owners and company.
func NewDistribution(profitBalance decimal.Decimal, at time.Time, notes string) (ProfitDistribution, error) {
	if !profitBalance.IsPositive() {
		return ProfitDistribution{}, fmt.Errorf("%w: balance %s", common.ErrNothingToDistribute, profitBalance.String())
	}

	amount := profitBalance.Mul(half)
	q, year := QuarterOf(at)

	return ProfitDistribution{
		ID:                 uuid.NewString(),
		Date:               at.UTC(),
		Quarter:            QuarterLabel(q, year),
		TotalProfit:        profitBalance,
		DistributionAmount: amount,
		ToOwners:           amount.Mul(half),
		ToCompany:          amount.Mul(half),
		Notes:              notes,
	}, nil
}

// DistributionFromAmount rebuilds a completed distribution from the amount
// recorded on a spreadsheet, which only lists the withdrawn amount.
func DistributionFromAmount(id string, q, year int, amount decimal.Decimal) (ProfitDistribution, error) {
	end, err := QuarterEnd(q, year)
	if err != nil {
		return ProfitDistribution{}, err
	}

	label := QuarterLabel(q, year)
	return ProfitDistribution{
		ID:                 id,
		Date:               end,
		Quarter:            label,
		TotalProfit:        amount.Mul(decimal.NewFromInt(2)),
		DistributionAmount: amount,
		ToOwners:           amount.Mul(half),
		ToCompany:          amount.Mul(half),
		Notes:              label + " Distribution",
		IsCompleted:        true,
	}, nil
}
