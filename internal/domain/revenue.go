package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenuePeriod selects the date window of a revenue query.
type RevenuePeriod string

const (
	PeriodDay    RevenuePeriod = "day"
	PeriodMonth  RevenuePeriod = "month"
	PeriodYear   RevenuePeriod = "year"
	PeriodYTD    RevenuePeriod = "ytd"
	PeriodAll    RevenuePeriod = "all"
	PeriodCustom RevenuePeriod = "custom"
)

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RevenueQuery describes a revenue request. Date anchors day/month/year
// periods; From and To are used by custom ranges.
type RevenueQuery struct {
	Period RevenuePeriod
	Date   time.Time
	From   time.Time
	To     time.Time
}

// RevenueReport is the sum of payment records within a range.
type RevenueReport struct {
	Period RevenuePeriod                      `json:"period"`
	From   time.Time                          `json:"from"`
	To     time.Time                          `json:"to"`
	Total  decimal.Decimal                    `json:"total"`
	ByKind map[ObligationKind]decimal.Decimal `json:"by_kind"`
}
