package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OverWithdrawalError is returned when an exit asks for more shares
// than are on record
type OverWithdrawalError struct {
	Ticker    string
	Direction Direction
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e OverWithdrawalError) Error() string {
	return fmt.Sprintf("cannot exit %s %s shares of %s, only %s held",
		e.Requested.String(), e.Direction, e.Ticker, e.Available.String())
}

// BackfillError aborts a walk. Date is the first day the trade is not
// applied to yet, so the walk can be resumed from there
type BackfillError struct {
	Date   string
	Ticker string
	Err    error
}

func (e BackfillError) Error() string {
	return fmt.Sprintf("backfill of %s failed on %s: %s", e.Ticker, e.Date, e.Err.Error())
}

func (e BackfillError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}
