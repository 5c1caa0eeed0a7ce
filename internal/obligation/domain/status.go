package domain

import "time"

// ResolveStatus derives the current status from stored facts. It is total:
// every combination of facts maps to exactly one state. Inconsistent facts
// (e.g. a settlement date in the future) still resolve; settlement presence
// always wins over due-date derivation.
//
// Precedence, first match wins:
//  1. explicit cancellation (terminal, suppresses all derivation)
//  2. settlement date set → PAID (terminal)
//  3. invoice required, none attached → AWAITING_INVOICE
//  4. invoice required and attached → READY_TO_PAY
//  5. due date strictly before today (day granularity) → OVERDUE
//  6. otherwise → PENDING
func ResolveStatus(o Obligation, today time.Time) Status {
	if o.CanceledAt != nil {
		return StatusCanceled
	}
	if o.SettledAt != nil {
		return StatusPaid
	}
	if o.RequiresInvoice {
		if !o.HasInvoiceAttached() {
			return StatusAwaitingInvoice
		}
		return StatusReadyToPay
	}
	if StartOfDay(o.DueDate).Before(StartOfDay(today)) {
		return StatusOverdue
	}
	return StatusPending
}

// IsOpen reports whether the obligation can still change status and is
// therefore in scope for the daily status-refresh sweep.
func (o Obligation) IsOpen() bool {
	return o.CanceledAt == nil && o.SettledAt == nil
}
