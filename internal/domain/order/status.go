package order

// Status is an order's position in the fulfillment state machine.
//
// The linear progression is pending -> confirmed -> processing -> shipped ->
// delivered. cancelled is reachable from any state before shipped; refunded
// from delivered or cancelled. delivered, cancelled and refunded are
// terminal apart from the delivered -> refunded branch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// fulfillmentNext maps each status to its single legal fulfillment successor.
var fulfillmentNext = map[Status]Status{
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// NextFulfillment returns the only status AdvanceFulfillment may move to
// from s, and whether such a successor exists.
func (s Status) NextFulfillment() (Status, bool) {
	next, ok := fulfillmentNext[s]
	return next, ok
}

// Cancellable reports whether an order in this status may still be
// cancelled. Cancellation is disallowed once the order has shipped.
func (s Status) Cancellable() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	}
	return false
}

// Refundable reports whether an order in this status may be refunded,
// assuming a captured payment exists.
func (s Status) Refundable() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// StockDeducted reports whether stock has been deducted for an order in this
// status. Deduction happens at confirmation, so pending orders hold no stock.
func (s Status) StockDeducted() bool {
	switch s {
	case StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}
