// Package payment defines the external payment gateway contract. The
// gateway only moves money; it never participates in pricing.
package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method enumerates the accepted payment instruments.
type Method string

const (
	MethodCreditCard   Method = "credit_card"
	MethodDebitCard    Method = "debit_card"
	MethodPaypal       Method = "paypal"
	MethodStripe       Method = "stripe"
	MethodBankTransfer Method = "bank_transfer"
)

// Valid reports whether m is a known payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodPaypal, MethodStripe, MethodBankTransfer:
		return true
	}
	return false
}

// Result is the gateway's answer to a charge attempt. Authorized with a
// transaction reference on success; a decline reason otherwise.
type Result struct {
	Authorized bool
	Reference  string
	Reason     string
}

// Gateway accepts an amount and reports success or failure with a
// transaction reference. Implementations must honor context cancellation;
// the order engine bounds every charge with a timeout. A captured charge
// whose order fails to confirm is recorded with its reference for an
// out-of-band void; there is no automatic reversal.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, method Method) (Result, error)
}

// Sandbox is a gateway stand-in that authorizes every charge up to an
// optional limit. Charges above DeclineOver are declined, which gives tests
// and local environments a deterministic failure path.
type Sandbox struct {
	DeclineOver *decimal.Decimal
}

func (s Sandbox) Charge(ctx context.Context, amount decimal.Decimal, _ Method) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s.DeclineOver != nil && amount.GreaterThan(*s.DeclineOver) {
		return Result{Authorized: false, Reason: "amount exceeds sandbox limit"}, nil
	}
	return Result{
		Authorized: true,
		Reference:  "sandbox-" + uuid.New().String(),
	}, nil
}
