package savings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/savings-contract/contracts/savings/savingsconst"
)

// Errors reported by the contract in FAULT exceptions.
var (
	ErrInvalidAmount       = errors.New(savingsconst.ErrInvalidAmount)
	ErrInsufficientBalance = errors.New(savingsconst.ErrInsufficientBalance)
	ErrTransferRejected    = errors.New(savingsconst.ErrTransferRejected)
	ErrUnauthorized        = errors.New(savingsconst.ErrUnauthorized)
	ErrInvalidTokenAddress = errors.New(savingsconst.ErrInvalidTokenAddress)
	ErrInvalidAccount      = errors.New(savingsconst.ErrInvalidAccount)
	ErrForeignToken        = errors.New(savingsconst.ErrForeignToken)
)

var contractErrors = []error{
	ErrInvalidAmount,
	ErrInsufficientBalance,
	ErrTransferRejected,
	ErrUnauthorized,
	ErrInvalidTokenAddress,
	ErrInvalidAccount,
	ErrForeignToken,
}

// ParseFault returns contract error described by the FAULT exception of the
// invocation or transaction. Nil is returned for exceptions not thrown by the
// contract.
func ParseFault(exception string) error {
	if exception == "" {
		return nil
	}

	for _, e := range contractErrors {
		if strings.Contains(exception, e.Error()) {
			return e
		}
	}

	return nil
}

// Classify wraps err with the contract error it carries, so callers can use
// errors.Is. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	e := ParseFault(err.Error())
	if e == nil || errors.Is(err, e) {
		return err
	}

	return fmt.Errorf("%w: %w", e, err)
}
