/*
Package audit mirrors the Savings contract ledger off-chain.

Auditor consumes execution results of the chain transactions, decodes
DepositRecorded and WithdrawRecorded notifications of the contract and
applies them to a Store. Every applied movement is published as a Record.
Mirrored balances are verified against the contract with Reconcile.
*/
package audit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/savings-contract/contracts/savings/savingsconst"
	"github.com/nspcc-dev/savings-contract/rpc/savings"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Kind is a kind of the ledger movement.
type Kind string

// Supported kinds of the ledger movements.
const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
)

// Record is a ledger movement observed on the chain.
type Record struct {
	ID   uuid.UUID `json:"id"`
	Kind Kind      `json:"kind"`
	// Neo address of the account.
	Account string `json:"account"`
	// Amount in tokens, scaled by the token decimals.
	Amount decimal.Decimal `json:"amount"`
	// Transaction and index of the notification in its execution. The pair
	// identifies the movement.
	Tx    util.Uint256 `json:"tx"`
	Index int          `json:"index"`

	ObservedAt time.Time `json:"observed_at"`
}

// Delta returns signed change of the account balance made by r.
func (r Record) Delta() decimal.Decimal {
	if r.Kind == KindWithdraw {
		return r.Amount.Neg()
	}
	return r.Amount
}

// Store is a mirror of the contract ledger.
type Store interface {
	// Apply saves r and adds its delta to the account balance atomically.
	// Apply returns false if a record with the same Tx and Index has already
	// been applied, store is not changed in this case.
	Apply(ctx context.Context, r Record) (bool, error)

	// Balance returns mirrored balance of the account. Zero is returned for
	// unknown accounts.
	Balance(ctx context.Context, account string) (decimal.Decimal, error)

	// Accounts returns all accounts with applied records.
	Accounts(ctx context.Context) ([]string, error)
}

// Publisher delivers applied records to external consumers.
type Publisher interface {
	Publish(ctx context.Context, r Record) error
}

// BalanceReader provides on-chain balances, it is implemented by
// [savings.ContractReader].
type BalanceReader interface {
	CheckUserBalance(account util.Uint160) (*big.Int, error)
}

// Mismatch describes account whose mirrored balance differs from the contract
// one.
type Mismatch struct {
	Account  string
	Mirrored decimal.Decimal
	OnChain  decimal.Decimal
}

// Prm groups parameters of the Auditor.
type Prm struct {
	Logger *zap.Logger

	// Address of the Savings contract.
	Contract util.Uint160
	// Decimals of the saving token.
	Decimals int

	Store Store
	// Optional.
	Publisher Publisher
}

// Auditor applies contract notifications to the Store.
type Auditor struct {
	log      *zap.Logger
	contract util.Uint160
	exp      int32
	store    Store
	pub      Publisher
	now      func() time.Time
}

// New constructs Auditor from the given parameters.
func New(prm Prm) *Auditor {
	return &Auditor{
		log:      prm.Logger,
		contract: prm.Contract,
		exp:      -int32(prm.Decimals),
		store:    prm.Store,
		pub:      prm.Publisher,
		now:      time.Now,
	}
}

// HandleApplicationLog handles all executions of the application log.
func (a *Auditor) HandleApplicationLog(ctx context.Context, log *result.ApplicationLog) error {
	if log == nil {
		return errors.New("nil application log")
	}

	for i := range log.Executions {
		if log.Executions[i].Trigger != trigger.Application {
			continue
		}

		err := a.HandleExecution(ctx, &state.AppExecResult{
			Container: log.Container,
			Execution: log.Executions[i],
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// HandleExecution applies notifications of the contract thrown in the
// execution. Faulted executions are skipped: they did not change the ledger.
func (a *Auditor) HandleExecution(ctx context.Context, res *state.AppExecResult) error {
	if res.VMState != vmstate.Halt {
		return nil
	}

	for i := range res.Events {
		ev := &res.Events[i]
		if !ev.ScriptHash.Equals(a.contract) {
			continue
		}

		r, ok, err := a.decode(ev)
		if err != nil {
			return fmt.Errorf("decode notification #%d of tx %s: %w", i, res.Container.StringLE(), err)
		} else if !ok {
			continue
		}

		r.Tx = res.Container
		r.Index = i

		err = a.apply(ctx, r)
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *Auditor) decode(ev *state.NotificationEvent) (Record, bool, error) {
	var (
		r      Record
		acc    util.Uint160
		amount *big.Int
	)

	switch ev.Name {
	case savingsconst.DepositRecordedEvent:
		var e savings.DepositRecordedEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return r, false, err
		}
		r.Kind, acc, amount = KindDeposit, e.Account, e.Amount
	case savingsconst.WithdrawRecordedEvent:
		var e savings.WithdrawRecordedEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return r, false, err
		}
		r.Kind, acc, amount = KindWithdraw, e.Account, e.Amount
	default:
		return r, false, nil
	}

	r.ID = uuid.New()
	r.Account = address.Uint160ToString(acc)
	r.Amount = decimal.NewFromBigInt(amount, a.exp)
	r.ObservedAt = a.now().UTC()

	return r, true, nil
}

func (a *Auditor) apply(ctx context.Context, r Record) error {
	l := a.log.With(
		zap.String("kind", string(r.Kind)),
		zap.String("account", r.Account),
		zap.Stringer("amount", r.Amount),
		zap.String("tx", r.Tx.StringLE()),
		zap.Int("index", r.Index),
	)

	applied, err := a.store.Apply(ctx, r)
	if err != nil {
		return fmt.Errorf("apply %s of %s to the store: %w", r.Kind, r.Account, err)
	}

	if !applied {
		l.Debug("movement has already been applied, skip")
		return nil
	}

	l.Info("movement applied")

	if a.pub == nil {
		return nil
	}

	err = a.pub.Publish(ctx, r)
	if err != nil {
		// the mirror is already updated, replay will not publish it again
		l.Error("failed to publish record", zap.Error(err))
	}

	return nil
}

// Reconcile compares mirrored balances of the accounts with the contract
// ones. All mirrored accounts are checked if accounts is empty.
//
// The contract is read at the current chain head while the mirror follows
// delivered notifications, so an account touched by a block whose
// notifications are not handled yet is reported too. Such mismatches are
// transient: callers should report only those repeated by the next call
// with the same values, see [Persistent].
func (a *Auditor) Reconcile(ctx context.Context, r BalanceReader, accounts []string) ([]Mismatch, error) {
	var err error

	if len(accounts) == 0 {
		accounts, err = a.store.Accounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list mirrored accounts: %w", err)
		}
	}

	var res []Mismatch

	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		h, err := address.StringToUint160(acc)
		if err != nil {
			return nil, fmt.Errorf("invalid account %q: %w", acc, err)
		}

		units, err := r.CheckUserBalance(h)
		if err != nil {
			return nil, fmt.Errorf("get balance of %s from the contract: %w", acc, savings.Classify(err))
		}

		mirrored, err := a.store.Balance(ctx, acc)
		if err != nil {
			return nil, fmt.Errorf("get mirrored balance of %s: %w", acc, err)
		}

		onChain := decimal.NewFromBigInt(units, a.exp)
		if !mirrored.Equal(onChain) {
			a.log.Debug("balance mismatch",
				zap.String("account", acc), zap.Stringer("mirrored", mirrored), zap.Stringer("on-chain", onChain))

			res = append(res, Mismatch{Account: acc, Mirrored: mirrored, OnChain: onChain})
		}
	}

	return res, nil
}

// Persistent returns mismatches from cur which are present in prev with the
// same mirrored and on-chain balances. Mismatch that changed in between is
// considered to be caused by notifications in flight.
func Persistent(prev, cur []Mismatch) []Mismatch {
	if len(prev) == 0 || len(cur) == 0 {
		return nil
	}

	seen := make(map[string]Mismatch, len(prev))
	for _, m := range prev {
		seen[m.Account] = m
	}

	var res []Mismatch

	for _, m := range cur {
		p, ok := seen[m.Account]
		if ok && p.Mirrored.Equal(m.Mirrored) && p.OnChain.Equal(m.OnChain) {
			res = append(res, m)
		}
	}

	return res
}
