/*
Package reentrant implements a test contract which saves its own tokens in the
Savings contract and tries to withdraw them twice by re-entering Withdraw from
the payment callback.
*/
package reentrant

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	tokenKey   = 't'
	savingsKey = 's'
	armedKey   = 'a'
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}

	args := data.(struct {
		token   interop.Hash160
		savings interop.Hash160
	})

	ctx := storage.GetContext()
	storage.Put(ctx, tokenKey, args.token)
	storage.Put(ctx, savingsKey, args.savings)
}

// Save approves amount to the Savings contract and deposits it.
func Save(amount int) {
	var (
		ctx     = storage.GetReadOnlyContext()
		self    = runtime.GetExecutingScriptHash()
		savings = storage.Get(ctx, savingsKey).(interop.Hash160)
		token   = storage.Get(ctx, tokenKey).(interop.Hash160)
	)

	if !contract.Call(token, "approve", contract.All, self, savings, amount).(bool) {
		panic("approve failed")
	}

	contract.Call(savings, "deposit", contract.All, self, amount)
}

// Drain withdraws amount from the Savings contract and withdraws the same
// amount once more when the tokens arrive.
func Drain(amount int) {
	ctx := storage.GetContext()
	storage.Put(ctx, armedKey, amount)

	savings := storage.Get(ctx, savingsKey).(interop.Hash160)
	contract.Call(savings, "withdraw", contract.All, runtime.GetExecutingScriptHash(), amount)
}

func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetContext()

	armed := storage.Get(ctx, armedKey)
	if armed == nil {
		return
	}

	storage.Delete(ctx, armedKey)

	savings := storage.Get(ctx, savingsKey).(interop.Hash160)
	contract.Call(savings, "withdraw", contract.All, runtime.GetExecutingScriptHash(), armed.(int))
}
