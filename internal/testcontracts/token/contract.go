/*
Package token implements a NEP-17 token with allowance extension. It is used
as the saving token in tests: besides the standard methods it has approve,
allowance and transferFrom which let a spender pull approved amounts.
*/
package token

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	symbol   = "SAVE"
	decimals = 8

	ownerKey        = 'o'
	supplyKey       = 's'
	frozenKey       = 'f'
	balancePrefix   = 'b'
	allowancePrefix = 'a'
)

// nolint:deadcode,unused
func _deploy(_ any, isUpdate bool) {
	if isUpdate {
		return
	}

	storage.Put(storage.GetContext(), ownerKey, runtime.GetScriptContainer().Sender)
}

func Symbol() string {
	return symbol
}

func Decimals() int {
	return decimals
}

func TotalSupply() int {
	return getInt(storage.GetReadOnlyContext(), supplyKey)
}

func BalanceOf(account interop.Hash160) int {
	if len(account) != interop.Hash160Len {
		panic("invalid account")
	}

	return getInt(storage.GetReadOnlyContext(), balanceKey(account))
}

// Transfer moves tokens of the witnessed sender. It returns false if the
// sender is not witnessed or has not enough tokens or transfers are frozen.
func Transfer(from, to interop.Hash160, amount int, data any) bool {
	checkArgs(from, to, amount)

	if !isUsableAddress(from) {
		return false
	}

	ctx := storage.GetContext()
	if isFrozen(ctx) {
		return false
	}

	if getInt(ctx, balanceKey(from)) < amount {
		return false
	}

	move(ctx, from, to, amount, data)

	return true
}

// Approve sets amount the spender is allowed to pull from the owner's
// account. Zero amount revokes the allowance.
func Approve(owner, spender interop.Hash160, amount int) bool {
	checkArgs(owner, spender, amount)

	if !isUsableAddress(owner) {
		return false
	}

	ctx := storage.GetContext()
	putInt(ctx, allowanceKey(owner, spender), amount)

	runtime.Notify("Approval", owner, spender, amount)

	return true
}

// Allowance returns amount the spender is still allowed to pull from the
// owner's account.
func Allowance(owner, spender interop.Hash160) int {
	return getInt(storage.GetReadOnlyContext(), allowanceKey(owner, spender))
}

// TransferFrom moves tokens from the owner's account on behalf of the
// witnessed spender. It returns false if the allowance or the owner's
// balance is not enough.
func TransferFrom(spender, from, to interop.Hash160, amount int, data any) bool {
	checkArgs(from, to, amount)

	if len(spender) != interop.Hash160Len || !isUsableAddress(spender) {
		return false
	}

	var (
		ctx     = storage.GetContext()
		key     = allowanceKey(from, spender)
		allowed = getInt(ctx, key)
	)

	if isFrozen(ctx) {
		return false
	}

	if allowed < amount || getInt(ctx, balanceKey(from)) < amount {
		return false
	}

	putInt(ctx, key, allowed-amount)
	move(ctx, from, to, amount, data)

	return true
}

// Mint issues new tokens to the account. It can be invoked only by the
// deployer.
func Mint(to interop.Hash160, amount int) {
	ctx := storage.GetContext()
	checkOwner(ctx)

	if len(to) != interop.Hash160Len || amount <= 0 {
		panic("invalid mint arguments")
	}

	putInt(ctx, supplyKey, getInt(ctx, supplyKey)+amount)
	putInt(ctx, balanceKey(to), getInt(ctx, balanceKey(to))+amount)

	var from interop.Hash160
	runtime.Notify("Transfer", from, to, amount)
	postTransfer(from, to, amount, nil)
}

// SetFrozen makes every transfer and transferFrom call return false until
// unfrozen. Minting is not affected. It can be invoked only by the deployer.
func SetFrozen(frozen bool) {
	ctx := storage.GetContext()
	checkOwner(ctx)

	if frozen {
		storage.Put(ctx, frozenKey, true)
	} else {
		storage.Delete(ctx, frozenKey)
	}
}

func checkOwner(ctx storage.Context) {
	if !runtime.CheckWitness(storage.Get(ctx, ownerKey).(interop.Hash160)) {
		panic("owner witness required")
	}
}

func isFrozen(ctx storage.Context) bool {
	return storage.Get(ctx, frozenKey) != nil
}

func move(ctx storage.Context, from, to interop.Hash160, amount int, data any) {
	if !from.Equals(to) && amount != 0 {
		putInt(ctx, balanceKey(from), getInt(ctx, balanceKey(from))-amount)
		putInt(ctx, balanceKey(to), getInt(ctx, balanceKey(to))+amount)
	}

	runtime.Notify("Transfer", from, to, amount)
	postTransfer(from, to, amount, data)
}

func postTransfer(from, to interop.Hash160, amount int, data any) {
	if management.GetContract(to) != nil {
		contract.Call(to, "onNEP17Payment", contract.All, from, amount, data)
	}
}

func checkArgs(from, to interop.Hash160, amount int) {
	if len(from) != interop.Hash160Len || len(to) != interop.Hash160Len {
		panic("invalid account")
	}

	if amount < 0 {
		panic("negative amount")
	}
}

func isUsableAddress(addr interop.Hash160) bool {
	return runtime.CheckWitness(addr) || runtime.GetCallingScriptHash().Equals(addr)
}

func getInt(ctx storage.Context, key any) int {
	data := storage.Get(ctx, key)
	if data != nil {
		return data.(int)
	}

	return 0
}

func putInt(ctx storage.Context, key any, value int) {
	if value == 0 {
		storage.Delete(ctx, key)
		return
	}

	storage.Put(ctx, key, value)
}

func balanceKey(account interop.Hash160) []byte {
	return append([]byte{balancePrefix}, account...)
}

func allowanceKey(owner, spender interop.Hash160) []byte {
	key := append([]byte{allowancePrefix}, owner...)
	return append(key, spender...)
}
