package savings

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/savings-contract/common"
	"github.com/nspcc-dev/savings-contract/contracts/savings/savingsconst"
)

const (
	ownerKey      = 'o'
	tokenKey      = 't'
	totalKey      = 's'
	balancePrefix = 'b'

	// hardcoded value to ignore payment notification of the pull made by Deposit.
	depositMarker = "\x73\x76\x64"

	zeroHash = "\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckUpdate(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		token interop.Hash160
	})

	if len(args.token) != interop.Hash160Len || args.token.Equals(zeroHash) {
		panic(savingsconst.ErrInvalidTokenAddress)
	}

	ctx := storage.GetContext()

	storage.Put(ctx, tokenKey, args.token)
	storage.Put(ctx, ownerKey, runtime.GetScriptContainer().Sender)

	runtime.Log("savings contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the contract owner.
func Update(nefFile, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()
	if !runtime.CheckWitness(getOwner(ctx)) {
		panic(savingsconst.ErrUnauthorized)
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.WithVersion(data))
	runtime.Log("savings contract updated")
}

// OnNEP17Payment is a callback for the saving token. Tokens pulled by Deposit
// are already accounted there, any other payment is credited to the sender
// just like Deposit does. Payments without a sender (mint) stay in the
// contract as surplus. Other tokens are rejected.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetContext()

	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(getToken(ctx)) {
		panic(savingsconst.ErrForeignToken)
	}

	if data == depositMarker {
		return
	}

	if amount <= 0 || len(from) != interop.Hash160Len {
		return
	}

	credit(ctx, from, amount)

	runtime.Log("payment credited")
	runtime.Notify("DepositRecorded", from, amount)
}

// Deposit pulls amount of saving tokens from the account into the contract
// and credits them to the account balance. The account must have approved
// at least amount to the contract in the token beforehand and must witness
// the invocation.
//
// It produces DepositRecorded notification.
func Deposit(from interop.Hash160, amount int) {
	if amount <= 0 {
		panic(savingsconst.ErrInvalidAmount)
	}

	if !common.IsUsableAddress(from) {
		panic(savingsconst.ErrUnauthorized)
	}

	ctx := storage.GetContext()
	self := runtime.GetExecutingScriptHash()

	pulled := contract.Call(getToken(ctx), "transferFrom", contract.All,
		self, from, self, amount, depositMarker).(bool)
	if !pulled {
		panic(savingsconst.ErrTransferRejected)
	}

	credit(ctx, from, amount)

	runtime.Notify("DepositRecorded", from, amount)
}

// Withdraw sends amount of saving tokens from the contract back to the
// account and reduces its balance. The account must witness the invocation.
//
// The balance is reduced before the token transfer, so a withdrawal
// re-entered from the receiver's payment callback sees what is left only.
//
// It produces WithdrawRecorded notification.
func Withdraw(to interop.Hash160, amount int) {
	if amount <= 0 {
		panic(savingsconst.ErrInvalidAmount)
	}

	if !common.IsUsableAddress(to) {
		panic(savingsconst.ErrUnauthorized)
	}

	ctx := storage.GetContext()

	if balanceOf(ctx, to) < amount {
		panic(savingsconst.ErrInsufficientBalance)
	}

	debit(ctx, to, amount)

	pushed := contract.Call(getToken(ctx), "transfer", contract.All,
		runtime.GetExecutingScriptHash(), to, amount, nil).(bool)
	if !pushed {
		panic(savingsconst.ErrTransferRejected)
	}

	runtime.Notify("WithdrawRecorded", to, amount)
}

// CheckUserBalance returns saved balance of the account. Unknown accounts
// have zero balance.
func CheckUserBalance(account interop.Hash160) int {
	if len(account) != interop.Hash160Len {
		panic(savingsconst.ErrInvalidAccount)
	}

	return balanceOf(storage.GetReadOnlyContext(), account)
}

// TotalSaved returns the sum of all saved balances. It never exceeds the
// saving token balance of the contract.
func TotalSaved() int {
	return getTotal(storage.GetReadOnlyContext())
}

// GetOwner returns the account which deployed the contract.
func GetOwner() interop.Hash160 {
	return getOwner(storage.GetReadOnlyContext())
}

// GetSavingTokenAddress returns script hash of the saving token.
func GetSavingTokenAddress() interop.Hash160 {
	return getToken(storage.GetReadOnlyContext())
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func credit(ctx storage.Context, account interop.Hash160, amount int) {
	storage.Put(ctx, balanceKey(account), balanceOf(ctx, account)+amount)
	storage.Put(ctx, totalKey, getTotal(ctx)+amount)
}

func debit(ctx storage.Context, account interop.Hash160, amount int) {
	var (
		key  = balanceKey(account)
		rest = balanceOf(ctx, account) - amount
	)

	if rest == 0 {
		storage.Delete(ctx, key)
	} else {
		storage.Put(ctx, key, rest)
	}

	storage.Put(ctx, totalKey, getTotal(ctx)-amount)
}

func balanceOf(ctx storage.Context, account interop.Hash160) int {
	data := storage.Get(ctx, balanceKey(account))
	if data != nil {
		return data.(int)
	}

	return 0
}

func getTotal(ctx storage.Context) int {
	data := storage.Get(ctx, totalKey)
	if data != nil {
		return data.(int)
	}

	return 0
}

// Stored script hashes are asserted as strings to be returned as ByteString
// items.

func getOwner(ctx storage.Context) interop.Hash160 {
	return interop.Hash160(storage.Get(ctx, ownerKey).(string))
}

func getToken(ctx storage.Context) interop.Hash160 {
	return interop.Hash160(storage.Get(ctx, tokenKey).(string))
}

func balanceKey(account interop.Hash160) []byte {
	return append([]byte{balancePrefix}, account...)
}
