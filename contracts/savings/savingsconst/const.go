/*
Package savingsconst contains constants shared by the Savings contract and
its off-chain clients: failure messages the contract panics with and names of
the notifications it emits.
*/
package savingsconst

const (
	// ErrInvalidAmount is thrown when deposited or withdrawn amount is not
	// positive.
	ErrInvalidAmount = "invalid amount"
	// ErrInsufficientBalance is thrown when withdrawn amount exceeds the
	// deposited balance of the account.
	ErrInsufficientBalance = "insufficient balance"
	// ErrTransferRejected is thrown when the saving token declines a pull
	// (deposit) or a push (withdraw) transfer.
	ErrTransferRejected = "transfer rejected"
	// ErrUnauthorized is thrown when the operation is not witnessed by the
	// account it acts on behalf of.
	ErrUnauthorized = "unauthorized"
	// ErrInvalidTokenAddress is thrown on deployment without a valid saving
	// token script hash.
	ErrInvalidTokenAddress = "invalid token address"
	// ErrInvalidAccount is thrown when account argument is not a script hash.
	ErrInvalidAccount = "invalid account"
	// ErrForeignToken is thrown when any token other than the saving one is
	// sent to the contract.
	ErrForeignToken = "only saving token is accepted"
)

const (
	// DepositRecordedEvent is the name of notification produced on every
	// credited deposit.
	DepositRecordedEvent = "DepositRecorded"
	// WithdrawRecordedEvent is the name of notification produced on every
	// completed withdrawal.
	WithdrawRecordedEvent = "WithdrawRecorded"
)
