/*
Package savings implements Savings contract which keeps deposits of a single
NEP-17 token.

Holders deposit the saving token into the contract balance and withdraw it
back to themselves at any time. The contract tracks deposited balance of
every account and never promises more than it holds: the sum of all balances
(see TotalSaved) does not exceed the token balance of the contract.

Deposit is a pull: the holder approves the contract in the token first, then
calls Deposit which moves tokens with transferFrom. A plain NEP-17 transfer to
the contract is credited to the sender as well. Withdraw reduces the balance
before the token is pushed back, so re-entrant withdrawals are harmless. Any
failure faults the whole transaction, balances never change partially.

The token and the owner (the sender of the deploying transaction) are set
once at deployment and never change. Only the owner can update the contract.

# Contract notifications

DepositRecorded notification. This notification is produced when an account
balance is credited.

	DepositRecorded:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer

WithdrawRecorded notification. This notification is produced when tokens are
sent back to an account.

	WithdrawRecorded:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer
*/
package savings

/*
Contract storage model.

# Summary
Key-value storage format:
  - 'o' -> interop.Hash160
    contract owner
  - 't' -> interop.Hash160
    saving token
  - 's' -> int
    sum of all balances
  - b<interop.Hash160> -> int
    deposited balance of the account, missing key means zero balance
*/
