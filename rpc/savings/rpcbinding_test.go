package savings_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/savings-contract/rpc/savings"
	"github.com/stretchr/testify/require"
)

type call struct {
	contract util.Uint160
	method   string
	params   []any
}

type testActor struct {
	res   *result.Invoke
	err   error
	calls []call
}

func (a *testActor) Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	a.calls = append(a.calls, call{contract, operation, params})
	return a.res, a.err
}

func (a *testActor) MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error) {
	a.calls = append(a.calls, call{contract, method, params})
	return transaction.New([]byte{1}, 0), a.err
}

func (a *testActor) MakeRun([]byte) (*transaction.Transaction, error) {
	return transaction.New([]byte{1}, 0), a.err
}

func (a *testActor) MakeUnsignedCall(contract util.Uint160, method string, _ []transaction.Attribute, params ...any) (*transaction.Transaction, error) {
	a.calls = append(a.calls, call{contract, method, params})
	return transaction.New([]byte{1}, 0), a.err
}

func (a *testActor) MakeUnsignedRun([]byte, []transaction.Attribute) (*transaction.Transaction, error) {
	return transaction.New([]byte{1}, 0), a.err
}

func (a *testActor) SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error) {
	a.calls = append(a.calls, call{contract, method, params})
	return util.Uint256{1}, 100, a.err
}

func (a *testActor) SendRun([]byte) (util.Uint256, uint32, error) {
	return util.Uint256{1}, 100, a.err
}

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{State: vmstate.Halt.String(), Stack: items}
}

func TestContractReader(t *testing.T) {
	contract := util.Uint160{1, 2, 3}
	acc := util.Uint160{4, 5, 6}
	a := &testActor{}
	r := savings.NewReader(a, contract)

	a.res = halt(stackitem.Make(42))
	b, err := r.CheckUserBalance(acc)
	require.NoError(t, err)
	require.EqualValues(t, 42, b.Int64())
	require.Equal(t, call{contract, "checkUserBalance", []any{acc}}, a.calls[0])

	a.res = halt(stackitem.NewByteArray(acc.BytesBE()))
	owner, err := r.GetOwner()
	require.NoError(t, err)
	require.Equal(t, acc, owner)

	token, err := r.GetSavingTokenAddress()
	require.NoError(t, err)
	require.Equal(t, acc, token)

	a.res = halt(stackitem.Make(7))
	total, err := r.TotalSaved()
	require.NoError(t, err)
	require.EqualValues(t, 7, total.Int64())

	t.Run("fault", func(t *testing.T) {
		a.res = &result.Invoke{
			State:          vmstate.Fault.String(),
			FaultException: "at instruction 77 (THROW): unhandled exception: \"invalid account\"",
		}
		_, err := r.CheckUserBalance(acc)
		require.Error(t, err)
		require.ErrorIs(t, savings.Classify(err), savings.ErrInvalidAccount)
	})
}

func TestContract(t *testing.T) {
	contract := util.Uint160{1, 2, 3}
	acc := util.Uint160{4, 5, 6}
	a := &testActor{}
	c := savings.New(a, contract)

	h, vub, err := c.Deposit(acc, big.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, util.Uint256{1}, h)
	require.EqualValues(t, 100, vub)

	_, err = c.WithdrawUnsigned(acc, big.NewInt(3))
	require.NoError(t, err)

	require.Equal(t, []call{
		{contract, "deposit", []any{acc, big.NewInt(10)}},
		{contract, "withdraw", []any{acc, big.NewInt(3)}},
	}, a.calls)
}

func TestEventsFromApplicationLog(t *testing.T) {
	acc := util.Uint160{4, 5, 6}
	item := func(amount int64) *stackitem.Array {
		return stackitem.NewArray([]stackitem.Item{
			stackitem.NewByteArray(acc.BytesBE()),
			stackitem.NewBigInteger(big.NewInt(amount)),
		})
	}

	log := &result.ApplicationLog{
		Executions: []state.Execution{{
			VMState: vmstate.Halt,
			Events: []state.NotificationEvent{
				{Name: "Transfer", Item: stackitem.NewArray(nil)},
				{Name: "DepositRecorded", Item: item(5)},
				{Name: "WithdrawRecorded", Item: item(2)},
			},
		}},
	}

	deposits, err := savings.DepositRecordedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*savings.DepositRecordedEvent{{Account: acc, Amount: big.NewInt(5)}}, deposits)

	withdrawals, err := savings.WithdrawRecordedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*savings.WithdrawRecordedEvent{{Account: acc, Amount: big.NewInt(2)}}, withdrawals)

	t.Run("malformed", func(t *testing.T) {
		log.Executions[0].Events[1].Item = stackitem.NewArray([]stackitem.Item{stackitem.Make(1)})
		_, err := savings.DepositRecordedEventsFromApplicationLog(log)
		require.Error(t, err)
	})

	t.Run("nil log", func(t *testing.T) {
		_, err := savings.WithdrawRecordedEventsFromApplicationLog(nil)
		require.Error(t, err)
	})
}

func TestParseFault(t *testing.T) {
	for exception, expected := range map[string]error{
		"":                                   nil,
		"some VM error":                      nil,
		"unhandled exception: \"invalid amount\"":       savings.ErrInvalidAmount,
		"unhandled exception: \"insufficient balance\"": savings.ErrInsufficientBalance,
		"unhandled exception: \"transfer rejected\"":    savings.ErrTransferRejected,
		"unhandled exception: \"unauthorized\"":         savings.ErrUnauthorized,
	} {
		require.Equal(t, expected, savings.ParseFault(exception), exception)
	}
}

func TestClassify(t *testing.T) {
	require.NoError(t, savings.Classify(nil))

	plain := errors.New("connection refused")
	require.Equal(t, plain, savings.Classify(plain))

	err := savings.Classify(errors.New("invocation failed: \"insufficient balance\""))
	require.ErrorIs(t, err, savings.ErrInsufficientBalance)
	require.NotErrorIs(t, err, savings.ErrInvalidAmount)

	// already classified errors are not wrapped twice
	require.Equal(t, err, savings.Classify(err))
}
