package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/savings-contract/audit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func record(kind audit.Kind, acc string, amount int64, tx byte, index int) audit.Record {
	return audit.Record{
		ID:      uuid.New(),
		Kind:    kind,
		Account: acc,
		Amount:  decimal.NewFromInt(amount),
		Tx:      util.Uint256{tx},
		Index:   index,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	bal, err := s.Balance(ctx, "A")
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	ok, err := s.Apply(ctx, record(audit.KindDeposit, "B", 5, 1, 0))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Apply(ctx, record(audit.KindDeposit, "A", 3, 1, 1))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Apply(ctx, record(audit.KindWithdraw, "B", 2, 2, 0))
	require.NoError(t, err)
	require.True(t, ok)

	// replay of the same notification
	ok, err = s.Apply(ctx, record(audit.KindWithdraw, "B", 2, 2, 0))
	require.NoError(t, err)
	require.False(t, ok)

	bal, err = s.Balance(ctx, "B")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(3).Equal(bal), bal)

	accs, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, accs)

	require.Len(t, s.Records(), 3)
}

func TestStoreConcurrent(t *testing.T) {
	const n = 50

	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Apply(ctx, record(audit.KindDeposit, "A", 1, byte(i), 0))
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	bal, err := s.Balance(ctx, "A")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(n).Equal(bal))
}
