package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/savings-contract/audit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// dsnEnv names environment variable with DSN of the test database. Tests are
// skipped when it is unset.
const dsnEnv = "SAVINGS_AUDIT_TEST_DSN"

func openTestStore(t *testing.T) *Store {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s is not set", dsnEnv)
	}

	ctx := context.Background()

	s, err := Open(ctx, dsn)
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `TRUNCATE savings_records, savings_balances`)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := audit.Record{
		ID:      uuid.New(),
		Kind:    audit.KindDeposit,
		Account: "NbUgTSFvPmsRxmGeWpuuGeJUoRoi6PErcM",
		Amount:  decimal.RequireFromString("1.5"),
		Tx:      util.Uint256{1},
	}

	ok, err := s.Apply(ctx, rec)
	require.NoError(t, err)
	require.True(t, ok)

	// replay with another ID
	rec.ID = uuid.New()
	ok, err = s.Apply(ctx, rec)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Apply(ctx, audit.Record{
		ID:      uuid.New(),
		Kind:    audit.KindWithdraw,
		Account: rec.Account,
		Amount:  decimal.RequireFromString("0.25"),
		Tx:      util.Uint256{1},
		Index:   1,
	})
	require.NoError(t, err)
	require.True(t, ok)

	bal, err := s.Balance(ctx, rec.Account)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("1.25").Equal(bal), bal)

	bal, err = s.Balance(ctx, "unknown")
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	accs, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{rec.Account}, accs)
}
