package main

import (
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm"
	"github.com/nspcc-dev/neo-go/pkg/vm/emit"
	"github.com/nspcc-dev/neo-go/pkg/vm/opcode"
	"github.com/nspcc-dev/savings-contract/rpc/savings"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	for _, tc := range []struct {
		in       string
		decimals int
		expected int64
	}{
		{in: "1", decimals: 8, expected: 100_000_000},
		{in: "0.5", decimals: 8, expected: 50_000_000},
		{in: "42", decimals: 0, expected: 42},
		{in: "0.00000001", decimals: 8, expected: 1},
	} {
		v, err := parseAmount(tc.in, tc.decimals)
		require.NoError(t, err, tc.in)
		require.EqualValues(t, tc.expected, v.Int64(), tc.in)
	}

	for _, in := range []string{"", "abc", "1.123", "0", "-1"} {
		_, err := parseAmount(in, 2)
		require.Error(t, err, in)
	}

	_, err := parseAmount("-1", 2)
	require.ErrorIs(t, err, savings.ErrInvalidAmount)
}

func TestParseAccount(t *testing.T) {
	h := util.Uint160{1, 2, 3, 4, 5}

	res, err := parseAccount(address.Uint160ToString(h))
	require.NoError(t, err)
	require.Equal(t, h, res)

	res, err = parseAccount(h.StringLE())
	require.NoError(t, err)
	require.Equal(t, h, res)

	_, err = parseAccount("")
	require.Error(t, err)

	_, err = parseAccount("not an account")
	require.Error(t, err)
}

func TestDepositScript(t *testing.T) {
	var (
		token    = util.Uint160{1}
		contract = util.Uint160{2}
		from     = util.Uint160{3}
	)

	amount, err := parseAmount("1.5", 8)
	require.NoError(t, err)
	require.EqualValues(t, 150_000_000, amount.Int64())

	script, err := depositScript(token, contract, from, amount)
	require.NoError(t, err)

	w := io.NewBufBinWriter()
	emit.AppCall(w.BinWriter, token, "approve", callflag.All, from, contract, amount)
	emit.Opcodes(w.BinWriter, opcode.ASSERT)
	emit.AppCall(w.BinWriter, contract, "deposit", callflag.All, from, amount)
	require.NoError(t, w.Err)
	require.Equal(t, w.Bytes(), script)

	// approval result is asserted before the deposit call
	var (
		ctx   = vm.NewContext(script)
		steps []string
	)

	for ctx.NextIP() < len(script) {
		op, param, err := ctx.Next()
		require.NoError(t, err)

		switch op {
		case opcode.SYSCALL:
			steps = append(steps, "call")
		case opcode.ASSERT:
			steps = append(steps, "assert")
		case opcode.PUSHDATA1:
			if m := string(param); m == "approve" || m == "deposit" {
				steps = append(steps, m)
			}
		}
	}

	require.Equal(t, []string{"approve", "call", "assert", "deposit", "call"}, steps)
}

func TestApp(t *testing.T) {
	app := newApp()

	for _, name := range []string{"deploy", "deposit", "withdraw", "balance", "info"} {
		require.NotNil(t, app.Command(name), name)
	}
}
