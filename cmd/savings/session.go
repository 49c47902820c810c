package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/savings-contract/rpc/savings"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// session groups services shared by the commands working with the Neo RPC
// server.
type session struct {
	log *zap.Logger
	rpc *rpcclient.Client
	inv *invoker.Invoker

	// set only when wallet is required by the command
	acc *wallet.Account
	act *actor.Actor

	// zero when the contract is not required by the command
	contract util.Uint160
}

type sessionPrm struct {
	withWallet   bool
	withContract bool
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if c.GlobalBool(debugFlag) {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}

func openSession(c *cli.Context, prm sessionPrm) (*session, error) {
	var (
		s   session
		err error
	)

	s.log, err = newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if prm.withContract {
		s.contract, err = parseAccount(c.GlobalString(contractFlag))
		if err != nil {
			return nil, fmt.Errorf("invalid Savings contract address: %w", err)
		}
	}

	endpoint := c.GlobalString(rpcFlag)
	timeout := c.GlobalDuration(timeoutFlag)

	s.rpc, err = rpcclient.New(context.Background(), endpoint, rpcclient.Options{
		DialTimeout:    timeout,
		RequestTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = s.rpc.Init()
	if err != nil {
		s.rpc.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	s.log.Debug("connected to the Neo RPC server", zap.String("endpoint", endpoint))

	s.inv = invoker.New(s.rpc, nil)

	if prm.withWallet {
		s.acc, err = openAccount(c.GlobalString(walletFlag), c.GlobalString(addressFlag), c.GlobalString(passwordFlag))
		if err != nil {
			s.rpc.Close()
			return nil, err
		}

		s.act, err = actor.NewSimple(s.rpc, s.acc)
		if err != nil {
			s.rpc.Close()
			return nil, fmt.Errorf("init actor: %w", err)
		}
	}

	return &s, nil
}

func (s *session) close() {
	s.rpc.Close()
	_ = s.log.Sync()
}

// token returns address and decimals of the saving token of the contract.
func (s *session) token() (util.Uint160, int, error) {
	tokenHash, err := savings.NewReader(s.inv, s.contract).GetSavingTokenAddress()
	if err != nil {
		return util.Uint160{}, 0, fmt.Errorf("get saving token address: %w", err)
	}

	decimals, err := nep17.NewReader(s.inv, tokenHash).Decimals()
	if err != nil {
		return util.Uint160{}, 0, fmt.Errorf("get decimals of the saving token %s: %w", tokenHash.StringLE(), err)
	}

	return tokenHash, decimals, nil
}

// wait waits for the transaction sent by the session actor and checks it
// ended with HALT.
func (s *session) wait(h util.Uint256, vub uint32, err error) error {
	res, err := s.act.Wait(h, vub, err)
	if err != nil {
		return savings.Classify(err)
	}

	if res.VMState != vmstate.Halt {
		return savings.Classify(fmt.Errorf("transaction %s failed with %s state: %s", h.StringLE(), res.VMState, res.FaultException))
	}

	s.log.Info("transaction successfully executed",
		zap.String("tx", h.StringLE()), zap.Int64("gas", res.GasConsumed))

	return nil
}

func openAccount(walletPath, addr, password string) (*wallet.Account, error) {
	if walletPath == "" {
		return nil, errors.New("missing wallet")
	}

	w, err := wallet.NewWalletFromFile(walletPath)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}

	accHash := w.GetChangeAddress()
	if addr != "" {
		accHash, err = address.StringToUint160(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid account address: %w", err)
		}
	}

	acc := w.GetAccount(accHash)
	if acc == nil {
		return nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(accHash))
	}

	err = acc.Decrypt(password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}

// parseAccount parses Neo address or little-endian script hash.
func parseAccount(s string) (util.Uint160, error) {
	if s == "" {
		return util.Uint160{}, errors.New("empty account")
	}

	h, err := address.StringToUint160(s)
	if err == nil {
		return h, nil
	}

	h, errLE := util.Uint160DecodeStringLE(s)
	if errLE != nil {
		return util.Uint160{}, fmt.Errorf("neither address (%v) nor script hash (%w)", err, errLE)
	}

	return h, nil
}
