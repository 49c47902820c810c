/*
Package deploy provides deployment of the Savings contract to the Neo
blockchain.
*/
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/savings-contract/rpc/savings"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the deployment.
type Blockchain interface {
	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Actor sends transactions on behalf of the deploying account. It is
// implemented by [actor.Actor].
type Actor interface {
	// Sender returns account paying for the transactions. It becomes an owner
	// of the deployed contract.
	Sender() util.Uint160

	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)

	// Wait waits until the transaction is accepted to the chain and returns
	// its execution result.
	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Prm groups all parameters of the deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the contract to.
	Blockchain Blockchain

	// Sender of the deployment transaction (must be unlocked).
	Actor Actor

	NEF      nef.File
	Manifest manifest.Manifest

	// Address of the saving token contract.
	Token util.Uint160
}

var errZeroToken = errors.New("zero saving token address")

// Deploy deploys the Savings contract bound to Prm.Token and returns its
// address. The address depends on the sender, NEF checksum and contract name
// only, so Deploy does nothing if the contract is already on the chain.
//
// Deploy blocks until the deployment transaction is accepted or ctx is done.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	if prm.Token.Equals(util.Uint160{}) {
		return util.Uint160{}, errZeroToken
	}

	addr := state.CreateContractHash(prm.Actor.Sender(), prm.NEF.Checksum, prm.Manifest.Name)
	l := prm.Logger.With(zap.Stringer("contract", addr), zap.Stringer("token", prm.Token))

	l.Info("checking Savings contract presence on the chain...")

	_, err := prm.Blockchain.GetContractStateByHash(addr)
	if err == nil {
		l.Info("Savings contract is already deployed, skip")
		return addr, nil
	} else if !isErrContractNotFound(err) {
		return util.Uint160{}, fmt.Errorf("get state of the Savings contract by address %s: %w", addr, err)
	}

	bNEF, err := prm.NEF.Bytes()
	if err != nil {
		return util.Uint160{}, fmt.Errorf("encode NEF: %w", err)
	}

	jManifest, err := json.Marshal(prm.Manifest)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("encode manifest into JSON: %w", err)
	}

	l.Info("Savings contract is missing on the chain, sending deploy transaction...")

	res, err := sendAndWait(ctx, prm.Actor, func() (util.Uint256, uint32, error) {
		return prm.Actor.SendCall(management.Hash, "deploy", bNEF, jManifest, []any{prm.Token})
	})
	if err != nil {
		return util.Uint160{}, fmt.Errorf("deploy Savings contract: %w", err)
	}

	l.Info("Savings contract successfully deployed", zap.Stringer("tx", res.Container))

	return addr, nil
}

// sendAndWait sends transaction using send and waits for its successful
// execution. Wait routine is abandoned when ctx is done.
func sendAndWait(ctx context.Context, a Actor, send func() (util.Uint256, uint32, error)) (*state.AppExecResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type waitRes struct {
		res *state.AppExecResult
		err error
	}

	ch := make(chan waitRes, 1)

	go func() {
		res, err := a.Wait(send())
		ch <- waitRes{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}

		if r.res.VMState != vmstate.Halt {
			return r.res, savings.Classify(fmt.Errorf("transaction %s failed with %s state: %s",
				r.res.Container, r.res.VMState, r.res.FaultException))
		}

		return r.res, nil
	}
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}
