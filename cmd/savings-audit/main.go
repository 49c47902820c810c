package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/savings-contract/audit"
	"github.com/nspcc-dev/savings-contract/audit/kafka"
	"github.com/nspcc-dev/savings-contract/audit/memory"
	"github.com/nspcc-dev/savings-contract/audit/postgres"
	"github.com/nspcc-dev/savings-contract/rpc/savings"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	l, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = run(ctx, l, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal("auditor failed", zap.Error(err))
	}

	l.Info("auditor stopped")
}

func run(ctx context.Context, l *zap.Logger, cfg config) error {
	contract, err := address.StringToUint160(cfg.contract)
	if err != nil {
		contract, err = util.Uint160DecodeStringLE(cfg.contract)
		if err != nil {
			return fmt.Errorf("invalid contract %q", cfg.contract)
		}
	}

	c, err := rpcclient.NewWS(ctx, cfg.rpc, rpcclient.WSOptions{})
	if err != nil {
		return fmt.Errorf("RPC client dial: %w", err)
	}
	defer c.Close()

	err = c.Init()
	if err != nil {
		return fmt.Errorf("init RPC client: %w", err)
	}

	reader := savings.NewReader(invoker.New(c, nil), contract)

	tokenHash, err := reader.GetSavingTokenAddress()
	if err != nil {
		return fmt.Errorf("get saving token address: %w", err)
	}

	decimals, err := nep17.NewReader(invoker.New(c, nil), tokenHash).Decimals()
	if err != nil {
		return fmt.Errorf("get decimals of the saving token: %w", err)
	}

	store, closeStore, err := openStore(ctx, l, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	prm := audit.Prm{
		Logger:   l,
		Contract: contract,
		Decimals: decimals,
		Store:    store,
	}

	if len(cfg.brokers) > 0 {
		pub := kafka.NewPublisher(cfg.brokers, cfg.topic)
		defer func() {
			if err := pub.Close(); err != nil {
				l.Error("failed to close Kafka publisher", zap.Error(err))
			}
		}()

		prm.Publisher = pub
	}

	a := audit.New(prm)

	halt := vmstate.Halt.String()
	ch := make(chan *state.AppExecResult, 64)

	_, err = c.ReceiveExecutions(&neorpc.ExecutionFilter{State: &halt}, ch)
	if err != nil {
		return fmt.Errorf("subscribe to executions: %w", err)
	}

	l.Info("auditing Savings contract",
		zap.String("contract", address.Uint160ToString(contract)),
		zap.String("token", address.Uint160ToString(tokenHash)),
		zap.Int("decimals", decimals))

	return serve(ctx, l, a, ch, a, reader, cfg.reconcileInterval)
}

type executionHandler interface {
	HandleExecution(ctx context.Context, res *state.AppExecResult) error
}

type reconciler interface {
	Reconcile(ctx context.Context, r audit.BalanceReader, accounts []string) ([]audit.Mismatch, error)
}

// serve applies executions from ch until ctx is done or ch is closed.
// Reconciliation runs in a separate routine every interval (never if it is
// not positive): its RPC calls are answered by the same WebSocket client
// which can't deliver them while ch is not read.
func serve(ctx context.Context, l *zap.Logger, h executionHandler, ch <-chan *state.AppExecResult,
	rec reconciler, reader audit.BalanceReader, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reconcileLoop(ctx, l, rec, reader, interval)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-ch:
			if !ok {
				return errors.New("subscription channel closed, connection to the RPC server is lost")
			}

			err := h.HandleExecution(ctx, res)
			if err != nil {
				return err
			}
		}
	}
}

// reconcileLoop reports mismatches seen by two subsequent reconciliations,
// others may be caused by notifications not delivered yet.
func reconcileLoop(ctx context.Context, l *zap.Logger, rec reconciler, reader audit.BalanceReader, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	var prev []audit.Mismatch

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		cur, err := rec.Reconcile(ctx, reader, nil)
		if err != nil {
			if ctx.Err() == nil {
				l.Error("reconciliation failed", zap.Error(err))
			}
			continue
		}

		persistent := audit.Persistent(prev, cur)
		for _, m := range persistent {
			l.Warn("balance mismatch",
				zap.String("account", m.Account),
				zap.Stringer("mirrored", m.Mirrored),
				zap.Stringer("on-chain", m.OnChain))
		}

		l.Info("reconciliation finished",
			zap.Int("mismatches", len(cur)), zap.Int("persistent", len(persistent)))

		prev = cur
	}
}

func openStore(ctx context.Context, l *zap.Logger, cfg config) (audit.Store, func(), error) {
	if cfg.dsn == "" {
		l.Info("using in-memory store")
		return memory.NewStore(), func() {}, nil
	}

	s, err := postgres.Open(ctx, cfg.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open PostgreSQL store: %w", err)
	}

	l.Info("using PostgreSQL store")

	return s, func() {
		if err := s.Close(); err != nil {
			l.Error("failed to close PostgreSQL store", zap.Error(err))
		}
	}, nil
}
