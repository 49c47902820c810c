package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/savings-contract/contracts"
	"github.com/nspcc-dev/savings-contract/deploy"
	"github.com/nspcc-dev/savings-contract/rpc/savings"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var deployCommand = cli.Command{
	Name:  "deploy",
	Usage: "deploy Savings contract bound to the saving token",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:   tokenFlag,
			Usage:  "saving token address or script hash",
			EnvVar: "SAVINGS_TOKEN",
		},
		cli.StringFlag{
			Name:  artifactsFlag,
			Usage: "root directory of the compiled contracts",
			Value: "contracts",
		},
	},
	Action: deployAction,
}

var depositCommand = cli.Command{
	Name:  "deposit",
	Usage: "deposit saving tokens from the wallet account",
	Flags: []cli.Flag{
		amountCmdFlag,
		cli.BoolFlag{
			Name:  pushFlag,
			Usage: "deposit with plain token transfer instead of approve and deposit",
		},
	},
	Action: depositAction,
}

var withdrawCommand = cli.Command{
	Name:   "withdraw",
	Usage:  "withdraw deposited tokens to the wallet account",
	Flags:  []cli.Flag{amountCmdFlag},
	Action: withdrawAction,
}

var balanceCommand = cli.Command{
	Name:  "balance",
	Usage: "print deposited balance of the account",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  accountFlag,
			Usage: "account address (wallet account is used if omitted)",
		},
	},
	Action: balanceAction,
}

var infoCommand = cli.Command{
	Name:   "info",
	Usage:  "print Savings contract state",
	Action: infoAction,
}

func deployAction(c *cli.Context) error {
	token, err := parseAccount(c.String(tokenFlag))
	if err != nil {
		return fmt.Errorf("invalid saving token: %w", err)
	}

	ctr, err := contracts.ReadSavings(os.DirFS(c.String(artifactsFlag)))
	if err != nil {
		return err
	}

	s, err := openSession(c, sessionPrm{withWallet: true})
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	addr, err := deploy.Deploy(ctx, deploy.Prm{
		Logger:     s.log,
		Blockchain: s.rpc,
		Actor:      s.act,
		NEF:        ctr.NEF,
		Manifest:   ctr.Manifest,
		Token:      token,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Savings contract: %s (%s)\n", address.Uint160ToString(addr), addr.StringLE())

	return nil
}

func depositAction(c *cli.Context) error {
	s, err := openSession(c, sessionPrm{withWallet: true, withContract: true})
	if err != nil {
		return err
	}
	defer s.close()

	tokenHash, decimals, err := s.token()
	if err != nil {
		return err
	}

	amount, err := parseAmount(c.String(amountFlag), decimals)
	if err != nil {
		return err
	}

	from := s.acc.ScriptHash()
	l := s.log.With(zap.String("account", s.acc.Address), zap.Stringer("amount", amount))

	if c.Bool(pushFlag) {
		l.Info("transferring tokens to the Savings contract...")
		return s.wait(nep17.New(s.act, tokenHash).Transfer(from, s.contract, amount, nil))
	}

	script, err := depositScript(tokenHash, s.contract, from, amount)
	if err != nil {
		return err
	}

	l.Info("approving and depositing tokens...")

	return s.wait(s.act.SendRun(script))
}

// depositScript builds a script approving amount of tokens to the contract
// and depositing it within a single transaction.
func depositScript(token, contract, from util.Uint160, amount *big.Int) ([]byte, error) {
	b := smartcontract.NewBuilder()
	b.InvokeWithAssert(token, "approve", from, contract, amount)
	b.InvokeMethod(contract, "deposit", from, amount)

	script, err := b.Script()
	if err != nil {
		return nil, fmt.Errorf("build deposit script: %w", err)
	}

	return script, nil
}

func withdrawAction(c *cli.Context) error {
	s, err := openSession(c, sessionPrm{withWallet: true, withContract: true})
	if err != nil {
		return err
	}
	defer s.close()

	_, decimals, err := s.token()
	if err != nil {
		return err
	}

	amount, err := parseAmount(c.String(amountFlag), decimals)
	if err != nil {
		return err
	}

	s.log.Info("withdrawing tokens...", zap.String("account", s.acc.Address), zap.Stringer("amount", amount))

	return s.wait(savings.New(s.act, s.contract).Withdraw(s.acc.ScriptHash(), amount))
}

func balanceAction(c *cli.Context) error {
	var (
		acc util.Uint160
		err error
	)

	accStr := c.String(accountFlag)
	if accStr != "" {
		acc, err = parseAccount(accStr)
		if err != nil {
			return fmt.Errorf("invalid account: %w", err)
		}
	}

	s, err := openSession(c, sessionPrm{withWallet: accStr == "", withContract: true})
	if err != nil {
		return err
	}
	defer s.close()

	if s.acc != nil {
		acc = s.acc.ScriptHash()
	}

	_, decimals, err := s.token()
	if err != nil {
		return err
	}

	bal, err := savings.NewReader(s.inv, s.contract).CheckUserBalance(acc)
	if err != nil {
		return fmt.Errorf("get balance: %w", savings.Classify(err))
	}

	fmt.Fprintf(c.App.Writer, "%s: %s\n", address.Uint160ToString(acc), fixedn.ToString(bal, decimals))

	return nil
}

func infoAction(c *cli.Context) error {
	s, err := openSession(c, sessionPrm{withContract: true})
	if err != nil {
		return err
	}
	defer s.close()

	r := savings.NewReader(s.inv, s.contract)

	owner, err := r.GetOwner()
	if err != nil {
		return fmt.Errorf("get owner: %w", err)
	}

	tokenHash, decimals, err := s.token()
	if err != nil {
		return err
	}

	total, err := r.TotalSaved()
	if err != nil {
		return fmt.Errorf("get total saved amount: %w", err)
	}

	custody, err := nep17.NewReader(s.inv, tokenHash).BalanceOf(s.contract)
	if err != nil {
		return fmt.Errorf("get token balance of the contract: %w", err)
	}

	version, err := r.Version()
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Contract:   %s\n", address.Uint160ToString(s.contract))
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Owner:      %s\n", address.Uint160ToString(owner))
	fmt.Fprintf(w, "Token:      %s\n", address.Uint160ToString(tokenHash))
	fmt.Fprintf(w, "Saved:      %s\n", fixedn.ToString(total, decimals))
	fmt.Fprintf(w, "In custody: %s\n", fixedn.ToString(custody, decimals))

	if custody.Cmp(total) < 0 {
		return errors.New("token balance of the contract is less than the total saved amount")
	}

	return nil
}

// parseAmount parses positive decimal amount of tokens with given decimals.
func parseAmount(s string, decimals int) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing amount")
	}

	amount, err := fixedn.FromString(s, decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", savings.ErrInvalidAmount, s)
	}

	return amount, nil
}
