package main

import (
	"time"

	"github.com/urfave/cli"
)

const (
	rpcFlag      = "rpc"
	walletFlag   = "wallet"
	addressFlag  = "address"
	passwordFlag = "password"
	contractFlag = "contract"
	timeoutFlag  = "timeout"
	debugFlag    = "debug"

	tokenFlag     = "token"
	artifactsFlag = "artifacts"
	amountFlag    = "amount"
	pushFlag      = "push"
	accountFlag   = "account"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   rpcFlag,
		Usage:  "Neo RPC server endpoint",
		EnvVar: "SAVINGS_RPC",
		Value:  "http://localhost:30333",
	},
	cli.StringFlag{
		Name:   walletFlag,
		Usage:  "path to the NEP-6 wallet file",
		EnvVar: "SAVINGS_WALLET",
	},
	cli.StringFlag{
		Name:   addressFlag,
		Usage:  "wallet account address (default account is used if omitted)",
		EnvVar: "SAVINGS_ADDRESS",
	},
	cli.StringFlag{
		Name:   passwordFlag,
		Usage:  "wallet account password",
		EnvVar: "SAVINGS_PASSWORD",
	},
	cli.StringFlag{
		Name:   contractFlag,
		Usage:  "Savings contract address or script hash",
		EnvVar: "SAVINGS_CONTRACT",
	},
	cli.DurationFlag{
		Name:   timeoutFlag,
		Usage:  "timeout of the RPC requests",
		EnvVar: "SAVINGS_TIMEOUT",
		Value:  15 * time.Second,
	},
	cli.BoolFlag{
		Name:  debugFlag,
		Usage: "enable debug logging",
	},
}

var amountCmdFlag = cli.StringFlag{
	Name:  amountFlag,
	Usage: "amount of saving tokens (decimal, e.g. 1.5)",
}
