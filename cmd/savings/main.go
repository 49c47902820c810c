package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

func main() {
	// .env is optional, flags and the process environment are enough
	_ = godotenv.Load()

	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "savings"
	app.Usage = "Savings contract management and usage"
	app.Flags = globalFlags
	app.Commands = []cli.Command{
		deployCommand,
		depositCommand,
		withdrawCommand,
		balanceCommand,
		infoCommand,
	}

	return app
}
