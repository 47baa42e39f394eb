package main

import (
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/anyswap/CrossChain-HTLC/cmd/utils"
	"github.com/anyswap/CrossChain-HTLC/log"
)

var (
	clientIdentifier = "swapadmin"
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app = utils.NewApp(clientIdentifier, gitCommit, gitDate, "the swapadmin command line interface")
)

func initApp() {
	app.HideVersion = true // we have a command to print the version
	app.Commands = []*cli.Command{
		statusCommand,
		getCommand,
		activeCommand,
		deadlinesCommand,
		forceRevealCommand,
		utils.VersionCommand,
	}
	app.Flags = []cli.Flag{
		utils.VerbosityFlag,
		utils.JSONFormatFlag,
		utils.ColorFormatFlag,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
}

func main() {
	initApp()
	if err := app.Run(os.Args); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
