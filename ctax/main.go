// Command ctax computes crypto tax reports.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/cryptotax/cmd"
	"github.com/etnz/cryptotax/logger"
	"github.com/google/subcommands"
)

func main() {
	// handles shell completion requests and exits when it was one.
	cmd.Completion().Complete("ctax")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	status := commander.Execute(context.Background())
	logger.Sync()
	os.Exit(int(status))
}
