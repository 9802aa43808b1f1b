package main

import (
	"log"
	"os"

	"github.com/ruteri/barnyard/cmd/flags"
	"github.com/ruteri/barnyard/common"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    common.PackageName,
		Usage:   "Store secrets encrypted at rest and split the master key among custodians",
		Version: common.Version,
		Flags:   flags.CommonFlags,
		Before:  flags.LoadConfigFile(flags.CommonFlags),
		Commands: []*cli.Command{
			serveCommand,
			storeCommand,
			loadCommand,
			listCommand,
			splitCommand,
			recoverCommand,
		},
	}
}
