package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ruteri/barnyard/api/secretshandler"
	"github.com/ruteri/barnyard/cmd/flags"
	"github.com/ruteri/barnyard/httpserver"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/ruteri/barnyard/secrets"
	"github.com/urfave/cli/v2"
)

var nameFlag = &cli.StringFlag{
	Name:  "name",
	Value: secrets.DefaultSecretName,
	Usage: "secret name",
}

var dataFlag = &cli.StringSliceFlag{
	Name:     "data",
	Required: true,
	Usage:    "data to store; repeated values are joined with a space",
}

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Serve the secrets API over HTTP",
	Flags:  flags.ServerFlags,
	Before: flags.LoadConfigFile(flags.ServerFlags),
	Action: func(cCtx *cli.Context) error {
		rt, err := bootstrap(cCtx)
		if err != nil {
			return err
		}

		handler := secretshandler.NewHandler(rt.service, rt.log)
		srv, err := httpserver.New(flags.ConfigureServer(cCtx, rt.log, cCtx.String(flags.ListenAddrFlag.Name)), handler)
		if err != nil {
			rt.log.Error("Failed to create server", "err", err)
			return err
		}

		srv.RunInBackground()

		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

		rt.log.Info("Server is running, press Ctrl+C to stop")
		<-exit
		rt.log.Info("Shutdown signal received")

		srv.Shutdown()
		if err := rt.service.Save(cCtx.Context); err != nil {
			rt.log.Error("Failed to save snapshot on shutdown", "err", err)
		}
		rt.log.Info("Server shutdown complete")
		return nil
	},
}

var storeCommand = &cli.Command{
	Name:  "store",
	Usage: "Encrypt data and store it as a secret",
	Flags: []cli.Flag{dataFlag, nameFlag},
	Action: func(cCtx *cli.Context) error {
		rt, err := bootstrap(cCtx)
		if err != nil {
			return err
		}

		data := strings.Join(cCtx.StringSlice(dataFlag.Name), " ")
		resource, err := rt.service.Store(cCtx.Context, rt.identity, cCtx.String(nameFlag.Name), []byte(data))
		if err != nil {
			return err
		}

		rt.log.Info("Tokenized data and saved", "resource", resource)
		fmt.Fprintf(cCtx.App.Writer, "Your data has been tokenized and saved to %s\n", resource)
		return nil
	},
}

var loadCommand = &cli.Command{
	Name:  "load",
	Usage: "Decrypt and print a stored secret",
	Flags: []cli.Flag{nameFlag},
	Action: func(cCtx *cli.Context) error {
		rt, err := bootstrap(cCtx)
		if err != nil {
			return err
		}

		plaintext, err := rt.service.Load(cCtx.Context, rt.identity, cCtx.String(nameFlag.Name))
		switch {
		case errors.Is(err, interfaces.ErrAccessDenied):
			return cli.Exit("Access denied.", 1)
		case errors.Is(err, interfaces.ErrIntegrity):
			return cli.Exit(fmt.Sprintf("Failed to decrypt data: %v", err), 1)
		case err != nil:
			return err
		}

		fmt.Fprintf(cCtx.App.Writer, "Decrypted retrieved data: %q\n", plaintext)
		return nil
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List stored secret names",
	Action: func(cCtx *cli.Context) error {
		rt, err := bootstrap(cCtx)
		if err != nil {
			return err
		}

		for _, name := range rt.service.Names() {
			fmt.Fprintln(cCtx.App.Writer, name)
		}
		return nil
	},
}
