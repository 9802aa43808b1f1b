package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/barnyard/cmd/flags"
	"github.com/ruteri/barnyard/common"
	"github.com/ruteri/barnyard/cryptoutils"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/ruteri/barnyard/kms"
	"github.com/urfave/cli/v2"
)

var outDirFlag = &cli.StringFlag{
	Name:  "out-dir",
	Value: "shares",
	Usage: "directory to write share files to",
}

var shareFlag = &cli.StringSliceFlag{
	Name:     "share",
	Required: true,
	Usage:    "hex share file; repeat once per custodian",
}

var forceFlag = &cli.BoolFlag{
	Name:  "force",
	Usage: "overwrite an existing key file",
}

var splitCommand = &cli.Command{
	Name:  "split",
	Usage: "Split the master key into shares for custodians",
	Flags: []cli.Flag{outDirFlag},
	Action: func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)

		splitter, err := flags.Splitter(cCtx)
		if err != nil {
			return err
		}

		key, err := cryptoutils.LoadMasterKey(cCtx.String(flags.KeyFileFlag.Name))
		if err != nil {
			return fmt.Errorf("could not load master key: %w", err)
		}

		shares, err := splitter.SplitMasterKey(key)
		if err != nil {
			return err
		}

		outDir := cCtx.String(outDirFlag.Name)
		if err := os.MkdirAll(outDir, 0o700); err != nil {
			return fmt.Errorf("could not create share directory: %w", err)
		}

		for _, share := range shares {
			path := filepath.Join(outDir, fmt.Sprintf("share-%d.hex", share.X))
			err := common.WriteFileAtomic(path, []byte(share.String()+"\n"))
			cryptoutils.Wipe(share.Y)
			if err != nil {
				return fmt.Errorf("could not write share: %w", err)
			}
			fmt.Fprintln(cCtx.App.Writer, path)
		}

		logger.Info("Split master key",
			"threshold", splitter.Threshold(),
			"shares", splitter.TotalShares(),
			"dir", outDir)
		return nil
	},
}

var recoverCommand = &cli.Command{
	Name:  "recover",
	Usage: "Reconstruct the master key from custodian shares and write the key file",
	Flags: []cli.Flag{shareFlag, forceFlag},
	Action: func(cCtx *cli.Context) error {
		logger := flags.SetupLogger(cCtx)

		splitter, err := flags.Splitter(cCtx)
		if err != nil {
			return err
		}

		keyFile := cCtx.String(flags.KeyFileFlag.Name)
		if _, err := os.Stat(keyFile); err == nil && !cCtx.Bool(forceFlag.Name) {
			return fmt.Errorf("key file %s already exists, use --force to overwrite", keyFile)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("could not check key file: %w", err)
		}

		unsealer := kms.NewUnsealer(splitter)
		for _, path := range cCtx.StringSlice(shareFlag.Name) {
			share, err := readShareFile(path)
			if err != nil {
				return err
			}

			unlocked, err := unsealer.SubmitShare(share)
			cryptoutils.Wipe(share.Y)
			if err != nil {
				return fmt.Errorf("share %s: %w", path, err)
			}
			if unlocked {
				break
			}
		}

		key, err := unsealer.MasterKey()
		if err != nil {
			return fmt.Errorf("%w: need %d shares", err, splitter.Threshold())
		}
		defer unsealer.Reset()

		keyBytes := key.Bytes()
		defer cryptoutils.Wipe(keyBytes)
		if err := common.WriteFileAtomic(keyFile, keyBytes); err != nil {
			return fmt.Errorf("%w: write key file: %w", interfaces.ErrPersistence, err)
		}

		logger.Info("Recovered master key", "path", keyFile)
		fmt.Fprintf(cCtx.App.Writer, "Master key recovered to %s\n", keyFile)
		return nil
	},
}

func readShareFile(path string) (interfaces.Share, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return interfaces.Share{}, fmt.Errorf("could not read share %s: %w", path, err)
	}

	share, err := interfaces.ParseShareHex(strings.TrimSpace(string(data)))
	if err != nil {
		return interfaces.Share{}, fmt.Errorf("share %s: %w", path, err)
	}
	if len(share.Y) != interfaces.MasterKeySize {
		return interfaces.Share{}, fmt.Errorf("%w: share %s is not a master key share", interfaces.ErrReconstruction, path)
	}
	return share, nil
}
