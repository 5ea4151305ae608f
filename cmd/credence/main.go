// Copyright (c) 2026 The Credence developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/credence-net/credence/contracts"
	"github.com/credence-net/credence/credence"
	"github.com/credence-net/credence/eventdb"
	"github.com/credence-net/credence/genesis"
	"github.com/credence-net/credence/log"
	"github.com/credence-net/credence/lvldb"
	"github.com/credence-net/credence/metrics"
	"github.com/credence-net/credence/state"
	"github.com/credence-net/credence/xenv"
)

var version = "0.1.0"

var logger = log.WithContext("pkg", "main")

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "directory for state and event databases",
		Value: defaultDataDir(),
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to the genesis YAML file",
	}
	addressFlag = cli.StringFlag{
		Name:  "address",
		Usage: "account address to inspect",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity (0-4)",
		Value: 2,
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "listen address for the Prometheus metrics endpoint",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "credence"
	app.Version = version
	app.Usage = "Credence staked-trust contracts"
	app.Flags = []cli.Flag{verbosityFlag, metricsAddrFlag}
	app.Before = setup
	app.Commands = []cli.Command{
		{
			Name:   "init",
			Usage:  "initialize a data directory from a genesis file",
			Flags:  []cli.Flag{dataDirFlag, genesisFlag},
			Action: initAction,
		},
		{
			Name:   "inspect",
			Usage:  "print a bonded account from the state database",
			Flags:  []cli.Flag{dataDirFlag, addressFlag},
			Action: inspectAction,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) error {
	level := slog.LevelInfo
	switch ctx.Int(verbosityFlag.Name) {
	case 0:
		level = slog.LevelError
	case 1:
		level = slog.LevelWarn
	case 3:
		level = slog.LevelDebug
	case 4:
		level = log.LevelTrace
	}
	log.SetDefault(log.NewTerminalHandler(level))

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		metrics.InitializePrometheusMetrics()
		go func() {
			if err := http.ListenAndServe(addr, metrics.HTTPHandler()); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}
	return nil
}

func initAction(ctx *cli.Context) error {
	genesisPath := ctx.String(genesisFlag.Name)
	if genesisPath == "" {
		return errors.New("--genesis is required")
	}
	f, err := os.Open(genesisPath)
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, err := genesis.Load(f)
	if err != nil {
		return err
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}
	db, err := lvldb.New(filepath.Join(dataDir, "state.db"), lvldb.Options{})
	if err != nil {
		return err
	}
	defer db.Close()

	st := state.New(db)
	env := xenv.New(st, xenv.WithClock(sysClock{}), xenv.WithTransferAgent(xenv.NewMemLedger()))
	if _, err := cfg.Apply(env); err != nil {
		return err
	}
	if err := st.Commit(); err != nil {
		return err
	}

	edb, err := eventdb.New(filepath.Join(dataDir, "events.db"))
	if err != nil {
		return err
	}
	defer edb.Close()
	if err := edb.Write(env.DrainEvents()); err != nil {
		return err
	}
	logger.Info("data directory initialized", "dir", dataDir)
	return nil
}

func inspectAction(ctx *cli.Context) error {
	addr, err := credence.ParseAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return errors.Wrap(err, "--address")
	}
	dataDir := ctx.String(dataDirFlag.Name)
	db, err := lvldb.New(filepath.Join(dataDir, "state.db"), lvldb.Options{})
	if err != nil {
		return err
	}
	defer db.Close()

	env := xenv.New(state.New(db), xenv.WithClock(sysClock{}))
	sys := contracts.NewSystem(env)
	acc, err := sys.Bond.Get(*addr)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(acc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

type sysClock struct{}

func (sysClock) Now() uint64 { return uint64(time.Now().Unix()) }

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".credence"
	}
	return filepath.Join(home, ".credence")
}
