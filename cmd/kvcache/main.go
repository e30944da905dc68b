package main

import (
	"context"
	"os"

	"github.com/fystack/kvcache/pkg/logger"
	"github.com/urfave/cli/v3"
)

const (
	ENVIRONMENT = "ENVIRONMENT"
)

func main() {
	// Re-initialized from configuration once a command opens the store.
	logger.Init(os.Getenv(ENVIRONMENT), false)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logger.Fatal("kvcache failed", err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "kvcache",
		Usage: "Inspect and edit a file-backed key-value store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file (default ./config.yaml if present)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Backing file of the store",
			},
			&cli.BoolFlag{
				Name:    "autosync",
				Aliases: []string{"a"},
				Usage:   "Flush after every mutation",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store VALUE under KEY",
				ArgsUsage: "KEY VALUE",
				Flags:     []cli.Flag{noFlushFlag()},
				Action:    setValue,
			},
			{
				Name:      "get",
				Usage:     "Print the value stored under KEY",
				ArgsUsage: "KEY",
				Action:    getValue,
			},
			{
				Name:      "delete",
				Aliases:   []string{"del"},
				Usage:     "Remove KEY",
				ArgsUsage: "KEY",
				Flags:     []cli.Flag{noFlushFlag()},
				Action:    deleteValue,
			},
			{
				Name:   "size",
				Usage:  "Print the number of entries",
				Action: printSize,
			},
			{
				Name:   "keys",
				Usage:  "Print every key, sorted",
				Action: printKeys,
			},
			{
				Name:   "load",
				Usage:  "Report whether the backing file holds data",
				Action: loadStore,
			},
			{
				Name:   "flush",
				Usage:  "Rewrite the backing file from its current content",
				Action: flushStore,
			},
		},
	}
}

func noFlushFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "no-flush",
		Usage: "Keep the change in memory only when autosync is off (it is lost on exit)",
	}
}
