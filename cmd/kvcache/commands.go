package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/fystack/kvcache/pkg/config"
	"github.com/fystack/kvcache/pkg/kvstore"
	"github.com/fystack/kvcache/pkg/logger"
	"github.com/urfave/cli/v3"
)

type stringStore = kvstore.FileStore[string, string]

// openStore resolves configuration (file, env, then flags) and opens the store.
func openStore(c *cli.Command) (*stringStore, error) {
	if err := config.InitViperConfig(c.String("config")); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if c.IsSet("file") {
		cfg.Store.Path = c.String("file")
	}
	if c.IsSet("autosync") {
		cfg.Store.Autosync = c.Bool("autosync")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Init(cfg.Environment, cfg.Debug)
	logger.Debug("Configuration resolved")
	logger.Info("Opening store", "path", cfg.Store.Path, "autosync", cfg.Store.Autosync)

	store := kvstore.New[string, string](cfg.Store.Path, cfg.Store.Options()...)
	// New starts empty when the file cannot be read. Running a command on that
	// view would report missing keys or overwrite the file on flush.
	if _, err := store.Load(); err != nil {
		logger.Error("Backing file could not be loaded", err, "path", cfg.Store.Path)
		return nil, err
	}
	return store, nil
}

func requireArgs(c *cli.Command, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s) %s, got %d", c.Name, n, c.ArgsUsage, c.NArg())
	}
	return nil
}

// persist flushes a mutation when autosync did not already do so.
func persist(c *cli.Command, store *stringStore) error {
	if store.Autosync() {
		return nil
	}
	if c.Bool("no-flush") {
		logger.Warn("Autosync is off and --no-flush was given, change was not written to disk")
		return nil
	}
	return store.Flush()
}

func setValue(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if err := store.Set(c.Args().Get(0), c.Args().Get(1)); err != nil {
		return err
	}
	return persist(c, store)
}

func getValue(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	v, err := store.Get(c.Args().Get(0))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Root().Writer, v)
	return err
}

func deleteValue(ctx context.Context, c *cli.Command) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if err := store.Delete(c.Args().Get(0)); err != nil {
		return err
	}
	return persist(c, store)
}

func printSize(ctx context.Context, c *cli.Command) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Root().Writer, store.Size())
	return err
}

func printKeys(ctx context.Context, c *cli.Command) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	keys := store.Keys()
	slices.Sort(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintln(c.Root().Writer, k); err != nil {
			return err
		}
	}
	return nil
}

func loadStore(ctx context.Context, c *cli.Command) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	loaded, err := store.Load()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Root().Writer, "loaded=%t entries=%d\n", loaded, store.Size())
	return err
}

func flushStore(ctx context.Context, c *cli.Command) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if err := store.Flush(); err != nil {
		return err
	}
	logger.Infof("Flushed %d entries to %s", store.Size(), store.Path())
	return nil
}
