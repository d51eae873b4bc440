package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	db "github.com/tendermint/tm-db"

	"github.com/vidra-network/vidra-go-node/config"
	"github.com/vidra-network/vidra-go-node/core/state"
	"github.com/vidra-network/vidra-go-node/genesis"
	"github.com/vidra-network/vidra-go-node/log"
	"github.com/vidra-network/vidra-go-node/version"
)

// The binary manages the engine's state lifecycle: it seeds a genesis
// document and dumps committed snapshots. The bonding manager itself is a
// library surface, constructed by the host that drives rounds and jobs.
func main() {
	var homeDir, configPath string

	rootCmd := &cobra.Command{
		Use:   "vidra-node",
		Short: "Vidra stake accounting engine",
	}
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", ".data/vidra", "node home directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml, defaults apply when empty")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a development genesis into the home directory",
			RunE: func(cmd *cobra.Command, args []string) error {
				return initHome(homeDir)
			},
		},
		&cobra.Command{
			Use:   "export",
			Short: "Dump the committed state snapshot as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				return exportState(homeDir, configPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the engine version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version.Version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initHome(homeDir string) error {
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(homeDir, "genesis.json")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("genesis already exists at %s", path)
	}

	if err := genesis.Testnet().Save(path); err != nil {
		return err
	}

	log.Info("genesis written", "path", path)

	return nil
}

func exportState(homeDir, configPath string) error {
	cfg, err := config.GetConfig(configPath)
	if err != nil {
		return err
	}
	log.InitLog(cfg)

	doc, err := genesis.Load(filepath.Join(homeDir, "genesis.json"))
	if err != nil {
		return err
	}

	database, err := db.NewGoLevelDB("state", filepath.Join(homeDir, "data"))
	if err != nil {
		return err
	}
	defer database.Close()

	s, err := state.NewState(0, database, nil, cfg.StateCacheSize, state.Options{
		CandidateCap: cfg.NumTranscoders,
		ReserveCap:   cfg.NumReserveTranscoders,
	})
	if err != nil {
		return err
	}

	if s.Tree().Version() == 0 {
		return fmt.Errorf("no committed state under %s", homeDir)
	}

	log.Info("exporting state", "chain_id", doc.ChainID, "height", s.Tree().Version())

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(s.Export())
}
