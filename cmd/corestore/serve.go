package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/corestore/pkg/config"
	"github.com/cuemby/corestore/pkg/persistence"
	"github.com/cuemby/corestore/pkg/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a corestore process from a bucket manifest",
	Long: `Start a corestore process: load a bucket manifest, define every
bucket it declares, and keep the store running until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("manifest", "f", "", "Bucket manifest YAML file (required)")
	serveCmd.Flags().String("config", "", "Process config YAML file")
	serveCmd.Flags().String("name", "corestore", "Store instance name")
	_ = serveCmd.MarkFlagRequired("manifest")
}

func runServe(cmd *cobra.Command, args []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	configPath, _ := cmd.Flags().GetString("config")
	name, _ := cmd.Flags().GetString("name")

	proc, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	manifest, err := config.LoadManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	var adapter persistence.Adapter
	if proc.PersistenceEnabled() {
		switch proc.PersistenceDriver() {
		case "bolt":
			dir := proc.PersistencePath()
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create persistence dir: %w", err)
			}
			adapter, err = persistence.NewBoltAdapter(dir)
			if err != nil {
				return fmt.Errorf("open bolt persistence: %w", err)
			}
		default:
			adapter = persistence.NewMemoryAdapter()
		}
	}

	s := store.Start(store.Options{
		Name:             name,
		TTLCheckInterval: proc.TTLCheckInterval(),
		Persistence:      adapter,
		PersistenceFlush: proc.PersistenceFlushDebounce(),
	})

	for _, bs := range manifest.Buckets {
		def, err := bs.ToBucketDef()
		if err != nil {
			s.Stop()
			return fmt.Errorf("bucket %q: %w", bs.Name, err)
		}
		if _, err := s.DefineBucket(bs.Name, def); err != nil {
			s.Stop()
			return fmt.Errorf("define bucket %q: %w", bs.Name, err)
		}
		fmt.Printf("defined bucket: %s\n", bs.Name)
	}

	fmt.Println("corestore is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nshutting down...")
	s.Stop()
	if adapter != nil {
		_ = adapter.Close()
	}
	fmt.Println("shutdown complete")
	return nil
}
