package main

import (
	"fmt"

	"github.com/cuemby/corestore/pkg/config"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Validate a bucket manifest without starting a store",
	Long: `Apply parses a bucket manifest and converts every bucket it
declares into a definition, surfacing any schema errors up front instead
of at serve time.

Examples:
  corestore apply -f buckets.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to validate (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	manifest, err := config.LoadManifest(filename)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	for _, bs := range manifest.Buckets {
		if _, err := bs.ToBucketDef(); err != nil {
			return fmt.Errorf("bucket %q is invalid: %w", bs.Name, err)
		}
		fmt.Printf("✓ bucket %q is valid (key=%s, fields=%d)\n", bs.Name, bs.Key, len(bs.Fields))
	}
	fmt.Printf("manifest %q is valid: %d bucket(s)\n", filename, len(manifest.Buckets))
	return nil
}
