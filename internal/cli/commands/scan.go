package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/kiln/internal/cache/hasher"
	"github.com/conduit-lang/kiln/internal/cache/scan"
	"github.com/conduit-lang/kiln/internal/cache/sourcehash"
	"github.com/conduit-lang/kiln/internal/cli/config"
	"github.com/conduit-lang/kiln/internal/logging"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <file>...",
		Short: "Hash source files and report temporal macros",
		Long:  "Scan each file for __DATE__, __TIME__ and __TIMESTAMP__ and print its findings and cache-key digest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyScanPath(cfg)
			logger := logging.New(cfg.Verbose)
			defer logger.Sync()

			sh := sourcehash.New(cfg.Sloppy(), logger)

			pathColor := color.New(color.FgCyan)
			for _, path := range args {
				h := hasher.New()

				var sizeHint int64
				if fi, err := os.Stat(path); err == nil {
					sizeHint = fi.Size()
				}

				findings, err := sh.HashFile(h, path, sizeHint)
				if err != nil {
					return fmt.Errorf("failed to hash %s: %w", path, err)
				}

				pathColor.Print(path)
				fmt.Printf("  %s  %s\n", h.HexDigest(), findings)
			}
			return nil
		},
	}
}

// applyScanPath maps the scan_path config override onto the scanner.
func applyScanPath(cfg *config.Config) {
	switch cfg.ScanPath {
	case "block":
		scan.ForceBlockScan(true)
	case "scalar":
		scan.ForceBlockScan(false)
	}
}
