package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/kiln/internal/cache/exechash"
	"github.com/conduit-lang/kiln/internal/cache/hasher"
	"github.com/conduit-lang/kiln/internal/cli/config"
	"github.com/conduit-lang/kiln/internal/logging"
)

// NewCheckCommandCommand creates the check-command command
func NewCheckCommandCommand() *cobra.Command {
	var compiler string

	cmd := &cobra.Command{
		Use:   "check-command <commands>",
		Short: "Hash compiler check command output",
		Long:  "Run a semicolon-separated compiler check command list and print the digest of the combined output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Verbose)
			defer logger.Sync()

			h := hasher.New()
			runner := exechash.NewRunner(logger)

			ok, err := runner.HashMultiCommandOutput(h, args[0], compiler)
			if err != nil {
				// Pipe or spawn primitive failure; nothing about cache
				// correctness can be assumed past this point.
				var fatal *exechash.FatalError
				if errors.As(err, &fatal) {
					fmt.Fprintf(os.Stderr, "kiln: fatal: %v\n", fatal)
					os.Exit(1)
				}
				return err
			}

			fmt.Println(h.HexDigest())
			if !ok {
				return fmt.Errorf("compiler check command failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&compiler, "compiler", "", "Path substituted for %compiler% arguments")

	return cmd
}
