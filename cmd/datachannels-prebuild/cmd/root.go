package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/datachannels-prebuild/internal/config"
	"github.com/oshokin/datachannels-prebuild/internal/domain/platform"
	"github.com/oshokin/datachannels-prebuild/internal/logger"
	"github.com/oshokin/datachannels-prebuild/internal/service/packager"
	"github.com/oshokin/datachannels-prebuild/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to stderr.
	logLevel string
	// packageVersion overrides the version derived from the release name.
	packageVersion string
	// libcCollision overrides the configured collision policy.
	libcCollision string

	// rootCmd represents the base command for packaging prebuilt binaries.
	rootCmd = &cobra.Command{
		Use:   "datachannels-prebuild",
		Short: "Package node-datachannel prebuilt binaries as npm packages",
		Long: "Fetch the latest node-datachannel release, repackage every platform binary as an npm package, " +
			"generate the aggregator package and rewrite the library loader to pick the installed binary.",
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath:    configPath,
				Version:       packageVersion,
				LibcCollision: libcCollision,
			}

			return packager.Run(ctx, options)
		},
	}
)

// errUnknownLogLevel is returned for a --log-level value zap does not know.
var errUnknownLogLevel = errors.New("unknown log level")

// Execute runs the datachannels-prebuild CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.ErrorKV(context.Background(), "Command failed", "error", err)
		os.Exit(1)
	}
}

// applyLogLevel sets the global logger level from the --log-level flag.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&packageVersion, "package-version", "", "version written to the generated packages")
	rootCmd.Flags().StringVar(&libcCollision, "libc-collision", "",
		fmt.Sprintf("glibc/musl collision policy (%s, %s, %s, %s)",
			platform.CollisionOverwrite,
			platform.CollisionMerge,
			platform.CollisionAbort,
			platform.CollisionDisambiguate))

	rootCmd.AddCommand(resolveCmd)
}
