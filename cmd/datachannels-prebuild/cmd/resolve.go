package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/datachannels-prebuild/internal/service/resolver"
)

var (
	// nodeModules is the install tree searched by resolve.
	nodeModules string
	// manifestPath overrides the run manifest location.
	manifestPath string

	// resolveCmd reports which prebuilt binary the loader would pick on this host.
	resolveCmd = &cobra.Command{
		Use:   "resolve",
		Short: "Show the prebuilt binary selected for this platform",
		Long: "Run the platform selector of the last packaging run against an installed node_modules tree " +
			"and print the path of the binary it picks. Set DATACHANNELS_PREBUILT_LOG=1 to print the diagnostic line.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &resolver.Options{
				ConfigPath:   configPath,
				ManifestPath: manifestPath,
				NodeModules:  nodeModules,
				Stdout:       cmd.OutOrStdout(),
				Stderr:       os.Stderr,
			}

			return resolver.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	resolveCmd.Flags().StringVar(&nodeModules, "node-modules", resolver.DefaultNodeModules, "install tree holding the platform packages")
	resolveCmd.Flags().StringVar(&manifestPath, "manifest", "", "run manifest path (defaults to the one in the prebuilt directory)")
}
