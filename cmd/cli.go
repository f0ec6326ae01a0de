package cmd

import (
	"context"
	"io"
	"os"

	"github.com/habedi/paydash/auth"
	"github.com/habedi/paydash/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// skipSetup marks commands that run without configuration or a credential store.
const skipSetup = "skip-setup"

func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line in args and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{}
	rootCmd := createRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && auth.SignedOut(err) {
		a.dropPlanCache(context.WithoutCancel(ctx))
	}
	a.finish()

	if err == nil {
		return 0
	}
	log.Error().Err(err).Msg("Command execution failed.")
	cliErr := clierr.FromError(err)
	if cliErr.Type == clierr.Session {
		rootCmd.PrintErrln(cliErr.Message)
	} else {
		rootCmd.PrintErrln("Error:", cliErr.Message)
	}
	return cliErr.ExitCode()
}

func createRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paydash",
		Short:         "A command-line dashboard for installment payment plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return a.setup(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Path to the config file (default ~/.paydash/config.yaml)")
	flags.StringVar(&a.opts.baseURL, "base-url", "", "API base URL, overrides the config file")
	flags.StringVar(&a.opts.store, "store", "", "Credential store backend [sqlite, file, redis, memory]")
	flags.StringVar(&a.opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the command finishes")
	flags.BoolP("help", "h", false, "Show help for a command")

	rootCmd.AddCommand(
		signInCmd(a),
		registerCmd(a),
		signOutCmd(a),
		statusCmd(a),
		meCmd(a),
		usersCmd(a),
		plansCmd(a),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}
