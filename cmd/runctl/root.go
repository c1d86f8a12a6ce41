package main

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"translation-backend/internal/runsclient"
	"translation-backend/internal/shared/telemetry"
)

var (
	settings = viper.New()
	flush    = func() {}
)

var rootCmd = &cobra.Command{
	Use:          "runctl",
	Short:        "Operate quote analysis runs",
	Long:         "Creates, dispatches, watches, applies and discards analysis runs through the API.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_, f, err := telemetry.Setup(telemetry.Options{
			Level:  settings.GetString("log-level"),
			Format: "console",
		})
		if err != nil {
			return eris.Wrap(err, "init logger")
		}
		flush = f
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		flush()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("api", "http://localhost:8080", "API base URL")
	pf.String("actor", "", "actor id sent as X-Actor-Id")
	pf.String("role", "staff", "actor role sent as X-Actor-Role")
	pf.Duration("timeout", 15*time.Second, "per-request timeout")
	pf.String("log-level", "warn", "log level")

	settings.SetEnvPrefix("RUNCTL")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	_ = settings.BindPFlags(pf)
}

// newClient builds an API client from flags, falling back to RUNCTL_* env vars.
func newClient() (*runsclient.Client, error) {
	return runsclient.New(
		settings.GetString("api"),
		settings.GetString("actor"),
		settings.GetString("role"),
		settings.GetDuration("timeout"),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
