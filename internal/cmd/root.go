/*
Package cmd provides the shrimpctl commands.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dukerupert/shrimptech/internal/submit"
)

// Version is set at build time with -ldflags "-X .../internal/cmd.Version=...".
var Version = "dev"

// options holds the global flags after viper has merged file, env and flags.
type options struct {
	cfgFile       string
	endpointsFile string
	verbose       bool
	debug         bool

	v *viper.Viper

	stdout io.Writer
	stderr io.Writer
	logger *log.Logger

	// fallback overrides the OS fallback in tests.
	fallback submit.Fallback
}

// Execute runs shrimpctl with os.Args. An interrupt cancels the submission
// in progress.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return NewRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return newRootCmd(stdout, stderr, nil)
}

func newRootCmd(stdout, stderr io.Writer, fallback submit.Fallback) *cobra.Command {
	opts := &options{
		v:        viper.New(),
		stdout:   stdout,
		stderr:   stderr,
		fallback: fallback,
	}

	rootCmd := &cobra.Command{
		Use:   "shrimpctl",
		Short: "Submit SHRIMPTECH contact and newsletter forms",
		Long: `shrimpctl sends contact and newsletter submissions to the SHRIMPTECH
backend the same way the website does: each endpoint is tried in order,
the whole list is retried once, and if nothing answers your mail client
is opened with the message instead.

Example:
  shrimpctl submit --name "Nguyễn Văn A" --email a@example.com \
    --phone 0901234567 --message "Tôi muốn tư vấn sản phẩm IoT"
  shrimpctl newsletter reader@example.com
  shrimpctl endpoints --env dev`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is .shrimpctl.yaml)")
	flags.StringVarP(&opts.endpointsFile, "endpoints", "e", "", "YAML file listing the endpoints to try")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug output")
	flags.String("env", "prod", "environment used to pick default endpoints (dev or prod)")
	flags.String("origin", "", "page origin the form is served from")
	flags.Duration("timeout", submit.DefaultTimeout, "timeout for each endpoint")
	flags.Int("attempts", submit.DefaultMaxAttempts, "times the endpoint list is tried")
	flags.String("fallback-email", submit.DefaultFallbackEmail, "address used when no endpoint answers")
	flags.String("hotline", submit.DefaultHotline, "phone number shown when no endpoint answers")

	for _, name := range []string{"env", "origin", "timeout", "attempts", "fallback-email", "hotline"} {
		_ = opts.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	// Add subcommands
	rootCmd.AddCommand(newSubmitCmd(opts))
	rootCmd.AddCommand(newNewsletterCmd(opts))
	rootCmd.AddCommand(newEndpointsCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))

	return rootCmd
}

func (o *options) init(cmd *cobra.Command) error {
	o.logger = log.NewWithOptions(o.stderr, log.Options{ReportTimestamp: false})
	switch {
	case o.debug:
		o.logger.SetLevel(log.DebugLevel)
	case o.verbose:
		o.logger.SetLevel(log.InfoLevel)
	default:
		o.logger.SetLevel(log.WarnLevel)
	}

	o.v.SetEnvPrefix("SHRIMPCTL")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		o.v.SetConfigName(".shrimpctl")
		o.v.SetConfigType("yaml")
		o.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			o.v.AddConfigPath(home)
		}
	}

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		o.logger.Debug("using config file", "path", o.v.ConfigFileUsed())
	}

	return nil
}

// endpoints resolves the candidate list: --endpoints file, then the
// "endpoints" key of the config file, then the defaults for --env.
func (o *options) endpoints() ([]submit.Endpoint, error) {
	if o.endpointsFile != "" {
		f, err := submit.LoadEndpointsFile(o.endpointsFile)
		if err != nil {
			return nil, err
		}
		if f.FallbackEmail != "" && !o.v.IsSet("fallback_email") {
			o.v.Set("fallback_email", f.FallbackEmail)
		}
		if f.Hotline != "" && !o.v.IsSet("hotline") {
			o.v.Set("hotline", f.Hotline)
		}
		return f.Endpoints, nil
	}

	if o.v.IsSet("endpoints") {
		var eps []submit.Endpoint
		if err := o.v.UnmarshalKey("endpoints", &eps); err != nil {
			return nil, fmt.Errorf("invalid endpoints in config: %w", err)
		}
		if len(eps) > 0 {
			return eps, nil
		}
	}

	return submit.DefaultEndpoints(o.v.GetString("env"), o.v.GetString("origin")), nil
}

func (o *options) controller() (*submit.Controller, error) {
	eps, err := o.endpoints()
	if err != nil {
		return nil, err
	}

	fallback := o.fallback
	if fallback == nil {
		fallback = &osFallback{logger: o.logger, stderr: o.stderr}
	}

	return submit.NewController(submit.Config{
		Endpoints:     eps,
		Timeout:       o.v.GetDuration("timeout"),
		MaxAttempts:   o.v.GetInt("attempts"),
		FallbackEmail: o.v.GetString("fallback_email"),
		Hotline:       o.v.GetString("hotline"),
		HTTPClient:    &http.Client{Timeout: o.v.GetDuration("timeout") + 5*time.Second},
		Notifier:      &logNotifier{logger: o.logger, stdout: o.stdout},
		Fallback:      fallback,
		Logger:        slog.New(o.logger),
	}), nil
}
