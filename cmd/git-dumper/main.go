// Command git-dumper rebuilds a local clone of a remote Git repository
// whose .git/ directory is exposed by a plain HTTP file server.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/DidierA/git-dumper/internal/dumper"
	"github.com/DidierA/git-dumper/internal/metrics"
	"github.com/DidierA/git-dumper/internal/proxyspec"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "git-dumper URL DIR",
	Short:   "Reconstruct a git repository from an exposed .git/ directory",
	Args:    cobra.ExactArgs(2),
	PreRunE: validateProxyFlag,
	RunE:    runDump,
}

// validateProxyFlag rejects a malformed --proxy before any network or
// filesystem work starts, so a bad spec surfaces as an argument-parse
// error (spec §6) rather than a runtime error out of dumper.New.
func validateProxyFlag(cmd *cobra.Command, args []string) error {
	proxySpec, _ := cmd.Flags().GetString("proxy")
	if proxySpec == "" {
		return nil
	}
	return proxyspec.Apply(proxySpec, &http.Transport{})
}

func init() {
	rootCmd.Flags().String("proxy", "", "proxy spec: socks5:host:port, socks4:host:port, http://host:port, or host:port")
	rootCmd.Flags().IntP("jobs", "j", 10, "number of concurrent workers")
	rootCmd.Flags().IntP("retry", "r", 3, "number of connection-level retries per request")
	rootCmd.Flags().IntP("timeout", "t", 3, "per-request timeout, in seconds")
	rootCmd.Flags().Bool("log-json", false, "emit structured JSON logs instead of console output")
	rootCmd.Flags().String("metrics-addr", "", "if set, expose Prometheus metrics at this address (e.g. :9102)")
}

func runDump(cmd *cobra.Command, args []string) error {
	proxySpec, _ := cmd.Flags().GetString("proxy")
	jobs, _ := cmd.Flags().GetInt("jobs")
	retries, _ := cmd.Flags().GetInt("retry")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	log := buildLogger(logJSON)
	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd())

	opts := dumper.Options{
		URL:       args[0],
		Dir:       args[1],
		Jobs:      jobs,
		Retries:   retries,
		Timeout:   time.Duration(timeoutSecs) * time.Second,
		ProxySpec: proxySpec,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	m := metrics.New()
	if metricsAddr != "" {
		serveMetrics(metricsAddr, m, log)
	}

	d, err := dumper.New(opts, log, m)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	bar := newPhaseSpinner("probing target")
	stop := make(chan struct{})
	go tickSpinner(bar, stop)

	err = d.Run(cmd.Context())
	close(stop)
	_ = bar.Finish()

	if err != nil {
		log.Error().Err(err).Msg("dump failed")
		return err
	}

	color.New(color.FgGreen).Printf("done — run \"git checkout .\" in %s to materialize the working tree\n", opts.Dir)
	return nil
}

// buildLogger returns console-pretty output on a terminal and plain JSON
// lines otherwise, or always JSON when forceJSON is set.
func buildLogger(forceJSON bool) zerolog.Logger {
	if forceJSON || !isatty.IsTerminal(os.Stdout.Fd()) {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

func serveMetrics(addr string, m *metrics.Metrics, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics exposed")
}

func newPhaseSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func tickSpinner(bar *progressbar.ProgressBar, stop <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}
