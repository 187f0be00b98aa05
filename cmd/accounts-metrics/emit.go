package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vincentbai/accounts-metrics/internal/environment"
	"github.com/vincentbai/accounts-metrics/internal/metrics"
	"github.com/vincentbai/accounts-metrics/internal/relier"
	"github.com/vincentbai/accounts-metrics/internal/transport"
)

var (
	emitPageURL  string
	emitReferrer string
	emitScreen   string
	emitEvents   []string
	emitBroker   string
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Simulate a page visit and flush its metrics to the collector",
	Long: `Builds a relier from the page URL (resume token first, then query
parameters), logs the given screen and events, then unloads the page,
which flushes the metrics to the configured collector.`,
	RunE: runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&emitPageURL, "url", "", "page URL, including query string (required)")
	emitCmd.Flags().StringVar(&emitReferrer, "referrer", "", "document referrer")
	emitCmd.Flags().StringVar(&emitScreen, "screen", "", "screen name to log")
	emitCmd.Flags().StringSliceVar(&emitEvents, "event", nil, "event name to log, repeatable")
	emitCmd.Flags().StringVar(&emitBroker, "broker", "", "auth broker type")
	_ = emitCmd.MarkFlagRequired("url")
}

func runEmit(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	window, err := environment.NewStatic(emitPageURL, emitReferrer)
	if err != nil {
		return err
	}

	rp := relier.New(window, log)
	if err := rp.Fetch(); err != nil {
		log.Warn("Relier imported a partial query string", zap.Error(err))
	}

	var flushErr error
	observer := metrics.ObserverFuncs{
		OnSuccess: func(payload map[string]any) {
			fmt.Fprintf(cmd.OutOrStdout(), "flushed %d fields to %s\n", len(payload), transport.URL(cfg.Client.Collector))
		},
		OnError: func(err error) { flushErr = err },
	}

	client := metrics.New(metrics.Options{
		Collector:       cfg.Client.Collector,
		BrokerType:      emitBroker,
		Campaign:        rp.Campaign(),
		Context:         cfg.Client.Context,
		Entrypoint:      rp.Entrypoint(),
		Lang:            cfg.Client.Lang,
		Service:         rp.Service(),
		UTMCampaign:     rp.UTMCampaign(),
		UTMContent:      rp.UTMContent(),
		UTMMedium:       rp.UTMMedium(),
		UTMSource:       rp.UTMSource(),
		UTMTerm:         rp.UTMTerm(),
		InactivityFlush: cfg.Client.InactivityFlush,
		Transport:       transport.NewHTTPTransport(nil, cfg.Client.SendTimeout, log),
		Window:          window,
		Logger:          log,
		Observers:       []metrics.FlushObserver{observer, metrics.NewPrometheusObserver(prometheus.NewRegistry())},
	})
	client.Init()
	defer client.Destroy()

	if emitScreen != "" {
		client.LogScreen(emitScreen)
	}
	for _, event := range emitEvents {
		client.LogEvent(event)
	}

	window.Unload()
	if flushErr != nil {
		return fmt.Errorf("failed to flush metrics: %w", flushErr)
	}

	if token := rp.ResumeToken(); token != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "resume token: %s\n", token)
	}
	return nil
}
