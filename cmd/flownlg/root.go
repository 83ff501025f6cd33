package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/flownlg/internal/codec"
	"github.com/danielpatrickdp/flownlg/internal/config"
	"github.com/danielpatrickdp/flownlg/internal/device"
	"github.com/danielpatrickdp/flownlg/internal/logging"
	"github.com/danielpatrickdp/flownlg/internal/metrics"
	"github.com/danielpatrickdp/flownlg/internal/orchestrator"
	"github.com/danielpatrickdp/flownlg/internal/store"
)

// #region app
// app carries the settings and logger shared by every subcommand.
type app struct {
	configPath string
	cfg        config.Config
	log        *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logging.Nop()}
	root := &cobra.Command{
		Use:   "flownlg",
		Short: "Plan-then-realize text generation from fact triples",
		Long: `flownlg turns sets of subject-predicate-object facts into text with two
models: a planner that orders and groups the facts into sentences, and a
realizer that writes the sentences.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.log.Sync() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	pf.String("db", "", "SQLite database path")
	pf.String("codec-addr", "", "model service address")
	pf.String("log-mode", "", "log format: dev or prod")

	root.AddCommand(
		newGenerateCmd(a),
		newPlanCmd(a),
		newEvalCmd(a),
		newInspectCmd(a),
		newReplayCmd(a),
		newExportFixtureCmd(a),
		newStubServerCmd(a),
	)
	return root
}

// setup resolves config from file, environment and flags, in that order.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("codec-addr") {
		cfg.CodecAddr, _ = flags.GetString("codec-addr")
	}
	if flags.Changed("log-mode") {
		cfg.LogMode, _ = flags.GetString("log-mode")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg, a.log = cfg, log
	return nil
}

// #endregion app

// #region pipeline
// pipeline owns the connections behind a Generator.
type pipeline struct {
	client  *codec.CodecClient
	store   *store.Store
	metrics *metrics.Metrics
	gen     *orchestrator.Generator
}

// openPipeline dials the model service and builds a Generator. The run store
// is opened only when persist is set.
func (a *app) openPipeline(persist bool) (*pipeline, error) {
	client, err := codec.NewCodecClient(a.cfg.CodecAddr)
	if err != nil {
		return nil, err
	}
	p := &pipeline{client: client, metrics: metrics.New()}

	if persist {
		p.store, err = store.NewStore(a.cfg.DBPath)
		if err != nil {
			client.Close()
			return nil, err
		}
	}

	p.gen, err = orchestrator.NewGenerator(orchestrator.Options{
		Planner:        client.Model(a.cfg.PlannerModel, 0),
		Realizer:       client.Model(a.cfg.RealizerModel, a.cfg.RealizerMaxLength),
		Slot:           device.NewSlot(client),
		Store:          p.store,
		Metrics:        p.metrics,
		Logger:         a.log,
		Retry:          orchestrator.DefaultRetryPolicy(),
		RequestTimeout: a.cfg.RequestTimeout,
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *pipeline) Close() {
	if p.store != nil {
		p.store.Close()
	}
	p.client.Close()
}

// serveMetrics exposes /metrics on addr until the returned func is called.
func (a *app) serveMetrics(addr string, m *metrics.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	a.log.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// #endregion pipeline
