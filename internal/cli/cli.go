// SPDX-License-Identifier: EPL-2.0

// Package cli implements the audbind command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/audbind"
	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/config"
	"github.com/ik5/audbind/internal/softengine"
	"github.com/ik5/audbind/internal/softengine/malgoout"
	"github.com/ik5/audbind/native"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const tickerPeriod = 10 * time.Millisecond

// app is the state shared by the commands of one run.
type app struct {
	loader   *config.Loader
	settings *config.Settings
	log      *zap.Logger
	b        *audbind.Binding
	metrics  *http.Server
}

// Root returns the audbind command tree.
func Root() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	root := &cobra.Command{
		Use:           "audbind",
		Short:         "Play, decode and record audio through the audbind engine binding",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default audbind.yaml in the user config dir or .)")
	pf.String("library", "", "native engine library, empty for the built-in soft engine")
	pf.String("encoder", "", "native encoder add-on library")
	pf.Bool("wide", false, "pass strings to the engine as UTF-16")
	pf.Int("device", -1, "output device, -1 for the default")
	pf.Int("record-device", -1, "recording device, -1 for the default")
	pf.Uint32("freq", 44100, "output sample rate")
	pf.Uint32("buffer", 0, "playback buffer length in ms, 0 for the engine default")
	pf.String("output", config.OutputMalgo, "soft engine output: malgo, null or manual")
	pf.String("input", "", "audio file the soft engine records from")
	pf.String("log-level", "info", "log level")
	pf.String("metrics", "", "address to serve Prometheus metrics on")

	root.PersistentPreRunE = a.setup

	root.AddCommand(
		a.devicesCommand(),
		a.playCommand(),
		a.decodeCommand(),
		a.recordCommand(),
	)
	return root
}

// command wraps a RunE so the binding is closed however the command ends.
// Cobra skips post-run hooks when RunE fails.
func (a *app) command(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, a.teardown())
		}()
		return run(cmd, args)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) (err error) {
	if err := a.loader.BindFlags(cmd); err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("config")
	s, err := a.loader.Load(path)
	if err != nil {
		return err
	}
	a.settings = s

	if a.log, err = s.Logger(); err != nil {
		return err
	}
	if f := a.loader.File(); f != "" {
		a.log.Debug("config loaded", zap.String("file", f))
	}

	reg := prometheus.NewRegistry()
	input, _ := cmd.Flags().GetString("input")
	if a.b, err = a.open(reg, input); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.teardown())
		}
	}()
	if s.Buffer > 0 {
		if err := a.b.SetConfig(native.ConfigBuffer, s.Buffer); err != nil {
			return err
		}
	}

	if s.Metrics.Listen != "" {
		a.serveMetrics(reg, s.Metrics.Listen)
	}
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.metrics.Shutdown(ctx))
		a.metrics = nil
	}
	if a.b != nil {
		errs = append(errs, a.b.Close())
		a.b = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

// open loads the configured native library, or builds the soft engine.
func (a *app) open(reg prometheus.Registerer, input string) (*audbind.Binding, error) {
	s := a.settings
	opts := []audbind.Option{
		audbind.WithLogger(a.log),
		audbind.WithMetrics(reg),
	}
	if s.WideStrings {
		opts = append(opts, audbind.WithWideStrings())
	}

	if s.Library != "" {
		if s.EncoderLibrary != "" {
			opts = append(opts, audbind.WithEncoder(s.EncoderLibrary))
		}
		b, err := audbind.Open(s.Library, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", s.Library, err)
		}
		return b, nil
	}

	engineOpts := []softengine.Option{
		softengine.WithLogger(a.log.Named("softengine")),
		softengine.WithOutput(a.output(s.Output)),
	}
	if input != "" {
		engineOpts = append(engineOpts, softengine.WithInput(filepath.Base(input), fileInput(input)))
	}
	lib := softengine.New(engineOpts...)
	b, err := audbind.New(lib, opts...)
	if err != nil {
		return nil, errors.Join(err, lib.Close())
	}
	return b, nil
}

func (a *app) output(name string) func(int) softengine.Output {
	switch name {
	case config.OutputManual:
		return func(int) softengine.Output { return softengine.NewManualOutput() }
	case config.OutputMalgo:
		if malgoout.Available {
			return func(int) softengine.Output { return malgoout.New() }
		}
		a.log.Warn("built without miniaudio, playing to a null output")
	}
	return func(int) softengine.Output { return softengine.NewTickerOutput(tickerPeriod) }
}

func (a *app) serveMetrics(reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

// fileSource closes the file behind a decoded source.
type fileSource struct {
	audio.Source
	f *os.File
}

func (s fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.f.Close())
}

// fileInput captures from a decoded audio file.
func fileInput(path string) softengine.Input {
	return func() (audio.Source, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		_, src, err := softengine.DefaultRegistry().Probe(f)
		if err != nil {
			return nil, errors.Join(err, f.Close())
		}
		return fileSource{Source: src, f: f}, nil
	}
}
