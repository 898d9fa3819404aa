package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"ticket-kpi-exporter/internal/config"
	"ticket-kpi-exporter/internal/export"
	"ticket-kpi-exporter/internal/exporter"
	"ticket-kpi-exporter/internal/httpapi"
	"ticket-kpi-exporter/internal/logging"
	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/pipeline"
	"ticket-kpi-exporter/internal/preprocess"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	config   string
	tickets  string
	logins   string
	listen   string
	logLevel string
	check    bool
}

func run() error {
	var f flags
	flagSet := pflag.NewFlagSet("ticket-kpi-exporter", pflag.ContinueOnError)
	flagSet.StringVarP(&f.config, "config", "c", "", "catalog file (default $KPI_CONFIG or "+config.DefaultPath+")")
	flagSet.StringVar(&f.tickets, "tickets", "", "commercial report to load at startup (.xlsx or .csv)")
	flagSet.StringVar(&f.logins, "logins", "", "logins report to load at startup (.xlsx or .csv)")
	flagSet.StringVar(&f.listen, "listen", "", "HTTP listen address")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flagSet.BoolVar(&f.check, "check", false, "load the files, print the validation summary and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := loadConfig(f.config)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if f.tickets != "" {
		cfg.TicketsFile = f.tickets
	}
	if f.logins != "" {
		cfg.LoginsFile = f.logins
	}
	if f.listen != "" {
		cfg.ListenAddr = f.listen
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	sess := session.New()
	reloader := session.NewReloader(sess, p, cfg.TicketsFile, cfg.LoginsFile)
	exp := exporter.New()

	if f.check {
		ds, err := reloader.Reload()
		if err != nil {
			return err
		}
		if ds == nil {
			return errors.New("no tickets or logins file configured")
		}
		for _, r := range []*quality.Report{ds.TicketReport, ds.LoginReport} {
			if r == nil {
				continue
			}
			s := r.Summary()
			fmt.Printf("%s: %d rows, %d valid, %d excluded, %d fatal, %d advisory\n",
				s.Source, s.TotalRows, s.ValidRows, s.Excluded, s.Fatal, s.Advisory)
			for _, issue := range r.Issues {
				fmt.Println("  " + issue.String())
			}
		}
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := exp.Register(reg); err != nil {
		return err
	}

	interval, err := cfg.Interval()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TicketsFile != "" || cfg.LoginsFile != "" {
		go func() {
			var tick <-chan time.Time
			if interval > 0 {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				tick = ticker.C
			}
			for {
				if ds, err := reloader.Reload(); err != nil {
					log.WithError(err).Error("reload failed, keeping previous dataset")
				} else if ds != nil {
					log.WithField("dataset_id", ds.ID.String()).Info("dataset reloaded")
					exp.Update(ds)
				}
				if tick == nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			}
		}()
	}

	h := httpapi.NewHandlers(sess, p, cfg.TeamCatalog(), export.NewBuilder(cfg.MonthNames), exp.Update, log)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewRouter(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", cfg.ListenAddr).Info("exporter running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadConfig reads the catalog at path, $KPI_CONFIG or the default path.
// A missing default catalog falls back to the built-in one.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(config.EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func buildPipeline(cfg *config.Config, log logrus.FieldLogger) (*pipeline.Pipeline, error) {
	tickets, logins, err := cfg.Registries()
	if err != nil {
		return nil, err
	}
	nopts, err := cfg.NormalizerOptions()
	if err != nil {
		return nil, err
	}
	popts, err := cfg.PreprocessOptions(time.Now())
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		Tickets:      tickets,
		Logins:       logins,
		Normalizer:   normalize.New(nopts),
		Preprocessor: preprocess.New(popts),
		Logger:       log,
		Clock:        time.Now,
	}), nil
}
