// Package main is the entry point for the solace-sense daemon.
// Solace Sense turns raw device telemetry into persona actions: samples are
// normalized, aggregated over sliding windows, evaluated against the active
// persona's trigger rules, and fired actions fan out to the configured
// collaborators.
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

	"github.com/spf13/cobra"

	"github.com/solacehub/solace-sense/internal/bridge"
	"github.com/solacehub/solace-sense/internal/collab/backend"
	"github.com/solacehub/solace-sense/internal/collab/haptic"
	"github.com/solacehub/solace-sense/internal/collab/notify"
	"github.com/solacehub/solace-sense/internal/config"
	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/engine"
	"github.com/solacehub/solace-sense/internal/journal"
	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/metrics"
	"github.com/solacehub/solace-sense/internal/rules"
	"github.com/solacehub/solace-sense/internal/sched"
	"github.com/solacehub/solace-sense/internal/server"
	"github.com/solacehub/solace-sense/internal/source"
)

var (
	version = "0.3.0"
	cfgPath string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "solace-sense",
		Short: "Solace Sense - telemetry trigger engine for persona actions",
		Long: `Solace Sense watches a device telemetry stream and lets the active
persona react to it:
  • Normalizes heart rate, motion, light, mood and more into canonical ranges
  • Aggregates sliding windows into magnitude, variance and regularity stats
  • Fires declarative trigger rules with debounce and cooldown
  • Fans actions out to backend, haptics, notifications and Redis

Run the daemon:          solace-sense
Replay a scenario:       solace-sense simulate --scenario workout
Inspect rule tables:     solace-sense rules`,
		PersistentPreRunE: initLogging,
		RunE:              runServe,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.solace-sense/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("solace-sense v%s\n", version)
		},
	})

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(rulesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogging(cmd *cobra.Command, args []string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	logging.Setup(level, "console")
	return nil
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger engine daemon",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log := logging.WithComponent("main")

	reg, err := rules.LoadFile(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	log.Info().Strs("personas", reg.Personas()).Str("active", cfg.Persona).Msg("rule tables loaded")

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
	}

	collaborators := []dispatch.Collaborator{
		backend.New(backend.Config{
			URL:      cfg.Backend.URL,
			APIToken: cfg.Backend.APIToken,
			Enabled:  cfg.Backend.Enabled,
			Timeout:  time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		}),
		haptic.New(haptic.Config{
			URL:     cfg.Haptic.URL,
			Enabled: cfg.Haptic.Enabled,
			Timeout: time.Duration(cfg.Haptic.TimeoutSec) * time.Second,
		}),
		notify.New(cfg.Notify.Enabled),
		bridge.New(bridge.Config{
			Addr:     cfg.Bridge.Addr,
			Password: cfg.Bridge.Password,
			DB:       cfg.Bridge.DB,
			Enabled:  cfg.Bridge.Enabled,
		}),
	}

	var disp *dispatch.Dispatcher
	onResult := func(res dispatch.Result) {
		for _, o := range res.Outcomes {
			metrics.DispatchOutcomes.WithLabelValues(o.Collaborator, string(o.Status)).Inc()
			metrics.DispatchLatency.WithLabelValues(o.Collaborator).Observe(o.Elapsed.Seconds())
		}
		metrics.DispatchQueueDepth.Set(float64(disp.Pending()))
		if jnl != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := jnl.Record(ctx, res); err != nil {
				log.Warn().Err(err).Str("event_id", res.Event.ID).Msg("journal write failed")
			}
		}
	}
	disp = dispatch.NewDispatcher(collaborators, cfg.Queue.DispatchSize, onResult)

	eng, err := engine.New(reg, disp, cfg.Persona, cfg.Queue.IngestSize)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := disp.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	var src source.Source
	switch cfg.Source.Kind {
	case "websocket":
		src = source.NewWebSocketSource(cfg.Source.URL, eng)
	case "simulator":
		scenario, err := source.ParseScenario(cfg.Source.Scenario)
		if err != nil {
			return err
		}
		interval := time.Duration(cfg.Source.IntervalMs) * time.Millisecond
		src = source.NewSimulator(scenario, interval, cfg.Source.Seed, eng)
	}
	if src != nil {
		go func() {
			if err := src.Run(ctx); err != nil {
				log.Error().Err(err).Str("source", src.Name()).Msg("telemetry source stopped")
			}
		}()
	}

	var pruner sched.Pruner
	if jnl != nil {
		pruner = jnl
	}
	retention := time.Duration(cfg.Journal.RetentionDays) * 24 * time.Hour
	sch, err := sched.New(eng, pruner, retention)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}
	sch.Start()

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.Addr, eng, disp, jnl, version)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server stopped")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("\n⬡ Solace Sense v%s\n", version)
	fmt.Printf("  Persona: %s\n", cfg.Persona)
	if src != nil {
		fmt.Printf("  Source:  %s\n", src.Name())
	} else {
		fmt.Printf("  Source:  none (push via API)\n")
	}
	if cfg.Server.Enabled {
		fmt.Printf("  API:     http://localhost%s\n", cfg.Server.Addr)
	}
	fmt.Printf("\nPress Ctrl+C to stop...\n")

	<-sigChan
	fmt.Println("\nShutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown error")
		}
	}
	sch.Stop()
	if err := eng.Stop(); err != nil {
		log.Error().Err(err).Msg("engine stop error")
	}
	if err := disp.Stop(); err != nil {
		log.Error().Err(err).Msg("dispatcher stop error")
	}
	if jnl != nil {
		jnl.Close()
	}

	log.Info().Msg("solace-sense stopped gracefully")
	return nil
}

// printSink feeds simulate: fired events print instead of dispatching.
type printSink struct{}

func (printSink) Enqueue(e dispatch.Event) bool {
	fmt.Printf("%s  [%-8s] %-16s %s = %.1f (threshold %.1f)\n",
		e.FiredAt.Format("15:04:05"), e.Priority, e.Action, e.Metric, e.Value, e.Threshold)
	return true
}

func simulateCmd() *cobra.Command {
	var (
		scenarioFlag string
		personaFlag  string
		ticks        int
		seed         int64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a telemetry scenario through the engine",
		Long: `Replay a synthetic telemetry scenario through the full pipeline at top
speed, printing every action the active persona would fire.

Available scenarios:
  • calm_morning    - resting heart rate, gentle light ramp, a short walk
  • workout         - climbing heart rate, heavy motion, step bursts
  • restless_night  - poor sleep, fragmented motion, darkness

Example:
  solace-sense simulate --scenario workout --ticks 600
  solace-sense simulate --scenario restless_night --persona willow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if personaFlag == "" {
				personaFlag = cfg.Persona
			}

			scenario, err := source.ParseScenario(scenarioFlag)
			if err != nil {
				return err
			}
			reg, err := rules.LoadFile(cfg.RulesPath)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}

			// Queue sized for the whole replay so no sample is evicted.
			eng, err := engine.New(reg, printSink{}, personaFlag, ticks*10+64)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := eng.Start(ctx); err != nil {
				return fmt.Errorf("start engine: %w", err)
			}

			fmt.Printf("Replaying %s for %d ticks as %s...\n\n", scenario, ticks, personaFlag)

			sim := source.NewSimulator(scenario, time.Second, seed, nil)
			start := time.Now().UTC().Truncate(time.Second)
			total := 0
			for tick := 0; tick < ticks; tick++ {
				at := start.Add(time.Duration(tick) * time.Second)
				for _, s := range sim.Batch(tick, at) {
					if eng.Ingest(s) {
						total++
					}
				}
			}

			deadline := time.Now().Add(10 * time.Second)
			for time.Now().Before(deadline) {
				st := eng.Status()
				if st.SamplesAccepted+st.SamplesDropped >= uint64(total) {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			if err := eng.Stop(); err != nil {
				return err
			}

			st := eng.Status()
			fmt.Printf("\n%d samples processed, %d dropped, %d events fired\n",
				st.SamplesAccepted, st.SamplesDropped, st.EventsFired)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioFlag, "scenario", "s", "calm_morning", "scenario (calm_morning, workout, restless_night)")
	cmd.Flags().StringVarP(&personaFlag, "persona", "p", "", "persona to evaluate (default from config)")
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 300, "number of one-second ticks to replay")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for the scenario generator")

	return cmd
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the persona rule tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := rules.LoadFile(cfg.RulesPath)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}

			for _, persona := range reg.Personas() {
				marker := "  "
				if persona == cfg.Persona {
					marker = "* "
				}
				fmt.Printf("%s%s\n", marker, persona)
				list, err := reg.RulesFor(persona)
				if err != nil {
					return err
				}
				for _, r := range list {
					fmt.Printf("    %-48s cooldown %s\n", r.Label(), r.Cooldown)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
