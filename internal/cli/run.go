package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/Temutjin2k/ispeed/internal/service/report"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type runOptions struct {
	route      string
	duration   time.Duration
	realtime   bool
	seed       uint64
	every      int
	tick       time.Duration
	resolution time.Duration
	alertP     float64
}

// RunCmd runs one monitored trip. By default time is simulated and the trip
// finishes at once; --realtime uses the wall clock and stops on Ctrl+C.
func RunCmd(load monitorLoader) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a monitored trip on a route",
		Example: `  tripsim run --route "Lima - Cusco" --duration 10m
  tripsim run --route "Cusco - Puno" --realtime --duration 1m --alert-p 0.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			mcfg := monitor.Config{
				TickInterval:     cfg.TickInterval,
				ResolutionDelay:  cfg.ResolutionDelay,
				AlertProbability: cfg.AlertProbability,
			}
			flags := cmd.Flags()
			if flags.Changed("tick") {
				mcfg.TickInterval = opts.tick
			}
			if flags.Changed("resolution") {
				mcfg.ResolutionDelay = opts.resolution
			}
			if flags.Changed("alert-p") {
				mcfg.AlertProbability = opts.alertP
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = simulate(ctx, cmd.OutOrStdout(), mcfg, cfg.Routes, opts)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.route, "route", "r", "", "Route from the catalog, e.g. \"Lima - Cusco\"")
	flags.DurationVarP(&opts.duration, "duration", "d", 5*time.Minute, "Trip length")
	flags.BoolVar(&opts.realtime, "realtime", false, "Use the wall clock instead of simulated time")
	flags.Uint64Var(&opts.seed, "seed", 0, "Seed of the alert sampler, 0 for a random one")
	flags.IntVar(&opts.every, "every", 60, "Print progress every N seconds, 0 to disable")
	flags.DurationVar(&opts.tick, "tick", monitor.DefaultTickInterval, "Override the tick interval")
	flags.DurationVar(&opts.resolution, "resolution", monitor.DefaultResolutionDelay, "Override the alert resolution delay")
	flags.Float64Var(&opts.alertP, "alert-p", monitor.DefaultAlertProbability, "Override the alert probability per tick")
	_ = cmd.MarkFlagRequired("route")

	return cmd
}

func simulate(ctx context.Context, out io.Writer, cfg monitor.Config, routes []string, opts runOptions) (monitor.TripSummary, error) {
	var (
		clk  clock.Clock = clock.RealClock{}
		mock *clock.MockClock
	)
	if !opts.realtime {
		mock = clock.NewMockClock(time.Now())
		clk = mock
	}

	sampler := monitor.NewRandSampler()
	if opts.seed != 0 {
		sampler = monitor.NewSeededSampler(opts.seed)
	}

	mon, err := monitor.New(cfg, monitor.NewRouteCatalog(routes), clk, sampler, logger.NewNop())
	if err != nil {
		return monitor.TripSummary{}, err
	}

	p := &printer{out: out, every: opts.every, last: monitor.StateIdle}
	session, err := mon.Start(ctx, opts.route, p.observe)
	if err != nil {
		return monitor.TripSummary{}, err
	}
	p.header(session.Snapshot())

	if mock != nil {
		for elapsed := time.Duration(0); elapsed < opts.duration && ctx.Err() == nil; elapsed += cfg.TickInterval {
			mock.Advance(cfg.TickInterval)
		}
	} else {
		timer := time.NewTimer(opts.duration)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	sum := session.Stop()
	p.summary(sum)
	return sum, nil
}

// printer renders snapshots as they arrive. Timer callbacks of a realtime
// session may call observe concurrently with summary.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	every   int
	last    monitor.State
	stopped bool
}

var (
	alertColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
	faintColor = color.New(color.Faint)
	titleColor = color.New(color.Bold)
)

func (p *printer) header(snap monitor.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", titleColor.Sprint("Trip started:"), snap.Destination)
	fmt.Fprintf(p.out, "%s\n", faintColor.Sprintf("session %s", snap.SessionID))
}

func (p *printer) observe(snap monitor.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	switch {
	case snap.State != p.last && snap.State == monitor.StateAlertActive:
		fmt.Fprintf(p.out, "[%s] %s %s (#%d)\n", snap.Elapsed, alertColor.Sprint("ALERT"), monitor.AlertMessage, snap.AlertCount)
	case snap.State != p.last && snap.State == monitor.StateIdle:
		fmt.Fprintf(p.out, "[%s] %s responses %d/%d\n", snap.Elapsed, okColor.Sprint("resolved"), snap.ResponseCount, snap.AlertCount)
	case p.every > 0 && snap.ElapsedSeconds > 0 && snap.ElapsedSeconds%p.every == 0:
		fmt.Fprintf(p.out, "[%s] %s\n", snap.Elapsed, faintColor.Sprintf("alerts %d  responses %d  effectiveness %d%%", snap.AlertCount, snap.ResponseCount, snap.Effectiveness))
	}
	p.last = snap.State
}

func (p *printer) summary(sum monitor.TripSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true

	fmt.Fprintln(p.out, titleColor.Sprint("Trip finished"))
	fmt.Fprintf(p.out, "  route          %s\n", sum.Destination)
	fmt.Fprintf(p.out, "  elapsed        %s\n", monitor.FormatElapsed(sum.ElapsedSeconds))
	fmt.Fprintf(p.out, "  alerts         %d\n", sum.AlertCount)
	fmt.Fprintf(p.out, "  responses      %d\n", sum.ResponseCount)
	fmt.Fprintf(p.out, "  effectiveness  %s\n", scoreColor(sum.Effectiveness).Sprintf("%d%% (%s)", sum.Effectiveness, report.ScoreBand(sum.Effectiveness)))
}

func scoreColor(score int) *color.Color {
	switch report.ScoreBand(score) {
	case "good":
		return okColor
	case "fair":
		return color.New(color.FgYellow)
	default:
		return alertColor
	}
}
