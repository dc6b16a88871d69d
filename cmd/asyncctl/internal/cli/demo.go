package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	async "github.com/KrishRVH/minimal-php-async"
	"github.com/KrishRVH/minimal-php-async/cmd/asyncctl/internal/output"
	"github.com/KrishRVH/minimal-php-async/metrics"
)

// scenario describes one demo run, loadable from a YAML file via --scenario.
type scenario struct {
	Delays []float64 `yaml:"delays"`
}

func defaultScenario() scenario {
	return scenario{Delays: []float64{0.05, 0.02, 0.08}}
}

func loadScenario(path string) (scenario, error) {
	if path == "" {
		return defaultScenario(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, fmt.Errorf("read scenario file: %w", err)
	}
	var s scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return scenario{}, fmt.Errorf("parse scenario file: %w", err)
	}
	if len(s.Delays) == 0 {
		return defaultScenario(), nil
	}
	return s, nil
}

func newDemoCmd() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "run a scripted scenario against a real async.Runtime and print metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}
			return runDemo(cmd, s)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML file listing task delays to run (default: a small built-in scenario)")
	return cmd
}

func runDemo(cmd *cobra.Command, s scenario) error {
	provider := metrics.NewBasicProvider()
	rt := async.New(async.WithMetrics(provider))

	started := time.Now()

	tasks := make([]*async.Task[float64], 0, len(s.Delays))
	for _, d := range s.Delays {
		d := d
		tasks = append(tasks, async.Queue(rt, nil, func(c *async.Ctx) (float64, error) {
			if err := c.Delay(d); err != nil {
				return 0, err
			}
			return d, nil
		}))
	}

	winner, err := async.Race[float64](nil, tasks)
	if err != nil {
		return err
	}

	elapsed := time.Since(started)
	stats := rt.Stats()

	noColor, _ := cmd.Flags().GetBool("no-color")
	colors := output.NewColorScheme(cmd.OutOrStdout(), noColor)

	fmt.Fprintln(cmd.OutOrStdout(), colors.Success(fmt.Sprintf("race winner: %.3fs task, elapsed %s", winner, elapsed)))

	ticksTotal := provider.Counter("async_ticks_total").(*metrics.BasicCounter).Snapshot()
	timerHist := provider.Histogram("async_timers_pending").(*metrics.BasicHistogram).Snapshot()

	rows := []output.MetricRow{
		{Name: "ticks", Value: fmt.Sprintf("%d", stats.Ticks)},
		{Name: "async_ticks_total (counter)", Value: fmt.Sprintf("%d", ticksTotal)},
		{Name: "read_watchers", Value: fmt.Sprintf("%d", stats.ReadWatchers)},
		{Name: "write_watchers", Value: fmt.Sprintf("%d", stats.WriteWatchers)},
		{Name: "timers_pending", Value: fmt.Sprintf("%d", stats.Timers)},
		{Name: "timers_pending mean (histogram)", Value: fmt.Sprintf("%.2f", timerHist.Mean)},
	}
	output.RenderMetrics(cmd.OutOrStdout(), rows, colors)
	return nil
}
