package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/fakegpt/internal/app"
	"github.com/dohr-michael/fakegpt/internal/conversation"
	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/netsim"
)

// NewSimulateCommand returns the simulate subcommand.
func NewSimulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Roll the network simulator and summarise the outcomes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "scenario",
				Usage: "Demo scenario to arm: normal, slow, fail or off",
				Value: "off",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of simulated requests",
				Value:   1000,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed (0 picks one)",
			},
		},
		Action: runSimulate,
	}
}

// simStats summarises a batch of simulated requests.
type simStats struct {
	Requests  int
	Slow      int
	Failed    int
	TotalWait time.Duration
	Quality   map[netsim.Quality]int
}

func (s simStats) ratio(n int) float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(n) / float64(s.Requests)
}

// MeanDelay averages the delay of the requests that did not fail.
func (s simStats) MeanDelay() time.Duration {
	ok := s.Requests - s.Failed
	if ok == 0 {
		return 0
	}
	return s.TotalWait / time.Duration(ok)
}

// simulate rolls sim n times. No delay is actually waited.
func simulate(sim *netsim.Simulator, n int) simStats {
	st := simStats{Quality: map[netsim.Quality]int{}}
	for i := 0; i < n; i++ {
		res, err := sim.SimulateRequest()
		st.Requests++
		if res.IsSlowConnection {
			st.Slow++
		}
		if err != nil {
			st.Failed++
			continue
		}
		st.TotalWait += res.Delay
		st.Quality[netsim.ConnectionQuality(res.Delay)]++
	}
	return st
}

func runSimulate(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, os.Stderr)
	if err != nil {
		return err
	}
	n := cmd.Int("count")
	if n <= 0 {
		return errors.New("--count must be positive")
	}
	seed := cmd.Uint64("seed")
	if seed == 0 {
		seed = rand.Uint64()
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	ctrl := demo.NewController(demo.WithRand(rng))
	if err := conversation.ApplyDemo(ctrl, cmd.String("scenario"), false); err != nil {
		return err
	}
	sim := netsim.New(ctrl, app.SimulatorConfig(cfg), netsim.WithRand(rng))

	st := simulate(sim, n)
	writeStats(os.Stdout, ctrl.Snapshot(), seed, st)
	return nil
}

func writeStats(w io.Writer, mode demo.State, seed uint64, st simStats) {
	scenario := "off"
	if mode.Active {
		scenario = string(mode.Scenario)
	}
	pct := func(n int) string { return fmt.Sprintf("%d (%.1f%%)", n, 100*st.ratio(n)) }

	header := lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("metric", "value").
		Row("scenario", scenario).
		Row("seed", strconv.FormatUint(seed, 10)).
		Row("requests", strconv.Itoa(st.Requests)).
		Row("slow", pct(st.Slow)).
		Row("failed", pct(st.Failed)).
		Row("mean delay", st.MeanDelay().Round(time.Millisecond).String()).
		Row("quality good", pct(st.Quality[netsim.QualityGood])).
		Row("quality fair", pct(st.Quality[netsim.QualityFair])).
		Row("quality poor", pct(st.Quality[netsim.QualityPoor]))

	fmt.Fprintln(w, t.Render())
}
