package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/continuity/pkg/actions"
	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/dsl"
	flow "github.com/aretw0/continuity/pkg/graph"
	"github.com/spf13/cobra"
)

// demoConfig parameterizes the built-in restart experiment.
type demoConfig struct {
	App        string
	Iterations int
	Settle     time.Duration
	Checkout   string
	Probe      string
	LockTTL    time.Duration
}

func addDemoFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("app", "a", "dvdstore", "Catalogue key of the application to restart")
	f.IntP("iterations", "n", 3, "Number of restarts")
	f.Duration("settle", time.Second, "Time to wait after each restart")
	f.String("checkout", "", "Version to check out before the first restart")
	f.String("probe", "", "Shell command probing the application after each restart")
	f.Duration("lock-ttl", 5*time.Minute, "Expiry of the per-application lock")
}

func demoConfigFrom(cmd *cobra.Command) demoConfig {
	f := cmd.Flags()
	var cfg demoConfig
	cfg.App, _ = f.GetString("app")
	cfg.Iterations, _ = f.GetInt("iterations")
	cfg.Settle, _ = f.GetDuration("settle")
	cfg.Checkout, _ = f.GetString("checkout")
	cfg.Probe, _ = f.GetString("probe")
	cfg.LockTTL, _ = f.GetDuration("lock-ttl")
	return cfg
}

// buildDemo assembles:
//
//	set target
//	[checkout app@version]
//	loop n times:
//	    restart app (retried once, locked per application)
//	    thread: sleep settle
//	    thread: probe (skipped on failure)
//	    count iteration
//	if the probe answered: healthy=true else healthy=false
func buildDemo(d *deps, cfg demoConfig) (*flow.Experiment, error) {
	if _, err := d.catalogue.Get(cfg.App); err != nil {
		return nil, err
	}

	restart := actions.Exclusive(d.locker, "app:"+cfg.App, cfg.LockTTL,
		actions.Restart(d.catalogue, d.runner, cfg.App))

	b := dsl.New("restart-"+cfg.App).
		Append(actions.Set("target", cfg.App))
	if cfg.Checkout != "" {
		b.Append(actions.Checkout(d.catalogue, d.runner, cfg.App, cfg.Checkout))
	}

	b.LoopNamed("restarts", cfg.Iterations).
		AppendWithPolicy(restart, flow.RetryOnAbort(1)).
		NewThread().
		Append(actions.Sleep(cfg.Settle))
	if cfg.Probe != "" {
		probe := actions.Shell(d.runner, "probe "+cfg.App, cfg.Probe, actions.SaveTo("probe"), actions.WithEnv("target"))
		b.NewThread().
			AppendWithPolicy(probe, flow.SkipOnAbort)
	}
	b.Close().
		Append(actions.Func("count iteration", countIteration)).
		Close()

	b.IfThen("probe answered", probeAnswered).
		Append(actions.Set("healthy", true)).
		Else().
		Append(actions.Set("healthy", false)).
		Close()

	exp, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build experiment: %w", err)
	}
	return exp, nil
}

func countIteration(_ context.Context, c *domain.Context) error {
	n, _ := c.Get("iterations").(int)
	c.Set("iterations", n+1)
	return nil
}

func probeAnswered(c *domain.Context) bool {
	out, _ := c.Get("probe").(string)
	return out != ""
}
