// Command rollout runs episodes against a live engine service with a
// first-permitted-action policy, logging them to the episode database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/progsynth/ast-env/go-env/internal/encoding"
	"github.com/progsynth/ast-env/go-env/internal/engine"
	"github.com/progsynth/ast-env/go-env/internal/env"
	"github.com/progsynth/ast-env/go-env/internal/schema"
	"github.com/progsynth/ast-env/go-env/internal/state"
	"github.com/progsynth/ast-env/go-env/internal/verify"
)

// #region main

func main() {
	configPath := flag.String("config", "env.toml", "path to capacity schema TOML")
	episodes := flag.Int("episodes", 5, "number of episodes to run")
	maxSteps := flag.Int("max-steps", 20, "step cap per episode")
	render := flag.Bool("render", false, "render the tree after every step")
	flag.Parse()

	dbPath := envOr("AST_DB", "ast_episodes.db")
	engineAddr := envOr("ENGINE_ADDR", "localhost:50051")

	cfg, err := schema.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	eng, err := engine.NewClient(engineAddr)
	if err != nil {
		log.Fatalf("connect engine at %s: %v", engineAddr, err)
	}

	ctx := context.Background()
	environment, err := env.New(ctx, cfg, eng, env.WithStore(store))
	if err != nil {
		log.Fatalf("build environment: %v", err)
	}
	defer environment.Close()

	fmt.Printf("Rollout ready. DB: %s | Engine: %s\n", dbPath, engineAddr)

	for ep := 1; ep <= *episodes; ep++ {
		if err := runEpisode(ctx, environment, cfg, ep, *maxSteps, *render); err != nil {
			log.Fatalf("episode %d: %v", ep, err)
		}
	}
}

// #endregion main

// #region episode

func runEpisode(ctx context.Context, environment *env.Env, cfg schema.Config, ep, maxSteps int, render bool) error {
	start := time.Now()

	obs, err := environment.Reset(ctx)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	fmt.Printf("--- episode %d | assignment %d ---\n", ep, obs.Assignment)
	if render {
		environment.Render(ctx, os.Stdout)
	}

	done := false
	steps := 0
	for !done && steps < maxSteps {
		action := firstPermitted(obs, cfg)
		if action < 0 {
			log.Printf("[ROLLOUT] episode %d: no permitted action at step %d", ep, steps+1)
			break
		}

		res, err := environment.Step(ctx, action)
		if err != nil {
			return fmt.Errorf("step %d: %w", steps+1, err)
		}
		obs = res.Observation
		done = res.Done
		steps++

		if v := verify.Check(obs, cfg); !v.Passed {
			return fmt.Errorf("step %d: %s", steps, v.Reason)
		}
		if render {
			environment.Render(ctx, os.Stdout)
		}
		fmt.Printf("step %d: action=%d reward=%d\n", steps, action, res.Reward)
	}

	if done {
		fmt.Printf("episode %d solved in %d steps (%s)\n", ep, steps, time.Since(start).Round(time.Millisecond))
	} else {
		fmt.Printf("episode %d unsolved after %d steps\n", ep, steps)
	}
	return nil
}

// #endregion episode

// #region policy

// firstPermitted scans the mask for the lowest permitted action inside the
// action space, or -1 when nothing is permitted.
func firstPermitted(obs encoding.Observation, cfg schema.Config) int32 {
	limit := cfg.ActionSpaceSize()
	for i := 0; i < limit && i < len(obs.PermittedActions); i++ {
		if obs.PermittedActions[i] == 1 {
			return int32(i)
		}
	}
	return -1
}

// #endregion policy

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
