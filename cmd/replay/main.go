// Command replay re-runs a recorded episode fixture through a real
// environment and verifies the trace against its expectations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/progsynth/ast-env/go-env/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	outcomes, err := replay.Run(context.Background(), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	for _, o := range outcomes {
		fmt.Printf("step %d: action=%d reward=%d done=%v nodes=%d edges=%d\n",
			o.Step, o.Action, o.Reward, o.Done, o.LiveNodes, o.LiveEdges)
	}

	mismatches := replay.Compare(f, outcomes)
	if len(mismatches) > 0 {
		for _, m := range mismatches {
			fmt.Fprintf(os.Stderr, "MISMATCH: %s\n", m)
		}
		os.Exit(1)
	}
	fmt.Printf("PASS: %d steps match %s\n", len(outcomes), f.Description)
}

// #endregion main
