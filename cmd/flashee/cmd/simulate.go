package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/donocean/go-flashee"
	"github.com/donocean/go-flashee/config"
	"github.com/donocean/go-flashee/simflash"
	"github.com/donocean/go-flashee/verify"
)

// step is one write in the scripted crash-tolerance campaign.
type step struct {
	id  flashee.VariableID
	val []byte
}

// simulateCmd runs a crash-tolerance campaign: replay a scripted sequence
// of writes against a RAM-backed device, injecting a simulated power loss
// after every flash primitive in turn, and on each injected crash assert
// that a fresh mount still returns either the value each id held before
// the interrupted write or the value it was being set to — never
// something else.
func simulateCmd() *cobra.Command {
	var script []string

	c := &cobra.Command{
		Use:   "simulate",
		Short: "Run a crash-injection campaign against a scripted write sequence",
		RunE: func(c *cobra.Command, args []string) error {
			manifest, err := config.Load(manifestFilepath)
			if err != nil {
				return err
			}

			cfg, err := manifest.ToEngineConfig()
			if err != nil {
				return err
			}

			steps, err := parseScript(script)
			if err != nil {
				return err
			}

			return runCampaign(cfg, manifest.Catalog(), steps, int(imageSize))
		},
	}

	c.Flags().StringSliceVar(&script, "write", nil, "id:hexvalue pair to write, repeatable; steps run in order")

	return c
}

func parseScript(raw []string) ([]step, error) {
	steps := make([]step, 0, len(raw))

	for _, entry := range raw {
		idStr, hexStr, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("simulate: malformed --write entry %q, want id:hexvalue", entry)
		}

		id, err := strconv.ParseUint(idStr, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("simulate: bad id in %q: %w", entry, err)
		}

		val, err := hex.DecodeString(hexStr)
		if err != nil {
			return nil, fmt.Errorf("simulate: bad hex value in %q: %w", entry, err)
		}

		steps = append(steps, step{id: flashee.VariableID(id), val: val})
	}

	return steps, nil
}

// runCampaign replays steps once uninterrupted to find a crash-free
// primitive count, then replays the whole script once per primitive,
// injecting a crash at that point, remounting, and checking consistency.
func runCampaign(cfg flashee.Config, catalog flashee.Catalog, steps []step, size int) error {
	baseline := simflash.NewMemory(size, cfg.SectorSize)

	e := flashee.NewEngine(baseline, catalog)
	if err := e.Init(cfg); err != nil {
		return err
	}

	for _, s := range steps {
		if err := e.Write(s.id, s.val); err != nil {
			return fmt.Errorf("simulate: baseline write id=%d failed: %w", s.id, err)
		}
	}

	totalPrimitives := baseline.PrimitiveCount()

	passed, failed := 0, 0

	for crashAt := 1; crashAt <= totalPrimitives; crashAt++ {
		ok, detail := runOneCrash(cfg, catalog, steps, size, crashAt)
		if ok {
			passed++
		} else {
			failed++
			fmt.Printf("FAIL crash-after=%d: %s\n", crashAt, detail)
		}
	}

	fmt.Printf("\ncampaign complete: %s points tested, %s passed, %s failed\n",
		humanize.Comma(int64(totalPrimitives)), humanize.Comma(int64(passed)), humanize.Comma(int64(failed)))

	if failed > 0 {
		return fmt.Errorf("simulate: %d crash points left the store inconsistent", failed)
	}

	return nil
}

// runOneCrash replays steps against a fresh device, injecting a crash
// after the crashAt-th flash primitive, then remounts and checks every
// id's value is either its pre-step or post-step value.
func runOneCrash(cfg flashee.Config, catalog flashee.Catalog, steps []step, size, crashAt int) (ok bool, detail string) {
	dev := simflash.NewMemory(size, cfg.SectorSize).WithCrashAfter(crashAt)

	e := flashee.NewEngine(dev, catalog)

	settled := map[flashee.VariableID][]byte{} // writes that fully completed
	var interruptedID flashee.VariableID
	var interruptedVal []byte
	var haveInterrupted bool

	crashed := func() (didCrash bool) {
		defer func() {
			if recover() != nil {
				didCrash = true
			}
		}()

		if err := e.Init(cfg); err != nil {
			panic(err)
		}

		for _, s := range steps {
			interruptedID, interruptedVal, haveInterrupted = s.id, s.val, true

			if err := e.Write(s.id, s.val); err != nil {
				panic(err)
			}

			settled[s.id] = s.val
			haveInterrupted = false
		}

		return false
	}()

	if !crashed {
		// crashAt exceeded the number of primitives this script touches.
		return true, ""
	}

	fresh := flashee.NewEngine(dev, catalog)
	if err := fresh.Init(cfg); err != nil {
		return false, fmt.Sprintf("remount failed: %v", err)
	}

	snap, err := fresh.Inspect()
	if err != nil {
		return false, fmt.Sprintf("inspect failed: %v", err)
	}

	if verr := verify.Check(snap); verr != nil {
		return false, fmt.Sprintf("invariant violation: %v", verr)
	}

	for id, expected := range settled {
		if haveInterrupted && id == interruptedID {
			// checked below: may hold either the prior or the target value
			continue
		}

		got, err := fresh.Read(id)
		if err != nil {
			return false, fmt.Sprintf("read id=%d after crash failed: %v", id, err)
		}

		if diff := cmp.Diff(expected, got); diff != "" {
			return false, fmt.Sprintf("id=%d value mismatch after crash (-want +got):\n%s", id, diff)
		}
	}

	if haveInterrupted {
		got, err := fresh.Read(interruptedID)

		priorVal, hadPrior := settled[interruptedID]

		switch {
		case err != nil && hadPrior:
			return false, fmt.Sprintf("id=%d unreadable after interrupted write, had prior value: %v", interruptedID, err)
		case err == nil && hadPrior && cmp.Diff(priorVal, got) != "" && cmp.Diff(interruptedVal, got) != "":
			return false, fmt.Sprintf("id=%d value after crash matches neither prior nor target write", interruptedID)
		case err == nil && !hadPrior && cmp.Diff(interruptedVal, got) != "":
			return false, fmt.Sprintf("id=%d value after crash doesn't match the never-written-before target write", interruptedID)
		}
	}

	return true, ""
}
