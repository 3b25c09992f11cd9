package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"drone-spoof/internal/config"
	"drone-spoof/internal/sim"
	"drone-spoof/internal/zone"
)

// virtualClock advances by step on every reading so headless runs get
// footprint timestamps that match simulated time.
type virtualClock struct {
	now  time.Time
	step time.Duration
}

func (c *virtualClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func printFootprints(w io.Writer, entries []sim.Footprint) {
	for _, fp := range entries {
		fmt.Fprintf(w, "[%s] %-6s %7dms  %s\n", fp.Timestamp, fp.Kind, fp.SimTimeMs, fp.Message)
	}
}

func newRunCommand(load loader) *cobra.Command {
	var (
		maxTicks int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Simulate a scenario headless and print its footprint log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			sc, ok := cfg.Catalog()[args[0]]
			if !ok {
				return fmt.Errorf("%w: %s", sim.ErrUnknownScenario, args[0])
			}
			clock := &virtualClock{now: time.Now(), step: sc.TickInterval}
			states := sim.Simulate(sc, clock, maxTicks)
			final := states[len(states)-1]
			logger.Info("run finished", "scenario", sc.Name, "phase", final.Phase, "ticks", len(states)-1, "elapsed_ms", final.ElapsedMs)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(final.View())
			}
			printFootprints(out, final.Footprints.Entries())
			fmt.Fprintf(out, "\n%s: %s\n", final.Phase, final.Status)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 10000, "stop after this many ticks if the run has not completed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the final state as JSON")
	return cmd
}

func newZoneCommand(load loader) *cobra.Command {
	var keys string
	cmd := &cobra.Command{
		Use:   "zone",
		Short: "Replay a key sequence against the restricted-zone arena",
		Long: "Replays WASD keys (e.g. \"dddddsss\") against the arena, then lets any\n" +
			"forced flight play out, and prints the resulting footprints.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			zc := cfg.Zone
			clock := &virtualClock{now: time.Now(), step: zc.TickInterval}
			s := zone.NewSession(zc)
			for _, key := range strings.Split(keys, "") {
				dx, dy, ok := zone.DirectionForKey(key)
				if !ok {
					continue
				}
				s = zone.Move(zc, s, dx, dy, clock.Now())
				for s.Mode == zone.ModeSpoofed {
					s = zone.Tick(zc, s, clock.Now())
				}
			}
			logger.Info("zone replay finished", "mode", s.Mode, "position", sim.FormatCoords(s.Position))

			out := cmd.OutOrStdout()
			printFootprints(out, s.Footprints.Entries())
			fmt.Fprintf(out, "\n%s at %s: %s\n", s.Mode, sim.FormatCoords(s.Position), s.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&keys, "keys", strings.Repeat("d", 36)+strings.Repeat("s", 15), "WASD key sequence to replay")
	return cmd
}

func newScenariosCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			catalog := cfg.Catalog()
			out := cmd.OutOrStdout()
			for _, name := range sim.Names(catalog) {
				sc := catalog[name]
				fmt.Fprintf(out, "%-12s %s (%d phases, tick %s)\n", name, sc.Title, len(sc.Rules), sc.TickInterval)
			}
			return nil
		},
	}
}

func newSchemaCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Write the JSON schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := buildSchema()
			if outPath == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(schema)
			}
			return writeSchema(outPath, schema)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "path to write the schema (stdout when empty)")
	return cmd
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	phaseType    = reflect.TypeOf(sim.Phase(0))
	kindType     = reflect.TypeOf(sim.Kind(""))
)

// schemaFor describes the types YAML reads as strings rather than by their
// Go kind.
func schemaFor(t reflect.Type) *jsonschema.Schema {
	switch t {
	case durationType:
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
			Description: "Go duration, e.g. 50ms or 1.5s",
		}
	case phaseType:
		var names []interface{}
		for p := sim.PhaseInactive; p <= sim.PhaseCompleted; p++ {
			names = append(names, p.String())
		}
		return &jsonschema.Schema{Type: "string", Enum: names}
	case kindType:
		return &jsonschema.Schema{Type: "string", Enum: []interface{}{
			string(sim.KindAuth), string(sim.KindWarn), string(sim.KindAttack), string(sim.KindSpoof),
		}}
	}
	return nil
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		Mapper:                    schemaFor,
	}
	schema := reflector.Reflect(new(config.File))
	schema.Title = "dronespoof configuration"
	schema.Description = "Server, log store, zone arena and extra scenarios"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
