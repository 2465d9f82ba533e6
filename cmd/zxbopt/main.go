package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/boriel/boriel-basic/pkg/config"
	"github.com/boriel/boriel-basic/pkg/peephole"
	"github.com/boriel/boriel-basic/pkg/registry"
	"github.com/boriel/boriel-basic/pkg/trace"
	"github.com/boriel/boriel-basic/pkg/version"
)

var (
	configPath     string
	rulesDir       string
	level          int
	levelSet       bool
	maxPasses      int
	maxPassesSet   bool
	maxRewrites    int
	maxRewritesSet bool
	traceFlag      bool
	traceFlagSet   bool
	disabledFlags  []int
	outputFile     string
)

var rootCmd = &cobra.Command{
	Use:   "zxbopt",
	Short: "Peephole optimizer for Z80 assembly generated from BASIC " + version.String(),
	Long: `zxbopt - peephole optimizer for Z80 assembly
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Rewrites a generated Z80 assembly listing to fixed point using a loaded set
of pattern/predicate/replacement rules, organized by optimization level.

EXAMPLES:
  zxbopt optimize out.asm                  # optimize and print to stdout
  zxbopt optimize out.asm -o out.opt.asm   # optimize to a file
  zxbopt optimize out.asm --level 2 --trace
  zxbopt rules list --rules-dir ./rules
  zxbopt rules check --rules-dir ./rules`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "zxbopt.toml", "path to a TOML configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&rulesDir, "rules-dir", "", "directory of .rule files (overrides config)")
	rootCmd.PersistentFlags().IntVar(&level, "level", 0, "optimization level (overrides config)")
	rootCmd.PersistentFlags().IntVar(&maxPasses, "max-passes", 0, "maximum driver passes (overrides config)")
	rootCmd.PersistentFlags().IntVar(&maxRewrites, "max-rewrites", 0, "maximum rewrites per unit (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "emit a rewrite trace to stderr")
	rootCmd.PersistentFlags().IntSliceVar(&disabledFlags, "disable", nil, "rule OFLAG to disable (repeatable)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		levelSet = cmd.Flags().Changed("level")
		maxPassesSet = cmd.Flags().Changed("max-passes")
		maxRewritesSet = cmd.Flags().Changed("max-rewrites")
		traceFlagSet = cmd.Flags().Changed("trace")
	}

	optimizeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(optimizeCmd, rulesCmd, versionCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesCheckCmd)
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [file]",
	Short: "Run the peephole optimizer over an assembly listing",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		source, err := readInput(args)
		if err != nil {
			return err
		}

		reg, err := registry.New(cfg.RulesDir)
		if err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}

		driverCfg := peephole.Config{
			Level:              cfg.OptimizationLevel,
			DisabledFlags:      cfg.DisabledFlagSet(),
			MaxPasses:          cfg.MaxPasses,
			MaxRewritesPerUnit: cfg.MaxRewritesPerUnit,
		}
		driver := peephole.NewDriver(reg, driverCfg)
		collector := trace.NewCollector(cfg.Trace)

		out, err := driver.Optimize(context.Background(), source, collector)
		if _, thrashing := err.(*peephole.ThrashingError); err != nil && !thrashing {
			return fmt.Errorf("optimizing: %w", err)
		} else if thrashing {
			fmt.Fprintln(os.Stderr, "warning:", err)
		}

		if cfg.Trace {
			for _, line := range collector.WriteLines() {
				fmt.Fprintln(os.Stderr, line)
			}
		}

		return writeOutput(out)
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the loaded rule set",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every loaded rule, its level and flag",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		reg, err := registry.New(cfg.RulesDir)
		if err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
		for _, r := range reg.All() {
			fmt.Printf("OFLAG %-4d OLEVEL %-2d  %s\n", r.Flag, r.Level, r.Source)
		}
		return nil
	},
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the rule set without optimizing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		reg, err := registry.New(cfg.RulesDir)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d rule(s) loaded from %s\n", len(reg.All()), cfg.RulesDir)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func resolveConfig() (config.Config, error) {
	var fileCfg config.Config
	if _, err := os.Stat(configPath); err == nil {
		fileCfg, err = config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	over := config.Overrides{}
	if levelSet {
		over.OptimizationLevel = &level
	}
	if maxPassesSet {
		over.MaxPasses = &maxPasses
	}
	if maxRewritesSet {
		over.MaxRewritesPerUnit = &maxRewrites
	}
	if traceFlagSet {
		over.Trace = &traceFlag
	}
	if rulesDir != "" {
		over.RulesDir = &rulesDir
	}

	cfg := config.Resolve(fileCfg, over)
	if len(disabledFlags) > 0 {
		cfg.DisabledFlags = disabledFlags
	}
	return cfg, nil
}

func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(b), nil
}

func writeOutput(text string) error {
	if outputFile == "" {
		_, err := fmt.Println(text)
		return err
	}
	return os.WriteFile(outputFile, []byte(text+"\n"), 0o644)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
