package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftlang/riftcheck/formatter"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/manifest"
	"github.com/riftlang/riftcheck/verify"
)

var (
	manifestPath  string
	jsonOutput    bool
	outPath       string
	strictMode    bool
	noEnforce     bool
	denyDisproven bool
	noStatic      bool
	watchMode     bool
	workers       int
)

var verifyCmd = &cobra.Command{
	Use:   "verify <snapshot.json>",
	Short: "Run effect and contract verification over an AST snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println("error: please provide exactly one AST snapshot path")
			os.Exit(1)
		}
		snapPath := args[0]

		cfg, err := loadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		opts := cfg.options()
		applyFlags(cmd, &opts)
		if manifestPath == "" {
			manifestPath = cfg.Manifest
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if watchMode {
			if err := watchAndVerify(ctx, snapPath, manifestPath, opts); err != nil {
				logger.Fatal("Watch mode failed", zap.Error(err))
			}
			return
		}

		report, err := runPass(ctx, snapPath, manifestPath, opts)
		if err != nil {
			logger.Fatal("Verification failed", zap.Error(err))
		}
		if err := emitReport(report); err != nil {
			logger.Fatal("Failed to write output", zap.Error(err))
		}
		if report.Failed() {
			os.Exit(1)
		}
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Effect manifest path")
	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report in JSON format")
	verifyCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	verifyCmd.Flags().BoolVar(&strictMode, "strict", false, "Treat unresolved external calls as diagnostics instead of assuming all effects")
	verifyCmd.Flags().BoolVar(&noEnforce, "no-enforce", false, "Downgrade effect violations from errors to warnings")
	verifyCmd.Flags().BoolVar(&denyDisproven, "deny-disproven", false, "Treat disproven contracts as errors")
	verifyCmd.Flags().BoolVar(&noStatic, "no-static", false, "Skip static contract verification")
	verifyCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-run verification when inputs change")
	verifyCmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (0 = number of CPUs)")
}

// applyFlags layers explicitly set flags over config-file values.
func applyFlags(cmd *cobra.Command, opts *verify.Options) {
	if cmd.Flags().Changed("strict") {
		opts.Strict = strictMode
	}
	if cmd.Flags().Changed("no-enforce") {
		opts.EnforceEffects = !noEnforce
	}
	if cmd.Flags().Changed("deny-disproven") {
		opts.DenyDisproven = denyDisproven
	}
	if cmd.Flags().Changed("no-static") {
		opts.Static = !noStatic
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = workers
	}
}

func loadSnapshot(path string) (*ir.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	snap, err := ir.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return snap, nil
}

func loadResolver(path string) (manifest.Resolver, error) {
	if path == "" {
		return manifest.Static{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	doc, err := manifest.Load(f)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return doc, nil
}

func runPass(ctx context.Context, snapPath, manifestPath string, opts verify.Options) (*verify.Report, error) {
	snap, err := loadSnapshot(snapPath)
	if err != nil {
		return nil, err
	}
	resolver, err := loadResolver(manifestPath)
	if err != nil {
		return nil, err
	}

	if opts.Static {
		var withContracts int64
		for _, id := range snap.FuncIDs() {
			f, _ := snap.Function(id)
			if len(f.Postconditions) > 0 {
				withContracts++
			}
		}
		if withContracts > 0 {
			bar := progressbar.Default(withContracts, "verifying contracts")
			var done atomic.Int64
			opts.OnFunction = func(ir.FuncID) {
				done.Add(1)
				_ = bar.Set64(done.Load())
			}
		}
	}

	return verify.Run(ctx, logger, snap, resolver, opts)
}

func emitReport(report *verify.Report) error {
	if !jsonOutput {
		fmt.Print(formatter.Format(report, verbose))
		return nil
	}

	data, err := json.MarshalIndent(jsonView(report), "", "  ")
	if err != nil {
		return err
	}
	if outPath != "" {
		return os.WriteFile(outPath, data, 0o644)
	}
	fmt.Println(string(data))
	return nil
}
