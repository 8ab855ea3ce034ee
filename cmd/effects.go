package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftlang/riftcheck/formatter"
)

// effectsCmd: riftcheck effects <snapshot.json>
var effectsCmd = &cobra.Command{
	Use:   "effects <snapshot.json>",
	Short: "Print the computed transitive effect set of every function",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println("error: please provide exactly one AST snapshot path")
			os.Exit(1)
		}

		cfg, err := loadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		opts := cfg.options()
		opts.Static = false
		if manifestPath == "" {
			manifestPath = cfg.Manifest
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report, err := runPass(ctx, args[0], manifestPath, opts)
		if err != nil {
			logger.Fatal("Effect propagation failed", zap.Error(err))
		}
		fmt.Print(formatter.FormatEffects(report))
	},
}

func init() {
	effectsCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Effect manifest path")
}
