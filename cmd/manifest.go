package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftlang/riftcheck/internal/manifest"
)

// manifestCmd: riftcheck manifest <manifest.json> [qualified names...]
//
// With no names it just validates the document; with names it shows how
// each one resolves, which is the fastest way to debug a wildcard or
// default entry.
var manifestCmd = &cobra.Command{
	Use:   "manifest <manifest.json> [qualified names...]",
	Short: "Validate an effect manifest and explain name resolution",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: please provide a manifest path")
			os.Exit(1)
		}

		f, err := os.Open(args[0])
		if err != nil {
			logger.Fatal("Failed to open manifest", zap.Error(err))
		}
		defer f.Close()

		doc, err := manifest.Load(f)
		if err != nil {
			logger.Fatal("Invalid manifest", zap.Error(err))
		}
		fmt.Printf("%s: ok\n", args[0])

		for _, name := range args[1:] {
			set, res := doc.Resolve(name)
			if res == manifest.Unknown {
				fmt.Printf("%s: unknown\n", name)
				continue
			}
			fmt.Printf("%s: %s (via %s)\n", name, set, res)
		}
	},
}
