package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftlang/riftcheck/internal/callgraph"
)

// graphCmd: riftcheck graph <snapshot.json>
var graphCmd = &cobra.Command{
	Use:   "graph <snapshot.json>",
	Short: "Print the call graph and its strongly connected components",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println("error: please provide exactly one AST snapshot path")
			os.Exit(1)
		}

		snap, err := loadSnapshot(args[0])
		if err != nil {
			logger.Fatal("Failed to load snapshot", zap.Error(err))
		}
		graph, err := callgraph.Build(snap)
		if err != nil {
			logger.Fatal("Failed to build call graph", zap.Error(err))
		}

		for _, id := range snap.FuncIDs() {
			edges := graph.Edges(id)
			if len(edges) == 0 {
				fmt.Printf("%s (no calls)\n", id)
				continue
			}
			fmt.Printf("%s\n", id)
			for _, e := range edges {
				if e.Kind == callgraph.EdgeExternal {
					fmt.Printf("  -> %s (external)\n", e.Qualified)
				} else {
					fmt.Printf("  -> %s\n", e.Callee)
				}
			}
		}

		fmt.Println()
		for i, scc := range callgraph.Decompose(graph) {
			label := ""
			if scc.Recursive {
				label = " (recursive)"
			}
			fmt.Printf("component %d%s:", i, label)
			for _, m := range scc.Members {
				fmt.Printf(" %s", m)
			}
			fmt.Println()
		}
	},
}
