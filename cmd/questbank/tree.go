package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/questbank/internal/service/taxonomy"
)

var (
	treeContentOnly bool
	treeRoot        string
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the active tag tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			var (
				nodes []*taxonomy.TreeNode
				err   error
			)
			switch {
			case treeRoot != "":
				nodes, err = a.services.Taxonomy.GetTreeByRootName(ctx, treeRoot)
			case treeContentOnly:
				nodes, err = a.services.Taxonomy.GetContentTree(ctx)
			default:
				nodes, err = a.services.Taxonomy.GetFullTree(ctx)
			}
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), nodes)
			return nil
		})
	},
}

func init() {
	treeCmd.Flags().BoolVar(&treeContentOnly, "content", false, "Only content tags")
	treeCmd.Flags().StringVar(&treeRoot, "root", "", "Only the subtree of the root with this name")
}

func printTree(w io.Writer, nodes []*taxonomy.TreeNode) {
	taxonomy.Walk(nodes, func(n *taxonomy.TreeNode, path []string) {
		fmt.Fprintf(w, "%s%-10s %s\n", strings.Repeat("  ", len(path)-1), n.Code, n.Name)
	})
}
