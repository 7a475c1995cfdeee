// questbank 题库分类标签管理
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	timeout    time.Duration
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "questbank",
	Short: "Question bank taxonomy service",
	Long: `questbank manages the hierarchical tag taxonomy used to classify exam questions.

Content tags are organised per discipline ("1.2.3"), exam sources ("V1") and
grade levels ("N1") are flat leaf-only namespaces.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Config file (yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout for one-shot commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
