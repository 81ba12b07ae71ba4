// Command beedb is the CLI front end for the core engine: a REPL and a
// one-shot query runner, both driving an engine.Database directly (no
// network hop, unlike beedbd).
//
// What/How: grounded on cuemby-warren's cmd/warren/main.go — a cobra
// root command carrying persistent flags, with subcommands registered in
// init() — adapted from warren's container-orchestrator verbs to beedb's
// two: repl and query. The REPL's own input loop and output formatting
// are grounded on _teacher_orig/cmd/repl/main.go, trimmed to the
// table/csv/json output formats and dropping its HTML/"beautiful"
// presentation modes, which have no engine.Result equivalent to drive
// them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagDBPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "beedb",
	Short: "beedb - a disk-resident, multi-user relational database engine",
	Long: `beedb is a teaching database engine: slotted-page storage, a
pluggable buffer pool, MVCC transactions, a rule-based logical optimizer,
and a Volcano-style execution engine, all reachable through SQL.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "beedb.db", "path to the database file")
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(queryCmd)
}
