package main

import (
	"github.com/beedb-project/beedb/config"
	"github.com/beedb-project/beedb/internal/engine"
	"github.com/spf13/cobra"
)

var flagSQL string

// flagFormat is declared in repl.go and shared by both subcommands.

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a single SQL statement against --db and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := engine.Open(flagDBPath, config.Default())
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.NewSession().Exec(flagSQL)
		if err != nil {
			return err
		}
		printResult(res, flagFormat)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&flagSQL, "sql", "e", "", "SQL statement to run")
	queryCmd.Flags().StringVar(&flagFormat, "format", "table", "output format: table, csv, json")
	queryCmd.MarkFlagRequired("sql")
}
