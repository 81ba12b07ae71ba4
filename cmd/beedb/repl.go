package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/beedb-project/beedb/config"
	"github.com/beedb-project/beedb/internal/engine"
	"github.com/spf13/cobra"
)

var flagFormat string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive SQL REPL against --db",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := engine.Open(flagDBPath, config.Default())
		if err != nil {
			return err
		}
		defer db.Close()
		runREPL(db)
		return nil
	},
}

func init() {
	replCmd.Flags().StringVar(&flagFormat, "format", "table", "output format: table, csv, json")
}

// runREPL reads statements terminated by ';' from stdin, runs each
// through its own autocommit session unless the user has issued BEGIN,
// and prints results in the requested format.
func runREPL(db *engine.Database) {
	sess := db.NewSession()
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 1024), 4*1024*1024)

	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}

	var buf strings.Builder
	if interactive {
		fmt.Println("beedb REPL. Terminate statements with ';'. Ctrl-D to quit.")
	}
	for {
		if interactive {
			if buf.Len() == 0 {
				fmt.Print("beedb> ")
			} else {
				fmt.Print(" ... ")
			}
		}
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		buf.WriteString(line)
		buf.WriteString(" ")
		if !strings.HasSuffix(line, ";") {
			continue
		}
		q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(buf.String()), ";"))
		buf.Reset()

		res, err := sess.Exec(q)
		if err != nil {
			fmt.Println("ERR:", err)
			continue
		}
		printResult(res, flagFormat)
	}
}

func printResult(res *engine.Result, format string) {
	if res == nil || len(res.Columns) == 0 {
		fmt.Println("OK")
		return
	}
	switch format {
	case "csv":
		printCSV(res)
	case "json":
		printJSON(res)
	default:
		printTable(res)
	}
}

func printTable(res *engine.Result) {
	width := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		width[i] = len(c)
	}
	cells := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			s := cell(v)
			cells[i][j] = s
			if len(s) > width[j] {
				width[j] = len(s)
			}
		}
	}
	for i, c := range res.Columns {
		fmt.Print(padRight(c, width[i]))
		if i < len(res.Columns)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
	for i := range res.Columns {
		fmt.Print(strings.Repeat("-", width[i]))
		if i < len(res.Columns)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
	for _, row := range cells {
		for i, s := range row {
			fmt.Print(padRight(s, width[i]))
			if i < len(row)-1 {
				fmt.Print("  ")
			}
		}
		fmt.Println()
	}
}

func printCSV(res *engine.Result) {
	fmt.Println(strings.Join(res.Columns, ","))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		fmt.Println(strings.Join(cells, ","))
	}
}

func printJSON(res *engine.Result) {
	fmt.Println("[")
	for i, row := range res.Rows {
		fmt.Print("  {")
		for j, v := range row {
			if j > 0 {
				fmt.Print(", ")
			}
			fmt.Printf("%q: %s", res.Columns[j], jsonValue(v))
		}
		fmt.Print("}")
		if i < len(res.Rows)-1 {
			fmt.Println(",")
		} else {
			fmt.Println()
		}
	}
	fmt.Println("]")
}

func jsonValue(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
