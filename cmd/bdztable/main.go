// Bdztable prints a BDZ rank-pattern table: for every word value in [0, N),
// the number of 2-bit labels in a WORDSIZE-bit word that are not 3.
//
// Usage:
//
//	go run ./cmd/bdztable 256 8
//
// The table is written to standard error as comma-separated values, 16 per
// line. It is a code generation aid; the library computes the same table at
// init time.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/tamirms/bdzhash/internal/pattern"
)

const defaultPerLine = 16

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bdztable N WORDSIZE",
		Short: "Print a BDZ rank-pattern table",
		Long: `bdztable prints, for each i in [0, N), the number of 2-bit digits of i
among the lowest WORDSIZE/2 that are not 3.

N is the table size, usually 2^WORDSIZE.
WORDSIZE is the word width in bits, a positive even number up to 64.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runTable,
	}
	cmd.Flags().IntP("per-line", "l", defaultPerLine, "values per output line")
	return cmd
}

func runTable(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("parse N %q: %w", args[0], err)
	}
	wordBits, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("parse WORDSIZE %q: %w", args[1], err)
	}
	perLine, _ := cmd.Flags().GetInt("per-line")

	table, err := pattern.Generate(n, wordBits)
	if err != nil {
		return err
	}
	return pattern.Write(cmd.ErrOrStderr(), table, perLine)
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}
