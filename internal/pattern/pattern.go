// Package pattern generates the rank-pattern tables used to count assigned
// vertices in packed 2-bit label words.
//
// A label word of wordBits bits holds wordBits/2 labels. Label value 3 marks
// an unassigned vertex; 0, 1 and 2 mark critical vertices. Entry i of a
// pattern table is the number of labels in word i that are not 3.
package pattern

import (
	"bufio"
	"fmt"
	"io"

	bdzerrors "github.com/tamirms/bdzhash/errors"
)

const (
	// maxWordBits bounds the word width; the word value is a uint64.
	maxWordBits = 64

	// unassigned is the 2-bit label that does not count towards rank.
	unassigned = 3
)

// ByteTable is the pattern table for 8-bit words (four labels per byte),
// the table the rank structure uses at query time.
var ByteTable = mustGenerate(256, 8)

func mustGenerate(n, wordBits int) [256]uint8 {
	t, err := Generate(n, wordBits)
	if err != nil {
		panic(err)
	}
	var out [256]uint8
	copy(out[:], t)
	return out
}

// Generate returns, for every word value i in [0, n), the count of 2-bit
// digits (i >> 2k) & 3, k in [0, wordBits/2), that differ from 3.
//
// n is usually 1 << wordBits so that every bit pattern has an entry. Returns
// ErrInvalidArgument if n <= 0, or if wordBits is not a positive even number
// no larger than 64.
func Generate(n, wordBits int) ([]uint8, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: table size %d must be positive", bdzerrors.ErrInvalidArgument, n)
	}
	if wordBits <= 0 || wordBits%2 != 0 || wordBits > maxWordBits {
		return nil, fmt.Errorf("%w: word size %d must be a positive even number <= %d",
			bdzerrors.ErrInvalidArgument, wordBits, maxWordBits)
	}

	digits := wordBits / 2
	table := make([]uint8, n)
	for i := range table {
		table[i] = countAssigned(uint64(i), digits)
	}
	return table, nil
}

// countAssigned counts the non-3 values among the lowest digits 2-bit digits of w.
func countAssigned(w uint64, digits int) uint8 {
	var count uint8
	for k := 0; k < digits; k++ {
		if (w>>(2*k))&3 != unassigned {
			count++
		}
	}
	return count
}

// Write formats table as comma-separated decimal values with a line break
// after every perLine values and after the last one.
func Write(w io.Writer, table []uint8, perLine int) error {
	if perLine <= 0 {
		return fmt.Errorf("%w: values per line %d must be positive", bdzerrors.ErrInvalidArgument, perLine)
	}
	bw := bufio.NewWriter(w)
	for i, v := range table {
		if _, err := fmt.Fprintf(bw, "%d", v); err != nil {
			return err
		}
		last := i == len(table)-1
		switch {
		case last:
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		case (i+1)%perLine == 0:
			if _, err := bw.WriteString(",\n"); err != nil {
				return err
			}
		default:
			if _, err := bw.WriteString(", "); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
