package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/mosaic.offsets/internal/qbits"
)

func runQbits(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("qbits", flag.ContinueOnError)
	reverse := fs.Bool("reverse", false, "Convert 2-bit codes back to 3-bit flags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	values := make([]int, fs.NArg())
	for i, a := range fs.Args() {
		v, err := strconv.ParseInt(a, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid mask %q: %w", a, err)
		}
		values[i] = int(v)
	}

	var out []int
	if *reverse {
		out = qbits.ReverseAll(values)
	} else {
		out = qbits.ForwardAll(values)
	}

	strs := make([]string, len(out))
	for i, v := range out {
		strs[i] = strconv.Itoa(v)
	}
	_, err := fmt.Fprintln(stdout, strings.Join(strs, " "))
	return err
}
