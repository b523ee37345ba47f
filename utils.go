package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var errc = color.New(color.BgRed, color.FgWhite).PrintfFunc()

func oerr(msg string) {
	errc("\tERROR: " + msg + " ")
	fmt.Println()
	fmt.Println("Run 'split-ledger --help' for usage.")
	fmt.Println()
}

// banner prints a short colored tag followed by a plain message, the way the
// prompt shows rows.
func banner(w io.Writer, attr color.Attribute, tag, format string, args ...any) {
	color.New(attr, color.FgBlack).Fprintf(w, " %s ", tag)
	fmt.Fprintf(w, " "+format+"\n", args...)
}
