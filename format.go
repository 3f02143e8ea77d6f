package main

import (
	"fmt"
	"os"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printKV prints an aligned key/value line to stdout, skipping empty values.
func printKV(key, value string) {
	if value == "" {
		return
	}

	fmt.Printf("%-14s %s\n", key+":", value)
}
