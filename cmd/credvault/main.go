package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, bad.Sprint("Error: ")+err.Error())
		os.Exit(1)
	}
}
