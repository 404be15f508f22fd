package main

import (
	"os"

	"github.com/conneroisu/tabi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
