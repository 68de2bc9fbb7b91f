package main

import (
	"os"

	"github.com/chartquery/chartquery/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
