package main

import (
	"os"

	"github.com/evfleet/taxisim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
