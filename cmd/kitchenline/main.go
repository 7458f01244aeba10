package main

import (
	"os"

	"github.com/smartkubik/kitchenline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
