package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/iacscan/iacscan/internal/adapters/inbound/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
