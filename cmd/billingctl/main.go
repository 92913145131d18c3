package main

import (
	"os"
	"time"

	"github.com/freelanceops/billing/internal/cli"
)

func init() {
	time.Local = time.UTC
}

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
