package main

import (
	"os"

	"github.com/baobao-lyrics/baobao/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
