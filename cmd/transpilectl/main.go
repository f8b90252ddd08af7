package main

import (
	"os"

	"github.com/EricRabil/vue-cli/internal/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
