package main

import (
	"os"

	"github.com/jobcraft/jobcraft/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
