package main

import (
	"os"

	"github.com/kverlan/seshat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
