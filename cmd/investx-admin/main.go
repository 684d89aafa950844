package main

import (
	"os"

	"github.com/rtirumala2025/investx/cmd/investx-admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
