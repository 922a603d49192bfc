package main

import (
	"context"
	"os"

	"vocalfx/cmd"
	"vocalfx/internal/log"
	"vocalfx/pkg/build"
)

func main() {
	// Missing build metadata only affects --version output.
	if err := build.Initialize(); err != nil {
		log.Debugf("build info incomplete: %v", err)
	}

	if err := cmd.Execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}
