package main

import (
	"os"

	"github.com/video-stream/subbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
