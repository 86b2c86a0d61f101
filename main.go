package main

import (
	"os"

	"slidecast/cmd"
)

// @title        Slidecast API
// @version      1.0
// @description  Script-to-slideshow pipeline: batched image generation, audio alignment, video render and export.
// @BasePath     /
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
