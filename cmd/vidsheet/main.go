package main

import (
	"fmt"
	"os"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vidsheet: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
