package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mbarberony/localrag/internal/cli"
	"github.com/mbarberony/localrag/internal/vectorstore"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("localrag\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", vectorstore.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", vectorstore.DriverName)
		os.Exit(0)
	}

	// stdout may carry the MCP protocol; diagnostics go to stderr.
	log.SetOutput(os.Stderr)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
