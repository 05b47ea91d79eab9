// Command skelet0wn is the driver program for the workflow engine: it
// loads a declarative workflow document, builds its node tree, and runs
// it against a MongoDB-backed store and a Docker container runtime,
// mirroring the teacher's cmd/warren entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skelet0wn-go/skelet0wn/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skelet0wn",
	Short: "skelet0wn - a workflow engine for containerized security tools",
	Long: `skelet0wn composes externally-provided command-line security tools
into a tree of execution nodes, runs each tool inside an isolated
container, and chains them through a shared document database and a
shared filesystem.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
