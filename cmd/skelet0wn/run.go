package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skelet0wn-go/skelet0wn/pkg/containerrt"
	"github.com/skelet0wn-go/skelet0wn/pkg/log"
	"github.com/skelet0wn-go/skelet0wn/pkg/metrics"
	"github.com/skelet0wn-go/skelet0wn/pkg/store"
	"github.com/skelet0wn-go/skelet0wn/pkg/tools/nmap"
	"github.com/skelet0wn-go/skelet0wn/pkg/types"
	"github.com/skelet0wn-go/skelet0wn/pkg/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a tree from a YAML workflow document and execute it",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "workflow YAML file (required)")
	runCmd.Flags().String("output-dir", "./output", "root output directory for node-private directories")
	runCmd.Flags().String("shared-dir", "./shared", "shared directory mounted into every container")
	runCmd.Flags().String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	runCmd.Flags().String("mongo-db", "skelet0wn", "MongoDB database name")
	runCmd.Flags().String("run-id", "", "run identifier (defaults to a generated UUID)")
	runCmd.Flags().String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	_ = runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	sharedDir, _ := cmd.Flags().GetString("shared-dir")
	mongoURI, _ := cmd.Flags().GetString("mongo-uri")
	mongoDB, _ := cmd.Flags().GetString("mongo-db")
	runID, _ := cmd.Flags().GetString("run-id")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if runID == "" {
		runID = uuid.NewString()
	}

	ctx := context.Background()

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	runtime, err := containerrt.NewDockerRuntime()
	if err != nil {
		return fmt.Errorf("connecting to container runtime: %w", err)
	}

	db, err := store.Connect(ctx, mongoURI, mongoDB)
	if err != nil {
		return fmt.Errorf("connecting to MongoDB: %w", err)
	}
	defer db.Close(ctx)

	factories := workflow.ParserRegistry{
		"nmap": {
			Interface: types.InterfaceDescriptor{
				Inputs: []types.InputSpec{
					{Name: "target", Mandatory: true},
					{Name: "ports", Mandatory: false},
				},
				Command: []string{"nmap", "-oX", "/mnt/skelet0wn/output.xml", "-p", "{{.ports}}", "{{.target}}"},
				Image:   types.ImageSpec{Context: "./tools/nmap", Tag: "skelet0wn/nmap:latest"},
			},
			Parser: nmap.NewParser(),
		},
	}

	transforms := workflow.TransformRegistry{
		"joinIPv4": func(docs []map[string]interface{}) interface{} {
			ips := make([]string, 0, len(docs))
			for _, d := range docs {
				if ip, ok := d["IP"].(map[string]interface{}); ok {
					if v, ok := ip["ipv4"].(string); ok {
						ips = append(ips, v)
					}
				}
			}
			return strings.Join(ips, " ")
		},
	}

	root, err := workflow.LoadFile(file, factories, transforms, runtime)
	if err != nil {
		return fmt.Errorf("loading workflow: %w", err)
	}

	if err := root.PrepareEnvironment(ctx, outputDir, sharedDir, "n0"); err != nil {
		return fmt.Errorf("preparing environment: %w", err)
	}

	start := time.Now()
	runErr := root.Run(ctx, db, runID)
	log.Logger.Info().
		Str("run_id", runID).
		Dur("duration", time.Since(start)).
		Err(runErr).
		Msg("workflow run finished")

	return runErr
}
