// Package main provides the CLI entry point for the seerpop extract tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/config"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/logger"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/registry"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/runtime"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/pkg/popdata"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Run command flags
	dryRun  bool
	workers int

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seerpop",
	Short: "seerpop - SEER US population estimates extract tool",
	Long: `seerpop decodes the SEER single-age fixed-width US population dataset,
applies a declarative row filter, and writes the reduced table to an
output destination.

Jobs are described in JSON or YAML configuration files following the
input -> filter -> output pattern.

Examples:
  # Validate a job file
  seerpop validate job.yaml

  # Run an extract job
  seerpop run job.yaml

  # Run without writing output
  seerpop run --dry-run job.yaml`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetLevel(slog.LevelDebug)
		} else if quiet {
			logger.SetLevel(slog.LevelError)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <job-file>",
	Short: "Validate a job configuration file",
	Long: `Validate a job configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var runCmd = &cobra.Command{
	Use:   "run <job-file>",
	Short: "Run an extract job from a configuration file",
	Long: `Run an extract job defined in the configuration file.

The configuration file is first validated against the schema.
If validation fails, the job will not be executed.

Exit codes:
  0 - Job executed successfully
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
	Args: cobra.ExactArgs(1),
	Run:  runJob,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Decode and filter without writing output")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Override decode worker count (0 uses the job setting)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func runValidate(_ *cobra.Command, args []string) {
	jobPath := args[0]

	if !quiet {
		fmt.Printf("Validating job configuration: %s\n", jobPath)
	}

	result := config.ParseJob(jobPath)

	if len(result.ParseErrors) > 0 {
		printParseErrors(result.ParseErrors)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		printValidationErrors(result.ValidationErrors)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Printf("✓ Configuration is valid (format: %s)\n", result.Format)
		if verbose && result.Job != nil {
			fmt.Printf("  Job: %s\n", result.Job.Name)
			if result.Job.Description != "" {
				fmt.Printf("  Description: %s\n", result.Job.Description)
			}
			fmt.Printf("  Input: %s\n", result.Job.Input.Type)
			fmt.Printf("  Output: %s\n", result.Job.Output.Type)
		}
	}

	os.Exit(ExitSuccess)
}

func runJob(_ *cobra.Command, args []string) {
	jobPath := args[0]

	if !quiet {
		fmt.Printf("Loading job configuration: %s\n", jobPath)
	}

	result := config.ParseJob(jobPath)

	if len(result.ParseErrors) > 0 {
		printParseErrors(result.ParseErrors)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		printValidationErrors(result.ValidationErrors)
		os.Exit(ExitValidationError)
	}

	job := result.Job
	if !quiet {
		fmt.Printf("✓ Configuration loaded successfully (format: %s)\n", result.Format)
	}
	if workers > 0 {
		job.Decode.Workers = workers
	}

	inputModule, err := registry.BuildInput(job.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to create input module: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	outputModule, err := registry.BuildOutput(job.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to create output module: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	executor := runtime.NewExecutor(inputModule, outputModule, nil, dryRun)

	if !quiet {
		if dryRun {
			fmt.Println("Executing job (dry-run mode - output will not be written)...")
		} else {
			fmt.Println("Executing job...")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	execResult, err := executor.Execute(ctx, job)
	printExecutionResult(execResult, err)
	if err != nil {
		os.Exit(ExitRuntimeError)
	}
	os.Exit(ExitSuccess)
}

// printExecutionResult displays the job execution result.
func printExecutionResult(result *popdata.ExecutionResult, err error) {
	if result == nil {
		fmt.Fprintln(os.Stderr, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Job execution failed")
		if result.Error != nil {
			if result.Error.Stage != "" {
				fmt.Fprintf(os.Stderr, "  Stage: %s\n", result.Error.Stage)
			}
			fmt.Fprintf(os.Stderr, "  Error: %s\n", result.Error.Message)
		}
		return
	}

	if !quiet {
		fmt.Println("✓ Job executed successfully")
		fmt.Printf("  Status: %s\n", result.Status)
		fmt.Printf("  Records decoded: %d\n", result.RecordsDecoded)
		fmt.Printf("  Records retained: %d\n", result.RecordsRetained)
		if !dryRun {
			fmt.Printf("  Records written: %d\n", result.RecordsWritten)
		}
		if verbose {
			fmt.Printf("  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
		}
	}
}

func printParseErrors(errors []config.ParseError) {
	fmt.Fprintln(os.Stderr, "✗ Parse errors:")
	for _, err := range errors {
		var location string
		if err.Path != "" {
			location = err.Path
			if err.Line > 0 {
				location += fmt.Sprintf(":%d", err.Line)
			}
		}
		if location != "" {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
		}
		if verbose && err.Type != "" {
			fmt.Fprintf(os.Stderr, "    Type: %s\n", err.Type)
		}
	}
}

func printValidationErrors(errors []config.ValidationError) {
	fmt.Fprintln(os.Stderr, "✗ Validation errors:")
	for _, err := range errors {
		path := err.Path
		if path == "" {
			path = "/"
		}
		msg := err.Message
		if len(msg) > 80 && !verbose {
			msg = msg[:77] + "..."
		}
		fmt.Fprintf(os.Stderr, "  %s: %s\n", path, msg)
	}
	if !quiet {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Hint: Use --verbose for detailed error information")
	}
}
