package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// testFixturePath returns the path to test fixtures
func testFixturePath(filename string) string {
	return filepath.Join("..", "..", "internal", "config", "testdata", filename)
}

// buildCLI builds the seerpop binary once per test run.
func buildCLI(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "seerpop")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	buildCmd.Dir = "."
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build CLI: %v\n%s", err, out)
	}
	return binaryPath
}

// runCLI runs the CLI binary and returns stdout, stderr, and exit code
func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmd := exec.Command(buildCLI(t), args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

func TestCLI_Help(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "--help")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	for _, want := range []string{"seerpop", "validate", "run", "version"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected help to contain %q", want)
		}
	}
}

func TestCLI_ValidateValidYAML(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "validate", testFixturePath("valid-config.yaml"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	if !strings.Contains(stdout, "valid") {
		t.Errorf("expected output to contain 'valid', got: %s", stdout)
	}
	if !strings.Contains(stdout, "yaml") {
		t.Errorf("expected output to mention 'yaml' format, got: %s", stdout)
	}
}

func TestCLI_ValidateValidJSON(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "validate", testFixturePath("valid-config.json"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	if !strings.Contains(stdout, "valid") {
		t.Errorf("expected output to contain 'valid', got: %s", stdout)
	}
}

func TestCLI_ValidateVerbose(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "validate", "--verbose", testFixturePath("valid-config.json"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	if !strings.Contains(stdout, "test-extract") {
		t.Errorf("expected verbose output to contain the job name, got: %s", stdout)
	}
}

func TestCLI_ValidateQuiet(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "validate", "--quiet", testFixturePath("valid-config.json"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	if strings.Contains(stdout, "Validating") {
		t.Errorf("expected quiet mode to suppress output, got: %s", stdout)
	}
}

func TestCLI_ValidateParseError(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", testFixturePath("invalid-json.json"))

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d (parse error), got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain 'Parse errors', got: %s", stderr)
	}
}

func TestCLI_ValidateValidationError(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", testFixturePath("invalid-missing-output.yaml"))

	if exitCode != ExitValidationError {
		t.Errorf("expected exit code %d (validation error), got %d", ExitValidationError, exitCode)
	}
	if !strings.Contains(stderr, "Validation errors") {
		t.Errorf("expected stderr to contain 'Validation errors', got: %s", stderr)
	}
}

func TestCLI_ValidateNonExistent(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", "nonexistent.yaml")

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d (parse error), got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to report the missing file, got: %s", stderr)
	}
}

func TestCLI_ValidateMissingArg(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate")

	if exitCode == ExitSuccess {
		t.Error("expected non-zero exit code for missing argument")
	}
	if !strings.Contains(stderr, "accepts 1 arg") {
		t.Errorf("expected error about missing argument, got: %s", stderr)
	}
}

// writeRunFixture writes a small dataset and a matching job file into a
// temp dir and returns the job path and the expected CSV output path.
func writeRunFixture(t *testing.T) (jobPath, csvPath string) {
	t.Helper()

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "us.txt")
	csvPath = filepath.Join(dir, "out.csv")

	rec := func(year int, state string, race, origin, sex, age int, pop int64) string {
		return fmt.Sprintf("%04d%-2s0100101%1d%1d%1d%02d%08d", year, state, race, origin, sex, age, pop)
	}
	data := strings.Join([]string{
		rec(2011, "AL", 1, 0, 1, 30, 1000),
		rec(2011, "AL", 1, 0, 2, 63, 412),
		rec(2012, "AK", 2, 1, 2, 85, 7),
	}, "\n") + "\n"
	if err := os.WriteFile(dataPath, []byte(data), 0o644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}

	job := fmt.Sprintf(`name: cli-run-test
input:
  type: file
  config:
    path: %s
years: [2011]
output:
  type: csv
  config:
    path: %s
`, dataPath, csvPath)
	jobPath = filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(jobPath, []byte(job), 0o644); err != nil {
		t.Fatalf("writing job file: %v", err)
	}
	return jobPath, csvPath
}

func TestCLI_RunEndToEnd(t *testing.T) {
	jobPath, csvPath := writeRunFixture(t)

	stdout, stderr, exitCode := runCLI(t, "run", jobPath)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			ExitSuccess, exitCode, stdout, stderr)
	}
	if !strings.Contains(stdout, "Records decoded: 3") {
		t.Errorf("expected decoded count in output, got: %s", stdout)
	}
	if !strings.Contains(stdout, "Records written: 2") {
		t.Errorf("expected written count in output, got: %s", stdout)
	}

	out, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("reading output CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Errorf("expected header plus 2 rows, got %d lines:\n%s", len(lines), out)
	}
}

func TestCLI_RunDryRun(t *testing.T) {
	jobPath, csvPath := writeRunFixture(t)

	stdout, stderr, exitCode := runCLI(t, "run", "--dry-run", jobPath)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	if !strings.Contains(stdout, "dry-run") {
		t.Errorf("expected output to mention dry-run mode, got: %s", stdout)
	}
	if _, err := os.Stat(csvPath); !os.IsNotExist(err) {
		t.Error("dry-run should not write the output file")
	}
}

func TestCLI_RunParseError(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "run", testFixturePath("invalid-json.json"))

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d (parse error), got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain 'Parse errors', got: %s", stderr)
	}
}

func TestCLI_RunUnknownModule(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.yaml")
	job := `name: bad-module
input:
  type: file
  config:
    path: us.txt
output:
  type: csv
  config:
    path: out.csv
`
	// Swap the input type to something the registry does not know.
	job = strings.Replace(job, "type: file", "type: carrier-pigeon", 1)
	if err := os.WriteFile(jobPath, []byte(job), 0o644); err != nil {
		t.Fatalf("writing job file: %v", err)
	}

	_, stderr, exitCode := runCLI(t, "run", jobPath)

	if exitCode != ExitValidationError && exitCode != ExitRuntimeError {
		t.Errorf("expected validation or runtime failure, got exit code %d", exitCode)
	}
	if stderr == "" {
		t.Error("expected an error message on stderr")
	}
}

func TestCLI_Version(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "version")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	for _, want := range []string{"Version:", "Commit:", "Build Date:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected output to contain %q, got: %s", want, stdout)
		}
	}
}
