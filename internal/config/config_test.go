package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes content to a temp file with the given name and
// returns its path.
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validYAML = `name: seer-extract
description: 2011 female cohort
input:
  type: http
  config:
    url: https://seer.cancer.gov/popdata/yr1990_2023.singleages/us.1990_2023.singleages.adjusted.txt.gz
years: [2011]
filter:
  predicate:
    all:
      - {field: Race_Code, op: eq, value: 1}
      - {field: Sex_Code, op: eq, value: 2}
output:
  type: csv
  config:
    path: out.csv
decode:
  workers: 4
`

const validJSON = `{
  "name": "seer-extract",
  "input": {"type": "file", "config": {"path": "us.txt"}},
  "output": {"type": "sqlite", "config": {"path": "out.db"}}
}`

func TestParseJobValidYAML(t *testing.T) {
	path := writeConfig(t, "job.yaml", validYAML)
	result := ParseJob(path)

	if !result.IsValid() {
		t.Fatalf("ParseJob() errors = %v", result.AllErrors())
	}
	if result.Format != FormatYAML {
		t.Errorf("Format = %q, want yaml", result.Format)
	}
	job := result.Job
	if job == nil {
		t.Fatal("Job = nil")
	}
	if job.Name != "seer-extract" {
		t.Errorf("Name = %q, want seer-extract", job.Name)
	}
	if job.Input == nil || job.Input.Type != "http" {
		t.Errorf("Input = %+v, want http module", job.Input)
	}
	if job.Output == nil || job.Output.Type != "csv" {
		t.Errorf("Output = %+v, want csv module", job.Output)
	}
	if len(job.Years) != 1 || job.Years[0] != 2011 {
		t.Errorf("Years = %v, want [2011]", job.Years)
	}
	if job.Filter == nil || job.Filter.Predicate == nil {
		t.Fatalf("Filter = %+v, want structured predicate", job.Filter)
	}
	if job.Decode.Workers != 4 {
		t.Errorf("Decode.Workers = %d, want 4", job.Decode.Workers)
	}
}

func TestParseJobValidJSON(t *testing.T) {
	path := writeConfig(t, "job.json", validJSON)
	result := ParseJob(path)

	if !result.IsValid() {
		t.Fatalf("ParseJob() errors = %v", result.AllErrors())
	}
	if result.Format != FormatJSON {
		t.Errorf("Format = %q, want json", result.Format)
	}
	if result.Job.Input.Type != "file" {
		t.Errorf("Input.Type = %q, want file", result.Job.Input.Type)
	}
}

func TestParseJobFormatSniffing(t *testing.T) {
	jsonPath := writeConfig(t, "job.conf", validJSON)
	if got := ParseJob(jsonPath).Format; got != FormatJSON {
		t.Errorf("sniffed format = %q, want json", got)
	}
	yamlPath := writeConfig(t, "job2.conf", validYAML)
	if got := ParseJob(yamlPath).Format; got != FormatYAML {
		t.Errorf("sniffed format = %q, want yaml", got)
	}
}

func TestParseJobMissingFile(t *testing.T) {
	result := ParseJob(filepath.Join(t.TempDir(), "absent.yaml"))
	if len(result.ParseErrors) != 1 {
		t.Fatalf("ParseErrors = %v, want one IO error", result.ParseErrors)
	}
	if result.ParseErrors[0].Type != ErrorTypeIO {
		t.Errorf("Type = %q, want %q", result.ParseErrors[0].Type, ErrorTypeIO)
	}
}

func TestParseJobSyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "job.json", `{"name": "x",`},
		{"bad yaml", "job.yaml", "name: x\n  bad:\nindent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseJob(writeConfig(t, tt.file, tt.content))
			if len(result.ParseErrors) == 0 {
				t.Fatal("ParseErrors empty, want syntax error")
			}
			if result.ParseErrors[0].Type != ErrorTypeSyntax {
				t.Errorf("Type = %q, want %q", result.ParseErrors[0].Type, ErrorTypeSyntax)
			}
			if result.Job != nil {
				t.Error("Job set despite parse error")
			}
		})
	}
}

func TestParseJobValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"missing name",
			`{"input": {"type": "file"}, "output": {"type": "csv"}}`,
		},
		{
			"missing output",
			`{"name": "x", "input": {"type": "file"}}`,
		},
		{
			"module without type",
			`{"name": "x", "input": {"config": {}}, "output": {"type": "csv"}}`,
		},
		{
			"year out of range",
			`{"name": "x", "input": {"type": "file"}, "output": {"type": "csv"}, "years": [1492]}`,
		},
		{
			"duplicate years",
			`{"name": "x", "input": {"type": "file"}, "output": {"type": "csv"}, "years": [2011, 2011]}`,
		},
		{
			"unknown top-level key",
			`{"name": "x", "input": {"type": "file"}, "output": {"type": "csv"}, "bogus": 1}`,
		},
		{
			"workers out of range",
			`{"name": "x", "input": {"type": "file"}, "output": {"type": "csv"}, "decode": {"workers": 1000}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseJob(writeConfig(t, "job.json", tt.content))
			if len(result.ParseErrors) > 0 {
				t.Fatalf("ParseErrors = %v, want none", result.ParseErrors)
			}
			if len(result.ValidationErrors) == 0 {
				t.Fatal("ValidationErrors empty, want schema violation")
			}
			if result.Job != nil {
				t.Error("Job set despite validation errors")
			}
		})
	}
}

func TestParseJobYAMLIntegersValidate(t *testing.T) {
	// YAML integers must satisfy the schema's integer constraints, same as
	// JSON numbers.
	content := `name: x
input: {type: file}
output: {type: csv}
years: [2011, 2012]
`
	result := ParseJob(writeConfig(t, "job.yaml", content))
	if !result.IsValid() {
		t.Fatalf("ParseJob() errors = %v", result.AllErrors())
	}
	if len(result.Job.Years) != 2 {
		t.Errorf("Years = %v, want two entries", result.Job.Years)
	}
}
