// Package config provides functionality for parsing and validating
// extract job configuration files. Files may be JSON or YAML; the format
// is detected from the extension, falling back to content sniffing.
// Parsed documents are validated against the embedded JSON schema before
// being decoded into a popdata.Job.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/pkg/popdata"
)

//go:embed schema.json
var jobSchemaJSON string

// Supported format names.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	schemaOnce sync.Once
	jobSchema  *jsonschema.Schema
	schemaErr  error
)

// compiledSchema compiles the embedded job schema once.
func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(jobSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshaling embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("job.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		jobSchema, schemaErr = c.Compile("job.schema.json")
	})
	return jobSchema, schemaErr
}

// ParseJob parses and validates a job configuration file.
// The returned Result separates parse errors (unreadable file, bad syntax)
// from validation errors (schema violations); Job is set only when both
// passes succeed.
func ParseJob(path string) *Result {
	result := &Result{FilePath: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("cannot read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	result.Format = detectFormat(path, data)

	doc, perr := parseDocument(data, result.Format, path)
	if perr != nil {
		result.ParseErrors = append(result.ParseErrors, *perr)
		return result
	}

	result.ValidationErrors = validateDocument(doc)
	if len(result.ValidationErrors) > 0 {
		return result
	}

	job, perr := decodeJob(data, result.Format, path)
	if perr != nil {
		result.ParseErrors = append(result.ParseErrors, *perr)
		return result
	}
	result.Job = job
	return result
}

// detectFormat picks json or yaml from the file extension, falling back
// to content sniffing (a leading '{' means JSON).
func detectFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}
	return FormatYAML
}

// parseDocument parses raw bytes into a generic document for schema
// validation.
func parseDocument(data []byte, format, path string) (interface{}, *ParseError) {
	switch format {
	case FormatJSON:
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
		if err != nil {
			return nil, &ParseError{
				Path:    path,
				Line:    jsonErrorLine(data, err),
				Message: fmt.Sprintf("invalid JSON: %v", err),
				Type:    ErrorTypeSyntax,
			}
		}
		return doc, nil
	default:
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{
				Path:    path,
				Line:    yamlErrorLine(err),
				Message: fmt.Sprintf("invalid YAML: %v", err),
				Type:    ErrorTypeSyntax,
			}
		}
		return normalizeYAML(doc), nil
	}
}

// validateDocument validates a parsed document against the job schema.
func validateDocument(doc interface{}) []ValidationError {
	sch, err := compiledSchema()
	if err != nil {
		return []ValidationError{{Message: err.Error()}}
	}
	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return flattenValidationError(ve)
		}
		return []ValidationError{{Message: err.Error()}}
	}
	return nil
}

// flattenValidationError converts the nested jsonschema error into a flat
// list of leaf violations with instance paths.
func flattenValidationError(ve *jsonschema.ValidationError) []ValidationError {
	if len(ve.Causes) == 0 {
		return []ValidationError{{
			Path:    "/" + strings.Join(ve.InstanceLocation, "/"),
			Message: ve.Error(),
		}}
	}
	var out []ValidationError
	for _, cause := range ve.Causes {
		out = append(out, flattenValidationError(cause)...)
	}
	return out
}

// decodeJob decodes the file into the typed job struct. The document has
// already passed schema validation, so decode failures here are limited to
// type conversions the schema cannot express.
func decodeJob(data []byte, format, path string) (*popdata.Job, *ParseError) {
	var job popdata.Job
	var err error
	if format == FormatJSON {
		err = json.Unmarshal(data, &job)
	} else {
		err = yaml.Unmarshal(data, &job)
	}
	if err != nil {
		return nil, &ParseError{
			Path:    path,
			Message: fmt.Sprintf("cannot decode job: %v", err),
			Type:    ErrorTypeFormat,
		}
	}
	return &job, nil
}

// normalizeYAML converts YAML integer scalars to the JSON number form the
// schema validator expects, recursively.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	case int:
		return int64(t)
	default:
		return v
	}
}

// jsonErrorLine extracts a line number from a JSON syntax error offset.
func jsonErrorLine(data []byte, err error) int {
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return 0
	}
	line := 1
	for i := int64(0); i < syn.Offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
		}
	}
	return line
}

// yamlErrorLine extracts a line number from a yaml.v3 error, which embeds
// "line N:" in its message.
func yamlErrorLine(err error) int {
	msg := err.Error()
	idx := strings.Index(msg, "line ")
	if idx < 0 {
		return 0
	}
	var line int
	if _, serr := fmt.Sscanf(msg[idx:], "line %d", &line); serr != nil {
		return 0
	}
	return line
}
