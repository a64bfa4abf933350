// Package registry provides module registries for input and output
// modules. This file registers the built-in module types.
package registry

import (
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/modules/input"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/modules/output"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/pkg/popdata"
)

func init() {
	RegisterInput("http", newHTTPInput)
	RegisterInput("file", newFileInput)
	RegisterOutput("csv", newCSVOutput)
	RegisterOutput("sqlite", newSQLiteOutput)
}

func newHTTPInput(cfg *popdata.ModuleConfig) (input.Module, error) {
	parsed, err := input.ParseHTTPConfig(cfg.Config)
	if err != nil {
		return nil, err
	}
	return input.NewHTTPFromConfig(parsed)
}

func newFileInput(cfg *popdata.ModuleConfig) (input.Module, error) {
	parsed, err := input.ParseFileConfig(cfg.Config)
	if err != nil {
		return nil, err
	}
	return input.NewFileFromConfig(parsed)
}

func newCSVOutput(cfg *popdata.ModuleConfig) (output.Module, error) {
	parsed, err := output.ParseCSVConfig(cfg.Config)
	if err != nil {
		return nil, err
	}
	return output.NewCSVFromConfig(parsed)
}

func newSQLiteOutput(cfg *popdata.ModuleConfig) (output.Module, error) {
	parsed, err := output.ParseSQLiteConfig(cfg.Config)
	if err != nil {
		return nil, err
	}
	return output.NewSQLiteFromConfig(parsed)
}
