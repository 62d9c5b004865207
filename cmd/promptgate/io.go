package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
)

// factsFile is the --facts document. Explicit facts and research-derived
// facts are merged; research patterns also feed the evaluator.
//
//	facts:
//	  - name: wavelength
//	    keywords: ["1064nm"]
//	    severity: critical
//	research:
//	  patterns: ["rust oxidation"]
//	  properties: {material: aluminum}
//	  descriptors: ["matte grey"]
type factsFile struct {
	Facts    []facts.CriticalFact `yaml:"facts"`
	Research *facts.Research      `yaml:"research"`
}

// loadFacts reads a facts document. An empty path yields an empty set.
func loadFacts(path string) (facts.FactSet, *facts.Research, error) {
	if path == "" {
		return facts.FactSet{}, nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return facts.FactSet{}, nil, fmt.Errorf("failed to read facts file %s: %w", path, err)
	}

	var doc factsFile
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return facts.FactSet{}, nil, fmt.Errorf("failed to parse facts file %s: %w", path, err)
	}

	set, err := facts.NewFactSet(doc.Facts...)
	if err != nil {
		return facts.FactSet{}, nil, fmt.Errorf("invalid facts in %s: %w", path, err)
	}
	if doc.Research != nil {
		set = set.Merge(facts.FromResearch(*doc.Research))
	}
	return set, doc.Research, nil
}

// loadVars reads template variables from a YAML mapping.
func loadVars(path string) (map[string]interface{}, error) {
	vars := map[string]interface{}{}
	if path == "" {
		return vars, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vars file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, &vars); err != nil {
		return nil, fmt.Errorf("failed to parse vars file %s: %w", path, err)
	}
	return vars, nil
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var content []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	if len(content) == 0 {
		return "", fmt.Errorf("no input")
	}
	return string(content), nil
}

// readFiles reads every path in order.
func readFiles(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		out = append(out, string(content))
	}
	return out, nil
}

// writeOutput encodes v as YAML to path, or to the command's stdout when
// path is empty.
func writeOutput(cmd *cobra.Command, path string, v interface{}) error {
	w := cmd.OutOrStdout()
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
