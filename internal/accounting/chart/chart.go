// Package chart loads chart-of-accounts definitions used to seed the ledger.
package chart

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
)

//go:embed default.yaml
var defaultChart []byte

// Definition describes one account to create.
type Definition struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

type document struct {
	Accounts []Definition `yaml:"accounts"`
}

// Default returns the embedded retail chart.
func Default() ([]Definition, error) {
	return Load(bytes.NewReader(defaultChart))
}

// LoadFile reads a chart from a YAML file.
func LoadFile(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chart: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML chart document.
func Load(r io.Reader) ([]Definition, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("chart: decode: %w", err)
	}
	if len(doc.Accounts) == 0 {
		return nil, fmt.Errorf("chart: no accounts defined")
	}
	seen := make(map[string]struct{}, len(doc.Accounts))
	for idx, def := range doc.Accounts {
		key := strings.ToLower(strings.TrimSpace(def.Name))
		if key == "" {
			return nil, fmt.Errorf("chart: account %d has no name", idx)
		}
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("chart: duplicate account %q", def.Name)
		}
		seen[key] = struct{}{}
	}
	return doc.Accounts, nil
}

// Inputs converts definitions into registry inputs.
func Inputs(defs []Definition) ([]accounting.CreateAccountInput, error) {
	out := make([]accounting.CreateAccountInput, 0, len(defs))
	for _, def := range defs {
		t, err := accounting.ParseAccountType(def.Type)
		if err != nil {
			return nil, fmt.Errorf("chart: %s: %w", def.Name, err)
		}
		out = append(out, accounting.CreateAccountInput{
			Name:        strings.TrimSpace(def.Name),
			Type:        t,
			Description: strings.TrimSpace(def.Description),
		})
	}
	return out, nil
}
