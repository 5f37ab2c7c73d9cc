// Package importer loads knowledge-base seed files and ingests them. Two
// formats are supported: JSONL with one entity or alias object per line,
// and a single YAML document carrying both sections.
package importer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/entitylink/pkg/types"
)

// Seed is the parsed content of one or more seed files, ready to ingest.
type Seed struct {
	Entities []types.Entity `yaml:"entities"`
	Aliases  []types.Alias  `yaml:"aliases"`
}

// jsonl scanner line cap; description texts can run long.
const maxLineBytes = 1 << 20

// LoadEntitiesJSONL reads entities from a JSONL file, one JSON object per
// line. Blank lines are skipped. Parse errors carry the line number.
func LoadEntitiesJSONL(path string) ([]types.Entity, error) {
	var entities []types.Entity
	err := scanJSONL(path, func(line []byte, n int) error {
		var e types.Entity
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("importer: %s:%d: %w", path, n, err)
		}
		entities = append(entities, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// LoadAliasesJSONL reads aliases from a JSONL file, one JSON object per
// line. Blank lines are skipped. Parse errors carry the line number.
func LoadAliasesJSONL(path string) ([]types.Alias, error) {
	var aliases []types.Alias
	err := scanJSONL(path, func(line []byte, n int) error {
		var a types.Alias
		if err := json.Unmarshal(line, &a); err != nil {
			return fmt.Errorf("importer: %s:%d: %w", path, n, err)
		}
		aliases = append(aliases, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return aliases, nil
}

// LoadSeedYAML reads a combined seed document with top-level "entities" and
// "aliases" sequences.
func LoadSeedYAML(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", path, err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("importer: parse %s: %w", path, err)
	}
	return &seed, nil
}

// LoadSeed dispatches on file extension: .yaml/.yml load as a combined
// document, anything else is rejected. JSONL files carry a single record
// type and go through LoadEntitiesJSONL or LoadAliasesJSONL instead.
func LoadSeed(path string) (*Seed, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadSeedYAML(path)
	default:
		return nil, fmt.Errorf("importer: unsupported seed format %q", filepath.Ext(path))
	}
}

func scanJSONL(path string, fn func(line []byte, n int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("importer: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn([]byte(line), n); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("importer: scan %s: %w", path, err)
	}
	return nil
}
