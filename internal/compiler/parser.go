package compiler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/petri/pkg/domain"
)

// Parser converts raw definition documents into validated Definitions.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes YAML or JSON content into a Definition. JSON is a YAML
// subset, so one decoder covers both.
func (p *Parser) Parse(data []byte) (*domain.Definition, error) {
	var def domain.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if def.Mode == "" {
		def.Mode = domain.ModeStochastic
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseFile reads and parses a definition file.
func (p *Parser) ParseFile(path string) (*domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
