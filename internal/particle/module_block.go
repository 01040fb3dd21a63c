package particle

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ModuleBlock is one entry of an asset's module list. The header fields are
// decoded eagerly; the parameters stay as a YAML node until the module
// factory decodes them into the module-specific shape.
//
//	modules:
//	  - type: boundaryCollision
//	    shape: rect
//	    width: 400
//	    behavior: bounce
type ModuleBlock struct {
	Type    string
	Name    string
	Enabled *bool

	params yaml.Node
}

type moduleHeader struct {
	Type    string `yaml:"type"`
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

// NewModuleBlock builds a block programmatically from a parameter value.
func NewModuleBlock(typ string, params interface{}) (ModuleBlock, error) {
	b := ModuleBlock{Type: typ}
	if params != nil {
		if err := b.params.Encode(params); err != nil {
			return ModuleBlock{}, fmt.Errorf("encode %s params: %w", typ, err)
		}
	}
	return b, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ModuleBlock) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: module block must be a mapping", node.Line)
	}
	var h moduleHeader
	if err := node.Decode(&h); err != nil {
		return err
	}
	b.Type, b.Name, b.Enabled = h.Type, h.Name, h.Enabled
	b.params = *node
	return nil
}

// IsEnabled reports the enabled flag, true when unset.
func (b *ModuleBlock) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// Decode decodes the block parameters into v. A block without parameters
// leaves v untouched.
func (b *ModuleBlock) Decode(v interface{}) error {
	if b.params.Kind == 0 {
		return nil
	}
	if err := b.params.Decode(v); err != nil {
		return fmt.Errorf("module %s: %w", b.Type, err)
	}
	return nil
}
