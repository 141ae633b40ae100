// Package manifest reads and writes the serialized form of a service graph:
// factory recipes by name, aliases, synthetic keys and removed keys.
//
//	m, err := manifest.LoadFile("services.yaml")
//	b := container.NewBuilder()
//	err = m.Apply(b, catalog)
//	c, err := b.Compile()
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-container/framework/container"
)

var (
	ErrUnknownFactory   = errors.New("manifest: unknown factory")
	ErrUnknownDecorator = errors.New("manifest: unknown decorator")
)

// Service is one factory recipe. Factory and Decorators are names looked up
// in a Catalog.
type Service struct {
	Factory     string   `yaml:"factory"`
	Sharing     string   `yaml:"sharing,omitempty"`
	Deps        []string `yaml:"deps,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Decorators  []string `yaml:"decorators,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// Manifest is the document form of a service graph.
type Manifest struct {
	Services       map[string]Service                  `yaml:"services"`
	Aliases        map[string]string                   `yaml:"aliases,omitempty"`
	PrivateAliases map[string]string                   `yaml:"private_aliases,omitempty"`
	Synthetic      []string                            `yaml:"synthetic,omitempty"`
	Removed        map[string]container.RemovalReason `yaml:"removed,omitempty"`

	// order keeps services in document order so tag collections stay stable
	order []string
}

// UnmarshalYAML decodes the document and records the order of the services
// mapping.
func (m *Manifest) UnmarshalYAML(n *yaml.Node) error {
	type plain Manifest
	if err := n.Decode((*plain)(m)); err != nil {
		return err
	}
	m.order = nil
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != "services" || n.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		svc := n.Content[i+1]
		for j := 0; j+1 < len(svc.Content); j += 2 {
			m.order = append(m.order, svc.Content[j].Value)
		}
	}
	return nil
}

// MarshalYAML encodes the document with the services mapping in
// ServiceKeys order.
func (m Manifest) MarshalYAML() (any, error) {
	type plain Manifest
	var doc yaml.Node
	if err := doc.Encode(plain(m)); err != nil {
		return nil, err
	}
	services := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range m.ServiceKeys() {
		var svc yaml.Node
		if err := svc.Encode(m.Services[key]); err != nil {
			return nil, fmt.Errorf("service %q: %w", key, err)
		}
		services.Content = append(services.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &svc)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "services" {
			doc.Content[i+1] = services
		}
	}
	return &doc, nil
}

// Load decodes a manifest from r.
func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	return &m, nil
}

// LoadFile decodes the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Write encodes m as YAML. Services keep their order; other mappings are
// written sorted.
func (m *Manifest) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	return enc.Close()
}

// ServiceKeys lists service keys in document order. Services added in code
// after loading follow, sorted.
func (m *Manifest) ServiceKeys() []string {
	keys := make([]string, 0, len(m.Services))
	seen := make(map[string]bool, len(m.Services))
	for _, k := range m.order {
		if _, ok := m.Services[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m.Services {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Apply registers everything in m on b, resolving factory and decorator
// names through cat. All unresolvable names are reported together.
func (m *Manifest) Apply(b *container.Builder, cat *Catalog) error {
	var errs []error
	for _, key := range m.ServiceKeys() {
		svc := m.Services[key]
		sharing, err := container.ParseSharing(svc.Sharing)
		if err != nil {
			errs = append(errs, fmt.Errorf("service %q: %w", key, err))
			continue
		}
		factory, ok := cat.Factory(svc.Factory)
		if !ok {
			errs = append(errs, fmt.Errorf("%w %q for service %q", ErrUnknownFactory, svc.Factory, key))
			continue
		}
		if err := b.Define(container.Definition{
			Key:         key,
			Factory:     factory,
			Sharing:     sharing,
			Deps:        svc.Deps,
			Tags:        svc.Tags,
			Description: svc.Description,
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, name := range svc.Decorators {
			d, ok := cat.Decorator(name)
			if !ok {
				errs = append(errs, fmt.Errorf("%w %q for service %q", ErrUnknownDecorator, name, key))
				continue
			}
			b.Decorate(key, d)
		}
	}

	for _, alias := range sortedKeys(m.Aliases) {
		b.Alias(alias, m.Aliases[alias])
	}
	for _, alias := range sortedKeys(m.PrivateAliases) {
		b.PrivateAlias(alias, m.PrivateAliases[alias])
	}
	for _, key := range m.Synthetic {
		// every builder declares itself
		if key == container.SelfKey {
			continue
		}
		b.Synthetic(key)
	}
	for _, key := range sortedKeys(m.Removed) {
		b.Remove(key, m.Removed[key])
	}
	return errors.Join(errs...)
}

// FromContainer dumps c. names maps service keys to the catalog names of
// their factories; keys without an entry use the service key itself.
// Decorators are named "<key>#<index>".
func FromContainer(c *container.Container, names map[string]string) *Manifest {
	m := &Manifest{
		Services:       make(map[string]Service),
		Aliases:        make(map[string]string),
		PrivateAliases: make(map[string]string),
		Removed:        c.RemovedIDs(),
	}
	for _, key := range c.Declared() {
		def, ok := c.Definition(key)
		if !ok {
			continue
		}
		name := names[key]
		if name == "" {
			name = key
		}
		svc := Service{
			Factory:     name,
			Sharing:     def.Sharing.String(),
			Deps:        def.Deps,
			Tags:        def.Tags,
			Description: def.Description,
		}
		for i := range def.Decorators {
			svc.Decorators = append(svc.Decorators, fmt.Sprintf("%s#%d", key, i))
		}
		m.Services[key] = svc
		m.order = append(m.order, key)
	}

	private := make(map[string]bool)
	for _, alias := range c.PrivateAliases() {
		private[alias] = true
	}
	for alias, target := range c.Aliases() {
		if private[alias] {
			m.PrivateAliases[alias] = target
		} else {
			m.Aliases[alias] = target
		}
	}

	for _, info := range c.Services() {
		if info.Status == container.Synthetic.String() && info.Key != container.SelfKey {
			m.Synthetic = append(m.Synthetic, info.Key)
		}
	}
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
