package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("loader: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block was unterminated or unparsable.
	ErrMalformedFrontMatter = errors.New("loader: malformed frontmatter")
	// ErrMissingName indicates the frontmatter carried no name.
	ErrMissingName = errors.New("loader: frontmatter has no name")
)

// frontMatter is the metadata block at the top of SKILL.md and MOC documents.
type frontMatter struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Domain      string `yaml:"domain"`
	Status      string `yaml:"status"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`

	// Relationships mirrors the Knowledge Graph section in structured form.
	Relationships map[string]stringList `yaml:"relationships"`
}

// stringList accepts either a single scalar or a sequence of scalars.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var value string
		if err := node.Decode(&value); err != nil {
			return err
		}
		*s = splitNames(value)
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		out := make([]string, 0, len(values))
		for _, value := range values {
			out = append(out, splitNames(value)...)
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("expected a name or a list of names, got %s", kindName(node.Kind))
	}
}

// parseFrontMatter splits a document into its metadata and body. The closing
// fence may be followed by the body or end the document.
func parseFrontMatter(content []byte) (frontMatter, []byte, error) {
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return frontMatter{}, nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]

	var metaBytes, body []byte
	if bytes.HasPrefix(rest, []byte("---")) {
		body = rest[3:]
	} else {
		idx := bytes.Index(rest, []byte("\n---"))
		if idx < 0 {
			return frontMatter{}, nil, ErrMalformedFrontMatter
		}
		metaBytes = rest[:idx]
		body = rest[idx+4:]
	}
	body = bytes.TrimPrefix(body, []byte("\n"))

	var meta frontMatter
	if err := yaml.Unmarshal(metaBytes, &meta); err != nil {
		return frontMatter{}, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Name == "" {
		return frontMatter{}, nil, ErrMissingName
	}
	return meta, body, nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "unknown node"
	}
}
