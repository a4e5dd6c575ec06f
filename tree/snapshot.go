package tree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown snapshot format")

var yamlExtensions = []string{".yaml", ".yml"}

// FormatOf picks the snapshot format from a file extension, JSON by default.
func FormatOf(path string) Format {
	if slices.Contains(yamlExtensions, strings.ToLower(filepath.Ext(path))) {
		return YAML
	}
	return JSON
}

// Decode reads a structural snapshot and checks its invariants. Missing
// children lists are normalized to empty ones.
func Decode(r io.Reader, format Format) (*Node, error) {
	var root Node
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&root); err != nil {
			return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&root); err != nil {
			return nil, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
	normalize(&root)
	if err := Validate(&root); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &root, nil
}

func Encode(w io.Writer, root *Node, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(root); err != nil {
			return fmt.Errorf("failed to encode json snapshot: %w", err)
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(root); err != nil {
			return fmt.Errorf("failed to encode yaml snapshot: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
	return nil
}

func ReadSnapshot(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatOf(path))
}

func WriteSnapshot(path string, root *Node) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()
	return Encode(f, root, FormatOf(path))
}

func normalize(n *Node) {
	if n == nil {
		return
	}
	if n.Children == nil {
		n.Children = []*Node{}
	}
	for _, child := range n.Children {
		normalize(child)
	}
}
