package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mogiioin/hls-m3u8-parse/m3u8"
)

// formatter renders a parsed document.
type formatter interface {
	Format(doc *m3u8.Document) ([]byte, error)
}

// jsonFormatter prints the document as indented JSON.
type jsonFormatter struct{}

func (jsonFormatter) Format(doc *m3u8.Document) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// yamlFormatter prints the document as block-style YAML. The document is
// encoded to JSON first so both formats share field names and attribute order.
type yamlFormatter struct{}

func (yamlFormatter) Format(doc *m3u8.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

// blockStyle drops the flow and quoting styles that came with the JSON input.
// The encoder quotes strings again where a plain scalar would change type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func newFormatter(name string) (formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return jsonFormatter{}, nil
	case "yaml", "yml":
		return yamlFormatter{}, nil
	default:
		return nil, fmt.Errorf("invalid -format %q (use: json|yaml)", name)
	}
}
