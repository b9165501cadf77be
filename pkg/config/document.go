/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config reads YAML configuration documents into generic trees.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	errRootNotMapping = errors.New("document root must be a mapping")
	errComplexKey     = errors.New("mapping keys must be scalars")
	errDuplicateKey   = errors.New("duplicate mapping key")
	errBadMerge       = errors.New("merge value must be a mapping or a list of mappings")
)

const mergeTag = "!!merge"

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// DocumentError reports an unreadable or unparsable document. Line and Column are
// 1-based; zero means the position is unknown.
type DocumentError struct {
	File   string
	Line   int
	Column int
	Err    error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("error in file: %s at (%d, %d): %v", e.File, e.Line, e.Column, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// ReadDocument reads path and returns its top-level mapping. Mapping keys are kept
// as their scalar text, so numeric keys such as port numbers arrive as "1".
func ReadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentError{File: path, Err: err}
	}

	return ParseDocument(path, data)
}

// ParseDocument parses data as a YAML document named name.
func ParseDocument(name string, data []byte) (map[string]any, error) {
	var root yaml.Node

	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &DocumentError{File: name, Line: lineFromYAMLError(err), Err: err}
	}

	if len(root.Content) == 0 {
		return map[string]any{}, nil
	}

	doc := resolveAlias(root.Content[0])
	if doc.Kind != yaml.MappingNode {
		return nil, &DocumentError{File: name, Line: doc.Line, Column: doc.Column, Err: errRootNotMapping}
	}

	conv := converter{file: name}

	out, err := conv.mapping(doc)
	if err != nil {
		return nil, err
	}

	return out, nil
}

type converter struct {
	file string
}

func (c converter) fail(n *yaml.Node, err error) error {
	return &DocumentError{File: c.file, Line: n.Line, Column: n.Column, Err: err}
}

func (c converter) value(n *yaml.Node) (any, error) {
	n = resolveAlias(n)

	switch n.Kind {
	case yaml.MappingNode:
		return c.mapping(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))

		for _, item := range n.Content {
			v, err := c.value(item)
			if err != nil {
				return nil, err
			}

			out = append(out, v)
		}

		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, c.fail(n, err)
		}

		return v, nil
	default:
		return nil, nil
	}
}

func (c converter) mapping(n *yaml.Node) (map[string]any, error) {
	out := make(map[string]any, len(n.Content)/2)
	explicit := make(map[string]struct{}, len(n.Content)/2)

	var merges []*yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := resolveAlias(n.Content[i]), n.Content[i+1]

		if keyNode.Kind != yaml.ScalarNode {
			return nil, c.fail(keyNode, errComplexKey)
		}

		if keyNode.ShortTag() == mergeTag {
			merges = append(merges, valNode)
			continue
		}

		if _, dup := explicit[keyNode.Value]; dup {
			return nil, c.fail(keyNode, fmt.Errorf("%w: %q", errDuplicateKey, keyNode.Value))
		}

		v, err := c.value(valNode)
		if err != nil {
			return nil, err
		}

		explicit[keyNode.Value] = struct{}{}
		out[keyNode.Value] = v
	}

	for _, m := range merges {
		if err := c.merge(out, explicit, m); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// merge applies a "<<" value; explicit keys of the enclosing mapping win.
func (c converter) merge(out map[string]any, explicit map[string]struct{}, n *yaml.Node) error {
	n = resolveAlias(n)

	var sources []*yaml.Node

	switch n.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{n}
	case yaml.SequenceNode:
		sources = n.Content
	default:
		return c.fail(n, errBadMerge)
	}

	for _, src := range sources {
		src = resolveAlias(src)
		if src.Kind != yaml.MappingNode {
			return c.fail(src, errBadMerge)
		}

		m, err := c.mapping(src)
		if err != nil {
			return err
		}

		for k, v := range m {
			if _, ok := explicit[k]; ok {
				continue
			}

			if _, ok := out[k]; ok {
				continue
			}

			out[k] = v
		}
	}

	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	return n
}

func lineFromYAMLError(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if len(m) != 2 {
		return 0
	}

	line, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0
	}

	return line
}
