package manifest

import (
	"gopkg.in/yaml.v3"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/value"
)

func parseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.ParseFailed("yaml", err)
	}
	return &m, nil
}

// UnmarshalYAML decodes a mapping into attributes, keeping document order.
func (a *Attrs) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return errors.InvalidData(errors.PhaseParse, nil, "attributes must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := nodeValue(n.Content[i+1])
		if err != nil {
			return errors.New(errors.PhaseParse, errors.KindInvalidData).
				Path(key).
				Cause(err).
				Detail("line %d", n.Content[i+1].Line).
				Build()
		}
		a.Set(key, v)
	}
	return nil
}

func nodeValue(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.SequenceNode:
		list := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return value.Value{}, err
			}
			list = append(list, v)
		}
		return value.List(list...), nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return value.Empty(), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return value.Value{}, err
			}
			return value.Bool(b), nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return value.Value{}, err
			}
			return value.Int(i), nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return value.Value{}, err
			}
			return value.Float(f), nil
		}
		return value.String(n.Value), nil
	}
	return value.Value{}, errors.Unsupported(errors.PhaseParse, "nested mappings in attributes")
}
