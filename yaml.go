package bipf

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	_ yaml.Marshaler   = Value{}
	_ yaml.Unmarshaler = (*Value)(nil)
)

// FromYAML converts the first document in data to a Value. Mapping order
// is kept, aliases are expanded and !!binary scalars become buffers, keys
// included. Other scalar keys become string keys whatever their tag. An
// empty document is null.
func FromYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, fmt.Errorf("yaml: %w", err)
	}
	if doc.Kind == 0 {
		return Null(), nil
	}
	return fromYAMLNode(&doc, 0)
}

func fromYAMLNode(n *yaml.Node, depth int) (Value, error) {
	if depth >= DefaultMaxDepth {
		return Value{}, valueErrf(ErrTooDeep, "more than %d levels", DefaultMaxDepth)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return fromYAMLNode(n.Content[0], depth)
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias, depth+1)
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromYAMLNode(c, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil
	case yaml.MappingNode:
		fields := make([]Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			kn, vn := n.Content[i], n.Content[i+1]
			for kn.Kind == yaml.AliasNode {
				kn = kn.Alias
			}
			if kn.Kind != yaml.ScalarNode || kn.ShortTag() == "!!merge" {
				return Value{}, valueErrf(ErrInvalidKey, "YAML key at line %d", kn.Line)
			}
			var key Value
			if kn.ShortTag() == "!!binary" {
				var err error
				if key, err = fromYAMLScalar(kn); err != nil {
					return Value{}, err
				}
			} else {
				key = Str(kn.Value)
			}
			val, err := fromYAMLNode(vn, depth+1)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{key, val})
		}
		return Object(fields...), nil
	default:
		return Value{}, valueErrf(ErrUnsupportedValue, "YAML node kind %v", n.Kind)
	}
}

func fromYAMLScalar(n *yaml.Node) (Value, error) {
	switch tag := n.ShortTag(); tag {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, valueErrf(ErrIntOverflow, "%s at line %d", n.Value, n.Line)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Double(f), nil
	case "!!binary":
		var s string
		if err := n.Decode(&s); err != nil {
			return Value{}, err
		}
		return Bytes([]byte(s)), nil
	case "!!str", "!!timestamp":
		return Str(n.Value), nil
	default:
		return Value{}, valueErrf(ErrUnsupportedValue, "YAML tag %s at line %d", tag, n.Line)
	}
}

// ToYAML converts v to a YAML document. Scalars are tagged only where the
// plain form would resolve to a different type, so strings like "true"
// come out quoted, and buffers, including buffer keys, as !!binary.
func ToYAML(v Value) ([]byte, error) {
	n, err := v.yamlNode()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(n)
}

func (v Value) yamlNode() (*yaml.Node, error) {
	scalar := func(tag, s string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: s}
	}
	switch v.kind {
	case KindNull:
		return scalar("!!null", "null"), nil
	case KindBool:
		return scalar("!!bool", strconv.FormatBool(v.num != 0)), nil
	case KindInt:
		return scalar("!!int", strconv.FormatInt(int64(v.num), 10)), nil
	case KindDouble:
		f := math.Float64frombits(v.num)
		var s string
		switch {
		case math.IsNaN(f):
			s = ".nan"
		case math.IsInf(f, 1):
			s = ".inf"
		case math.IsInf(f, -1):
			s = "-.inf"
		default:
			s = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return scalar("!!float", s), nil
	case KindString:
		return scalar("!!str", v.str), nil
	case KindBuffer:
		return scalar("!!binary", base64.StdEncoding.EncodeToString(v.bin)), nil
	case KindArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			c, err := item.yamlNode()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case KindObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range v.fields {
			k, ok := f.Key.KeyBytes()
			if !ok {
				return nil, valueErrf(ErrInvalidKey, "%v key", f.Key.kind)
			}
			key := scalar("!!str", string(k))
			if f.Key.kind == KindBuffer {
				key = scalar("!!binary", base64.StdEncoding.EncodeToString(k))
			}
			c, err := f.Value.yamlNode()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, key, c)
		}
		return n, nil
	default:
		return nil, valueErrf(ErrUnsupportedValue, "invalid kind %v", v.kind)
	}
}

func (v Value) MarshalYAML() (any, error) {
	return v.yamlNode()
}

func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	r, err := fromYAMLNode(n, 0)
	if err != nil {
		return err
	}
	*v = r
	return nil
}
