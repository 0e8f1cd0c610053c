package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Leaves maps a full path to the JSON encoding of a non-object value.
// Stores keep data as leaves; objects exist only through their descendants.
type Leaves map[string]json.RawMessage

// Write replaces the subtree rooted at Path with Leaves. Leaves may be empty,
// in which case the subtree is removed.
type Write struct {
	Path   string
	Leaves Leaves
}

// Plan is the set of subtree replacements a single Operation expands to.
type Plan struct {
	Result Result
	Writes []Write
}

// Prepare validates path and expands op into subtree writes. newKey supplies
// child keys for Push.
func Prepare(path string, op Operation, newKey func() string) (Plan, error) {
	path, err := CleanPath(path)
	if err != nil {
		return Plan{}, err
	}

	switch op.Kind {
	case OpSet:
		leaves, err := Flatten(path, op.Value)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Result: Result{Path: path}, Writes: []Write{{Path: path, Leaves: leaves}}}, nil

	case OpPush:
		key := newKey()
		target := Join(path, key)
		leaves, err := Flatten(target, op.Value)
		if err != nil {
			return Plan{}, err
		}
		return Plan{Result: Result{Path: target, Key: key}, Writes: []Write{{Path: target, Leaves: leaves}}}, nil

	case OpUpdate:
		writes := make([]Write, 0, len(op.Fields))
		for k, v := range op.Fields {
			target, err := CleanPath(Join(path, k))
			if err != nil {
				return Plan{}, err
			}
			leaves, err := Flatten(target, v)
			if err != nil {
				return Plan{}, err
			}
			writes = append(writes, Write{Path: target, Leaves: leaves})
		}
		return Plan{Result: Result{Path: path}, Writes: writes}, nil

	case OpRemove:
		return Plan{Result: Result{Path: path}, Writes: []Write{{Path: path}}}, nil

	default:
		return Plan{}, fmt.Errorf("unsupported operation %d", op.Kind)
	}
}

// Flatten encodes v and splits it into leaves below path. Empty objects and
// nulls produce no leaves.
func Flatten(path string, v any) (Leaves, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value at %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode value at %s: %w", path, err)
	}

	out := Leaves{}
	if err := flatten(out, path, tree); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(out Leaves, path string, v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, child := range t {
			if !ValidKey(k) {
				return fmt.Errorf("%w: key %q under %s", ErrInvalidPath, k, path)
			}
			if err := flatten(out, path+"/"+k, child); err != nil {
				return err
			}
		}
		return nil
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		out[path] = raw
		return nil
	}
}

// Assemble rebuilds the value at path from the leaves at or below it.
// It returns nil when there are none.
func Assemble(path string, leaves Leaves) (json.RawMessage, error) {
	if len(leaves) == 0 {
		return nil, nil
	}
	if raw, ok := leaves[path]; ok {
		return raw, nil
	}

	root := map[string]any{}
	for p, raw := range leaves {
		if !strings.HasPrefix(p, path+"/") {
			continue
		}
		segs := strings.Split(strings.TrimPrefix(p, path+"/"), "/")
		node := root
		for _, seg := range segs[:len(segs)-1] {
			next, ok := node[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[seg] = next
			}
			node = next
		}
		node[segs[len(segs)-1]] = raw
	}
	if len(root) == 0 {
		return nil, nil
	}
	return json.Marshal(root)
}
