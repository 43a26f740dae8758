package rtdb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Paths are slash-separated segments, no leading or trailing slash. Segment
// characters are restricted so paths can be embedded in SQL LIKE patterns
// and Redis keys without escaping.
func validPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		for _, r := range seg {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			case r == '-' || r == '_' || r == '.' || r == ':' || r == '@':
			default:
				return fmt.Errorf("%w: character %q in %q", ErrInvalidPath, r, path)
			}
		}
	}
	return nil
}

// ValidPath checks that path is well formed. Callers accepting paths
// from the outside should reject bad ones before touching the store.
func ValidPath(path string) error {
	return validPath(path)
}

// parentOf returns the parent path, or "" for a top-level path.
func parentOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// selfAndAncestors returns path, each of its parents, and "" (the root).
func selfAndAncestors(path string) []string {
	out := []string{path}
	for path != "" {
		path = parentOf(path)
		out = append(out, path)
	}
	return out
}

// overlaps reports whether a change at one path affects a subscription at
// the other: equal, ancestor, or descendant. The root overlaps everything.
func overlaps(a, b string) bool {
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// normalize round-trips value through JSON so every backend stores the same
// shapes: map[string]any for objects, []any for arrays, float64 for numbers.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("rtdb: encoding value: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("rtdb: decoding value: %w", err)
	}
	return v, nil
}

// flatten walks a normalized value and records its leaves into out, keyed by
// full path. Objects become subtrees; everything else (scalars, arrays,
// null) is a leaf. Empty objects vanish, as they do in tree stores that
// materialize nodes from their children.
func flatten(path string, value any, out map[string]any) {
	obj, ok := value.(map[string]any)
	if !ok {
		if value != nil {
			out[path] = value
		}
		return
	}
	for k, v := range obj {
		flatten(path+"/"+k, v, out)
	}
}

// assemble rebuilds the nested value at base from leaf rows. Returns nil
// when no leaf lives at or under base.
func assemble(base string, leaves map[string]any) any {
	if v, ok := leaves[base]; ok {
		return v
	}
	prefix := base + "/"
	if base == "" {
		prefix = ""
	}
	root := map[string]any{}
	found := false
	for p, v := range leaves {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		found = true
		segs := strings.Split(p[len(prefix):], "/")
		node := root
		for _, s := range segs[:len(segs)-1] {
			child, ok := node[s].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[s] = child
			}
			node = child
		}
		node[segs[len(segs)-1]] = v
	}
	if !found {
		return nil
	}
	return root
}

// encodeValue marshals an assembled value, with map keys sorted by
// encoding/json so equal trees always produce equal bytes.
func encodeValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rtdb: encoding subtree: %w", err)
	}
	return data, nil
}

// sortedPaths is a test and debugging helper.
func sortedPaths(leaves map[string]any) []string {
	out := make([]string, 0, len(leaves))
	for p := range leaves {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
