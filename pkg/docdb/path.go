package docdb

import (
	"fmt"
	"strconv"
	"strings"
)

// maxArrayIndex bounds how far a write may pad an array with nulls.
const maxArrayIndex = 1 << 20

// splitPath splits a dotted key into segments. Empty segments are kept as
// literal "" keys, so "a..b" addresses a[""]["b"].
func splitPath(key string) ([]string, error) {
	if key == "" {
		return nil, wrapMsg(ErrInvalidKey, "key must not be empty")
	}

	return strings.Split(key, "."), nil
}

// arrayIndex parses seg as a canonical non-negative integer ("0", "12", not
// "012" or "+1").
func arrayIndex(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}

	for i := range len(seg) {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}

	idx, err := strconv.Atoi(seg)
	if err != nil || idx > maxArrayIndex {
		return 0, false
	}

	return idx, true
}

func notIndexErr(segs []string, i int) error {
	return wrapMsg(ErrInvalidKey, fmt.Sprintf("segment %q of %q does not index an array (want 0..%d)",
		segs[i], strings.Join(segs, "."), maxArrayIndex))
}

// getPath resolves segs below root. A scalar or missing intermediate, or a
// segment that is not an index into an array, means the path is absent.
func getPath(root *Object, segs []string) (Node, bool, error) {
	cur := ObjectNode(root)

	for _, seg := range segs {
		switch cur.kind {
		case KindObject:
			next, ok := cur.obj.Get(seg)
			if !ok {
				return Node{}, false, nil
			}

			cur = next
		case KindArray:
			idx, ok := arrayIndex(seg)
			if !ok || idx >= len(cur.arr) {
				return Node{}, false, nil
			}

			cur = cur.arr[idx]
		default:
			return Node{}, false, nil
		}
	}

	return cur, true, nil
}

// setPath stores val at segs below root. Missing and scalar intermediates are
// replaced by objects. Array indexes past the end pad with nulls.
func setPath(root *Object, segs []string, val Node) error {
	_, err := setIn(ObjectNode(root), segs, 0, val)

	return err
}

func setIn(cur Node, segs []string, i int, val Node) (Node, error) {
	if i == len(segs) {
		return val, nil
	}

	seg := segs[i]

	switch cur.kind {
	case KindObject:
		child, _ := cur.obj.Get(seg)

		next, err := setIn(child, segs, i+1, val)
		if err != nil {
			return Node{}, err
		}

		cur.obj.Set(seg, next)

		return cur, nil
	case KindArray:
		idx, ok := arrayIndex(seg)
		if !ok {
			return Node{}, notIndexErr(segs, i)
		}

		arr := cur.arr
		for len(arr) <= idx {
			arr = append(arr, Null())
		}

		next, err := setIn(arr[idx], segs, i+1, val)
		if err != nil {
			return Node{}, err
		}

		arr[idx] = next

		return Array(arr...), nil
	default:
		obj := NewObject()

		next, err := setIn(Null(), segs, i+1, val)
		if err != nil {
			return Node{}, err
		}

		obj.Set(seg, next)

		return ObjectNode(obj), nil
	}
}

// deletePath removes the node at segs below root and reports whether
// anything was removed. Array elements are spliced out.
func deletePath(root *Object, segs []string) (bool, error) {
	_, removed, err := deleteIn(ObjectNode(root), segs, 0)

	return removed, err
}

func deleteIn(cur Node, segs []string, i int) (Node, bool, error) {
	seg := segs[i]
	last := i == len(segs)-1

	switch cur.kind {
	case KindObject:
		if last {
			return cur, cur.obj.Delete(seg), nil
		}

		child, ok := cur.obj.Get(seg)
		if !ok {
			return cur, false, nil
		}

		next, removed, err := deleteIn(child, segs, i+1)
		if err != nil || !removed {
			return cur, false, err
		}

		cur.obj.Set(seg, next)

		return cur, true, nil
	case KindArray:
		idx, ok := arrayIndex(seg)
		if !ok || idx >= len(cur.arr) {
			return cur, false, nil
		}

		if last {
			arr := append(cur.arr[:idx:idx], cur.arr[idx+1:]...)

			return Array(arr...), true, nil
		}

		next, removed, err := deleteIn(cur.arr[idx], segs, i+1)
		if err != nil || !removed {
			return cur, false, err
		}

		cur.arr[idx] = next

		return cur, true, nil
	default:
		return cur, false, nil
	}
}
