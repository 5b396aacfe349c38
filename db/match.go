package db

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Matches evaluates the subset of the MongoDB query language the gateway's
// callers use: equality (array fields match when any element is equal),
// $regex with $options, $in, $ne, $exists, $or and $and.
func Matches(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$or", "$and":
			subs, ok := asSlice(cond)
			if !ok {
				return false, fmt.Errorf("%s expects an array", key)
			}
			matched := false
			for _, s := range subs {
				sub, ok := asMap(s)
				if !ok {
					return false, fmt.Errorf("%s expects documents", key)
				}
				ok, err := Matches(doc, sub)
				if err != nil {
					return false, err
				}
				if key == "$and" && !ok {
					return false, nil
				}
				matched = matched || ok
			}
			if key == "$or" && !matched {
				return false, nil
			}
		default:
			ok, err := matchField(doc, key, cond)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func matchField(doc bson.M, key string, cond any) (bool, error) {
	val, present := doc[key]
	ops, isOps := operators(cond)
	if !isOps {
		return present && equals(val, cond), nil
	}

	for op, arg := range ops {
		switch op {
		case "$regex":
			pattern, ok := arg.(string)
			if !ok {
				return false, fmt.Errorf("$regex expects a string")
			}
			if opt, _ := ops["$options"].(string); strings.Contains(opt, "i") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return false, fmt.Errorf("$regex: %w", err)
			}
			if !present || !anyString(val, re.MatchString) {
				return false, nil
			}
		case "$options":
		case "$in":
			list, ok := asSlice(arg)
			if !ok {
				return false, fmt.Errorf("$in expects an array")
			}
			found := false
			for _, want := range list {
				if present && equals(val, want) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		case "$ne":
			if present && equals(val, arg) {
				return false, nil
			}
		case "$exists":
			want, _ := arg.(bool)
			if present != want {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported operator %s", op)
		}
	}
	return true, nil
}

func operators(v any) (map[string]any, bool) {
	m, ok := asMap(v)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func equals(val, want any) bool {
	if list, ok := asSlice(val); ok {
		if wantList, ok := asSlice(want); ok {
			return reflect.DeepEqual(normalizeList(list), normalizeList(wantList))
		}
		for _, item := range list {
			if equals(item, want) {
				return true
			}
		}
		return false
	}
	if a, ok := toFloat(val); ok {
		if b, ok := toFloat(want); ok {
			return a == b
		}
		return false
	}
	return reflect.DeepEqual(val, want)
}

func anyString(val any, fn func(string) bool) bool {
	if list, ok := asSlice(val); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && fn(s) {
				return true
			}
		}
		return false
	}
	s, ok := val.(string)
	return ok && fn(s)
}

// compareValues orders missing < numbers < strings < everything else.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	case 2:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	if _, ok := v.(string); ok {
		return 2
	}
	return 3
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return m, true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case primitive.A:
		return s, true
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []bson.M:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []primitive.ObjectID:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

func normalizeList(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		if f, ok := toFloat(v); ok {
			out[i] = f
			continue
		}
		out[i] = v
	}
	return out
}
