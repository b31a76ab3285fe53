package runtime

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Query holds query parameters. Values may be scalars, time.Time, slices (rendered
// as repeated keys) or maps (rendered as key[sub]=value). Nil values are skipped.
type Query map[string]any

// CollectionFormat controls how a slice is joined into a single query value.
type CollectionFormat string

const (
	CollectionCSV   CollectionFormat = "csv"
	CollectionSSV   CollectionFormat = "ssv"
	CollectionTSV   CollectionFormat = "tsv"
	CollectionPipes CollectionFormat = "pipes"
	// CollectionMulti keeps the slice, producing one key per element.
	CollectionMulti CollectionFormat = "multi"
)

var collectionSeparators = map[CollectionFormat]string{
	CollectionCSV:   ",",
	CollectionSSV:   " ",
	CollectionTSV:   "\t",
	CollectionPipes: "|",
}

// Collection renders values according to format. For CollectionMulti the slice itself
// is returned so Encode emits repeated keys.
func Collection[T any](values []T, format CollectionFormat) any {
	if len(values) == 0 {
		return nil
	}
	sep, ok := collectionSeparators[format]
	if !ok {
		return values
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatScalar(v)
	}
	return strings.Join(parts, sep)
}

// Encode renders the query string with keys in sorted order. Spaces are encoded as %20.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = appendQueryPair(parts, k, q[k])
	}
	return strings.Join(parts, "&")
}

func appendQueryPair(parts []string, key string, value any) []string {
	if value == nil {
		return parts
	}

	switch v := value.(type) {
	case time.Time:
		return append(parts, escapeQuery(key)+"="+escapeQuery(v.UTC().Format(time.RFC3339Nano)))
	case *time.Time:
		if v == nil {
			return parts
		}
		return appendQueryPair(parts, key, *v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return parts
		}
		return appendQueryPair(parts, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, escapeQuery(key)+"="+escapeQuery(formatScalar(rv.Index(i).Interface())))
		}
		return parts
	case reflect.Map:
		type entry struct {
			key   string
			value any
		}
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{key: fmt.Sprint(iter.Key().Interface()), value: iter.Value().Interface()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
		for _, e := range entries {
			parts = appendQueryPair(parts, key+"["+e.key+"]", e.value)
		}
		return parts
	}

	return append(parts, escapeQuery(key)+"="+escapeQuery(formatScalar(value)))
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
