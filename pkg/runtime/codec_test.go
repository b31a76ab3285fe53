package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codecInner struct {
	Name string `json:"name" validate:"required"`
}

type codecModel struct {
	ID       string       `json:"id" validate:"required"`
	Note     *string      `json:"note,omitempty"`
	Deleted  *string      `json:"deleted"`
	Inner    *codecInner  `json:"inner,omitempty"`
	Children []codecInner `json:"children,omitempty" validate:"dive"`
}

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec[codecModel]{}

	t.Run("round trip", func(t *testing.T) {
		note := "n"
		in := codecModel{ID: "1", Note: &note, Inner: &codecInner{Name: "x"}, Children: []codecInner{{Name: "c"}}}

		data, err := codec.ToWire(in)
		require.NoError(t, err)

		out, err := codec.FromWire(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("optional omitted, nullable emitted", func(t *testing.T) {
		data, err := codec.ToWire(codecModel{ID: "1"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"1","deleted":null}`, string(data))
	})

	t.Run("unknown fields ignored", func(t *testing.T) {
		out, err := codec.FromWire([]byte(`{"id":"1","extra":true}`))
		require.NoError(t, err)
		assert.Equal(t, "1", out.ID)
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := codec.FromWire([]byte(`{}`))
		decodeErr, ok := IsDecodeError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"id"}, decodeErr.Missing)
		assert.Contains(t, err.Error(), "missing required fields: id")
	})

	t.Run("missing nested required", func(t *testing.T) {
		_, err := codec.FromWire([]byte(`{"id":"1","inner":{},"children":[{"name":"a"},{}]}`))
		decodeErr, ok := IsDecodeError(err)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"inner.name", "children[1].name"}, decodeErr.Missing)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := codec.FromWire([]byte(`{"id":`))
		decodeErr, ok := IsDecodeError(err)
		require.True(t, ok)
		assert.Empty(t, decodeErr.Missing)
		assert.Equal(t, "runtime.codecModel", decodeErr.Type)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := codec.FromWire([]byte(`{"id":1}`))
		_, ok := IsDecodeError(err)
		assert.True(t, ok)
	})
}

func TestDecodeJSONPtr(t *testing.T) {
	v, err := DecodeJSONPtr[codecModel]([]byte(`{"id":"7"}`))
	require.NoError(t, err)
	assert.Equal(t, "7", v.ID)

	v, err = DecodeJSONPtr[codecModel]([]byte(`[]`))
	assert.Nil(t, v)
	assert.Error(t, err)
}
