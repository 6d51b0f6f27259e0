package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

func TestLocalYAMLDocAdapter_Decode(t *testing.T) {
	adapter := NewLocalYAMLDocAdapter()

	t.Run("keeps mapping order and scalar tags", func(t *testing.T) {
		docs, err := adapter.Decode("layout.yaml", []byte("title: Offer\nx: 12.5\ny: 40\npage: 2\nnote: ~\n"))
		require.NoError(t, err)
		require.Len(t, docs, 1)

		doc := docs[0]
		assert.Equal(t, m.DocMapping, doc.Kind)
		assert.Equal(t, []string{"title", "x", "y", "page", "note"}, doc.Keys)
		assert.Equal(t, m.TagFloat, doc.Lookup("x").Tag)
		assert.Equal(t, "12.5", doc.Lookup("x").Value)
		assert.Equal(t, m.TagInt, doc.Lookup("page").Tag)
		assert.True(t, doc.Lookup("note").IsNull())
	})

	t.Run("multi document stream drops null documents", func(t *testing.T) {
		docs, err := adapter.Decode("multi.yaml", []byte("a: 1\n---\n---\nb: 2\n"))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, []string{"a"}, docs[0].Keys)
		assert.Equal(t, []string{"b"}, docs[1].Keys)
	})

	t.Run("resolves aliases and merge keys", func(t *testing.T) {
		src := "base: &base\n  x: 1\n  y: 2\nitem:\n  <<: *base\n  y: 3\n  page: 4\n"

		docs, err := adapter.Decode("merge.yaml", []byte(src))
		require.NoError(t, err)
		require.Len(t, docs, 1)

		item := docs[0].Lookup("item")
		require.NotNil(t, item)
		assert.Equal(t, []string{"x", "y", "page"}, item.Keys)
		assert.Equal(t, "1", item.Lookup("x").Value)
		assert.Equal(t, "3", item.Lookup("y").Value)
	})

	t.Run("sequences", func(t *testing.T) {
		docs, err := adapter.Decode("seq.yaml", []byte("fields:\n  - {x: 1, y: 2}\n  - {x: 3, y: 4}\n"))
		require.NoError(t, err)

		fields := docs[0].Lookup("fields")
		require.NotNil(t, fields)
		assert.Equal(t, m.DocSequence, fields.Kind)
		assert.Len(t, fields.Children, 2)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		_, err := adapter.Decode("bad.yaml", []byte("a: [1, 2\nb: : :\n"))
		require.Error(t, err)
	})
}

func TestLocalYAMLDocAdapter_DecodeLines(t *testing.T) {
	adapter := NewLocalYAMLDocAdapter()

	doc := adapter.DecodeLines([]byte("\tx: 10\n  y : 20  \nnot a field\nx: 11\npage: 3\n"))
	require.NotNil(t, doc)
	assert.Equal(t, []string{"x", "y", "page"}, doc.Keys)
	assert.Equal(t, "11", doc.Lookup("x").Value)
	assert.Equal(t, "20", doc.Lookup("y").Value)

	assert.Nil(t, adapter.DecodeLines([]byte("nothing here\n")))
}
