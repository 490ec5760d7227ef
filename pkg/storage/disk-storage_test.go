package storage

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/matst80/slask-facets/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYaml = `
taxonomies:
  - name: product_cat
    label: Category
    terms:
      - {id: 10, slug: shoes, label: Shoes}
      - {id: 11, slug: boots, label: Boots}
fields:
  - key: inStock
    label: In stock
    type: boolean
  - key: size
    label: Size
    type: enum
    multiple: true
    choices:
      - {value: s, label: Small}
      - {value: l, label: Large}
templates:
  card: '<article>{{.Title}}</article>'
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(catalogYaml))
	require.NoError(t, err)
	require.Len(t, c.Taxonomies, 1)
	assert.Equal(t, types.Term{Id: 11, Slug: "boots", Label: "Boots"}, c.Taxonomies[0].Terms[1])
	require.Len(t, c.Fields, 2)
	assert.Equal(t, types.ValueBoolean, c.Fields[0].Type)
	assert.True(t, c.Fields[1].Multiple)
	assert.Equal(t, "Large", c.Fields[1].Choices[1].Label)
	assert.Equal(t, "<article>{{.Title}}</article>", c.Templates["card"])
}

func TestParseCatalogErrors(t *testing.T) {
	cases := map[string]string{
		"broken":     "taxonomies: [",
		"no name":    "taxonomies:\n  - label: x\n",
		"no key":     "fields:\n  - label: x\n",
		"wrong type": "taxonomies: 3",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(data)); err == nil {
				t.Error("expected error")
			}
		})
	}
	c, err := ParseCatalog([]byte(""))
	require.NoError(t, err)
	assert.NotNil(t, c.Templates)
}

func TestCatalogRoundTrip(t *testing.T) {
	d := NewDiskStorage(t.TempDir())
	c, err := ParseCatalog([]byte(catalogYaml))
	require.NoError(t, err)
	require.NoError(t, d.SaveCatalog(c, CatalogFile))
	loaded, err := d.LoadCatalog(CatalogFile)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestItemsSnapshot(t *testing.T) {
	d := NewDiskStorage(t.TempDir())
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	items := []*types.Item{
		{Id: 1, PostType: "product", Status: "publish", Title: "A", Date: date,
			Terms:      map[string][]types.TermId{"product_cat": {10, 11}},
			Attributes: map[string]types.AttributeValue{"inStock": {"true"}, "size": {"s", "l"}}},
		{Id: 2, PostType: "product", Status: "draft", Title: "B", Date: date},
	}
	require.NoError(t, d.SaveItems(slices.Values(items)))

	var loaded []*types.Item
	n, err := d.LoadItems(func(item *types.Item) {
		loaded = append(loaded, item)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, loaded, 2)
	assert.Equal(t, items[0].Terms, loaded[0].Terms)
	assert.Equal(t, items[0].Attributes, loaded[0].Attributes)
	assert.True(t, date.Equal(loaded[1].Date))
	assert.Equal(t, "draft", loaded[1].Status)

	leftovers, err := filepath.Glob(filepath.Join(d.RootFolder, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestMissingSnapshot(t *testing.T) {
	d := NewDiskStorage(t.TempDir())
	n, err := d.LoadItems(func(*types.Item) {
		t.Error("no items expected")
	})
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCorruptSnapshot(t *testing.T) {
	d := NewDiskStorage(t.TempDir())
	fileName, _ := d.GetFileName(d.ItemsFile)
	require.NoError(t, os.WriteFile(fileName, []byte("not gzip"), 0o644))
	_, err := d.LoadItems(func(*types.Item) {})
	assert.Error(t, err)
}

func TestGzippedJson(t *testing.T) {
	d := NewDiskStorage(t.TempDir())
	in := map[string][]string{"color": {"red", "blue"}}
	require.NoError(t, d.SaveGzippedJson(in, "selections.jz"))
	out := map[string][]string{}
	require.NoError(t, d.LoadGzippedJson(&out, "selections.jz"))
	assert.Equal(t, in, out)
}
