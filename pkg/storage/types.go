package storage

import (
	"fmt"
	"path"
	"time"

	"github.com/matst80/slask-facets/pkg/types"
)

type DiskStorage struct {
	RootFolder string
	ItemsFile  string
}

func NewDiskStorage(rootFolder string) *DiskStorage {
	return &DiskStorage{
		RootFolder: rootFolder,
		ItemsFile:  DefaultItemsFile,
	}
}

func (ds *DiskStorage) GetFileName(name string) (string, string) {
	fileName := path.Join(ds.RootFolder, name)
	tmpFileName := fileName + ".tmp-" + fmt.Sprintf("%d", time.Now().UnixMilli())
	return fileName, tmpFileName
}

// Catalog is everything the filter service needs besides the items: the
// taxonomies with their terms, the custom fields and the item templates.
type Catalog struct {
	Taxonomies []types.Taxonomy    `yaml:"taxonomies" json:"taxonomies"`
	Fields     []types.CustomField `yaml:"fields" json:"fields"`
	Templates  map[string]string   `yaml:"templates" json:"templates"`
}
