package storage

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"os"
	"runtime"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	CatalogFile      = "catalog.yaml"
	DefaultItemsFile = "items.jz"
)

// LoadCatalog reads the catalog yaml. Taxonomies and fields without a name
// are rejected since nothing could reference them.
func (d *DiskStorage) LoadCatalog(name string) (*Catalog, error) {
	fileName, _ := d.GetFileName(name)
	b, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(b)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	catalog := &Catalog{}
	if err := yaml.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	for i, t := range catalog.Taxonomies {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog: taxonomy %d has no name", i)
		}
	}
	for i, f := range catalog.Fields {
		if f.Key == "" {
			return nil, fmt.Errorf("catalog: field %d has no key", i)
		}
	}
	if catalog.Templates == nil {
		catalog.Templates = map[string]string{}
	}
	return catalog, nil
}

func (d *DiskStorage) SaveCatalog(catalog *Catalog, name string) error {
	fileName, tmpFileName := d.GetFileName(name)
	b, err := yaml.Marshal(catalog)
	if err != nil {
		return err
	}
	if err = os.WriteFile(tmpFileName, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpFileName, fileName)
}

// LoadItems streams the gzipped item snapshot, one json document per item.
// A missing snapshot is not an error, the repository just starts empty.
func (d *DiskStorage) LoadItems(handle func(item *types.Item)) (int, error) {
	fileName, _ := d.GetFileName(d.ItemsFile)
	file, err := os.Open(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("No item snapshot at %s", fileName)
			return 0, nil
		}
		return 0, err
	}
	defer runtime.GC()
	defer file.Close()

	zipReader, err := gzip.NewReader(file)
	if err != nil {
		return 0, err
	}
	defer zipReader.Close()

	decoder := jsoncompat.NewDecoder(zipReader)
	count := 0
	for {
		item := &types.Item{}
		if err = decoder.Decode(item); err != nil {
			break
		}
		if item.Id == 0 {
			continue
		}
		handle(item)
		count++
	}
	if errors.Is(err, io.EOF) {
		return count, nil
	}
	return count, err
}

// SaveItems writes the snapshot to a temporary file and renames it in place,
// a failed save leaves the previous snapshot untouched.
func (d *DiskStorage) SaveItems(items iter.Seq[*types.Item]) error {
	fileName, tmpFileName := d.GetFileName(d.ItemsFile)

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}

	zipWriter := gzip.NewWriter(file)
	enc := jsoncompat.NewEncoder(zipWriter)
	count := 0
	for item := range items {
		if err = enc.Encode(item); err != nil {
			break
		}
		count++
	}
	if err == nil {
		err = zipWriter.Close()
	} else {
		_ = zipWriter.Close()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}

	if err = os.Rename(tmpFileName, fileName); err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	log.Printf("Saved %d items to %s", count, fileName)
	return nil
}

func (d *DiskStorage) SaveGzippedJson(data any, name string) error {
	fileName, tmpFileName := d.GetFileName(name)

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}

	zipWriter := gzip.NewWriter(file)
	if err = jsoncompat.NewEncoder(zipWriter).Encode(data); err != nil {
		_ = zipWriter.Close()
		_ = file.Close()
		_ = os.Remove(tmpFileName)
		return err
	}
	if err = zipWriter.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFileName)
		return err
	}
	if err = file.Close(); err != nil {
		_ = os.Remove(tmpFileName)
		return err
	}
	return os.Rename(tmpFileName, fileName)
}

func (d *DiskStorage) LoadGzippedJson(data any, name string) error {
	fileName, _ := d.GetFileName(name)
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	zipReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer zipReader.Close()

	err = jsoncompat.NewDecoder(zipReader).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
