package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/messaging"
	"github.com/matst80/slask-facets/pkg/storage"
	"github.com/matst80/slask-facets/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// readItems accepts either a json array or a gzipped snapshot as written by
// the filter service.
func readItems(fileName string) ([]*types.Item, error) {
	if strings.HasSuffix(fileName, ".jz") || strings.HasSuffix(fileName, ".gz") {
		d := storage.NewDiskStorage(filepath.Dir(fileName))
		d.ItemsFile = filepath.Base(fileName)
		items := make([]*types.Item, 0)
		_, err := d.LoadItems(func(item *types.Item) {
			items = append(items, item)
		})
		return items, err
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	items := make([]*types.Item, 0)
	if err = jsoncompat.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func parseIds(s string) (messaging.ContentDelete, error) {
	ret := messaging.ContentDelete{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ret = append(ret, types.ItemId(id))
	}
	return ret, nil
}

func publishItems(ctx context.Context, conn *amqp.Connection, prefix string, items []*types.Item, chunkSize int) error {
	sent := 0
	for chunk := range slices.Chunk(items, max(chunkSize, 1)) {
		if err := messaging.SendChange(ctx, conn, prefix, messaging.ContentUpserted, messaging.ContentUpsert(chunk)); err != nil {
			return err
		}
		sent += len(chunk)
		log.Printf("Published %d/%d items", sent, len(items))
	}
	return nil
}

func main() {
	catalogFile := flag.String("catalog", "", "catalog yaml to publish")
	itemsFile := flag.String("items", "", "json array or gzipped snapshot of items to publish")
	deleteIds := flag.String("delete", "", "comma separated item ids to delete")
	chunkSize := flag.Int("chunk", 200, "items per message")
	flag.Parse()

	amqpUrl, ok := os.LookupEnv("RABBIT_HOST")
	if !ok {
		log.Fatal("RABBIT_HOST environment variable is not set")
	}
	cfg := messaging.RabbitConfig{
		Url:    amqpUrl,
		VHost:  os.Getenv("RABBIT_VHOST"),
		Prefix: common.Env("TOPIC_PREFIX", "content"),
	}
	conn, err := messaging.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	if err = messaging.DefineTopics(conn, cfg.Prefix); err != nil {
		log.Fatalf("Failed to declare topics: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *catalogFile != "" {
		catalog, err := storage.NewDiskStorage(filepath.Dir(*catalogFile)).LoadCatalog(filepath.Base(*catalogFile))
		if err != nil {
			log.Fatalf("Could not read catalog: %v", err)
		}
		if err = messaging.SendChange(ctx, conn, cfg.Prefix, messaging.CatalogChanged, catalog); err != nil {
			log.Fatalf("Failed to publish catalog: %v", err)
		}
		log.Printf("Published catalog with %d taxonomies and %d fields", len(catalog.Taxonomies), len(catalog.Fields))
	}

	if *itemsFile != "" {
		items, err := readItems(*itemsFile)
		if err != nil {
			log.Fatalf("Could not read items: %v", err)
		}
		if err = publishItems(ctx, conn, cfg.Prefix, items, *chunkSize); err != nil {
			log.Fatalf("Failed to publish items: %v", err)
		}
	}

	if *deleteIds != "" {
		ids, err := parseIds(*deleteIds)
		if err != nil {
			log.Fatal(err)
		}
		if err = messaging.SendChange(ctx, conn, cfg.Prefix, messaging.ContentDeleted, ids); err != nil {
			log.Fatalf("Failed to publish deletes: %v", err)
		}
		log.Printf("Published %d deletes", len(ids))
	}
}
