package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/index"
	"github.com/matst80/slask-facets/pkg/messaging"
	"github.com/matst80/slask-facets/pkg/render"
	"github.com/matst80/slask-facets/pkg/server"
	"github.com/matst80/slask-facets/pkg/storage"
	"github.com/matst80/slask-facets/pkg/types"
)

var (
	listenAddr = common.Env("LISTEN_ADDR", ":8080")
	dataFolder = common.Env("DATA_FOLDER", "data")
	prefix     = common.Env("TOPIC_PREFIX", "content")
)

func main() {
	catalogFile := flag.String("catalog", common.Env("CATALOG", storage.CatalogFile), "catalog yaml inside the data folder")
	saveInterval := flag.Duration("save-interval", time.Minute, "how often changed items are written to disk")
	flag.Parse()

	diskStorage := storage.NewDiskStorage(dataFolder)
	catalog, err := diskStorage.LoadCatalog(*catalogFile)
	if err != nil {
		log.Printf("Could not load catalog: %v", err)
		catalog = &storage.Catalog{Templates: map[string]string{}}
	}

	repository := index.NewRepository()
	repository.SetSchema(catalog.Taxonomies, catalog.Fields)
	renderer, err := render.NewTemplateRenderer(catalog.Templates)
	if err != nil {
		log.Fatalf("Invalid templates in catalog: %v", err)
	}

	batch := make([]*types.Item, 0, 1024)
	n, err := diskStorage.LoadItems(func(item *types.Item) {
		batch = append(batch, item)
		if len(batch) == cap(batch) {
			repository.Upsert(batch...)
			batch = make([]*types.Item, 0, 1024)
		}
	})
	repository.Upsert(batch...)
	if err != nil {
		log.Printf("Could not load items from file: %v", err)
	}
	log.Printf("Loaded %d items", n)

	app := newApp(repository, renderer, diskStorage)

	filterServer := server.NewFilterServer(repository, renderer)
	filterServer.FacetTTL = common.DurationEnv("FACET_TTL", time.Minute, time.Second)

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	app.cache = server.NewCache(os.Getenv("REDIS_URL"), os.Getenv("REDIS_PASSWORD"), db)
	filterServer.Cache = app.cache

	if secret, ok := os.LookupEnv("NONCE_SECRET"); ok && secret != "" {
		filterServer.Nonces = server.NewNonceIssuer(secret, common.DurationEnv("NONCE_TTL", 12*time.Hour, time.Second))
	} else {
		log.Printf("NONCE_SECRET not set, filter requests are not verified")
	}

	if amqpUrl, ok := os.LookupEnv("RABBIT_HOST"); ok {
		err = app.connectAmqp(messaging.RabbitConfig{
			Url:    amqpUrl,
			VHost:  os.Getenv("RABBIT_VHOST"),
			Prefix: prefix,
		})
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		if app.tracking != nil {
			filterServer.Tracking = app.tracking
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.maintain(ctx, *saveInterval)

	timeouts := common.LoadTimeoutConfig(common.DefaultTimeouts)
	srv := common.NewServer(listenAddr, filterServer.Routes(), timeouts)
	if err = common.RunServerWithShutdown(ctx, srv, "filterd", timeouts, app.shutdownHooks()...); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
