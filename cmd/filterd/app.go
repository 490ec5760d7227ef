package main

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/index"
	"github.com/matst80/slask-facets/pkg/messaging"
	"github.com/matst80/slask-facets/pkg/render"
	"github.com/matst80/slask-facets/pkg/server"
	"github.com/matst80/slask-facets/pkg/storage"
	"github.com/matst80/slask-facets/pkg/tracking"
	"github.com/matst80/slask-facets/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// change is one queued content change, either an upsert or a delete.
type change struct {
	item    *types.Item
	deleted types.ItemId
}

type app struct {
	repository *index.Repository
	renderer   *render.TemplateRenderer
	storage    *storage.DiskStorage
	cache      *server.Cache
	changes    *common.QueueHandler[change]
	dirty      atomic.Bool
	conn       *amqp.Connection
	tracking   *tracking.RabbitTracking
	prefix     string
}

func newApp(repository *index.Repository, renderer *render.TemplateRenderer, diskStorage *storage.DiskStorage) *app {
	a := &app{
		repository: repository,
		renderer:   renderer,
		storage:    diskStorage,
	}
	a.changes = common.NewQueueHandler(a.applyChanges, 500, time.Second)
	return a
}

// applyChanges writes a batch to the repository. Consecutive changes of the
// same kind go in one call so the version is bumped once per run.
func (a *app) applyChanges(batch []change) {
	upserts := make([]*types.Item, 0, len(batch))
	deletes := make([]types.ItemId, 0)
	flush := func() {
		if len(upserts) > 0 {
			a.repository.Upsert(upserts...)
			upserts = upserts[:0]
		}
		if len(deletes) > 0 {
			a.repository.Delete(deletes...)
			deletes = deletes[:0]
		}
	}
	for _, c := range batch {
		if c.item != nil {
			if len(deletes) > 0 {
				flush()
			}
			upserts = append(upserts, c.item)
			continue
		}
		if len(upserts) > 0 {
			flush()
		}
		deletes = append(deletes, c.deleted)
	}
	flush()
	a.dirty.Store(true)
	log.Printf("Applied %d content changes, %d items, version %d", len(batch), a.repository.Len(), a.repository.Version())
}

func (a *app) handleUpserts(items messaging.ContentUpsert) error {
	log.Printf("Got upserts %d", len(items))
	for _, item := range items {
		if item == nil || item.Id == 0 {
			continue
		}
		a.changes.Add(change{item: item})
	}
	return nil
}

func (a *app) handleDeletes(ids messaging.ContentDelete) error {
	log.Printf("Got deletes %d", len(ids))
	for _, id := range ids {
		a.changes.Add(change{deleted: id})
	}
	return nil
}

// applyCatalog swaps schema and templates. A template set that does not
// parse is rejected before the schema is touched.
func (a *app) applyCatalog(catalog storage.Catalog) error {
	if err := a.renderer.SetTemplates(catalog.Templates); err != nil {
		return err
	}
	a.repository.SetSchema(catalog.Taxonomies, catalog.Fields)
	log.Printf("Catalog updated, %d taxonomies, %d fields, %d templates", len(catalog.Taxonomies), len(catalog.Fields), len(catalog.Templates))
	if a.storage != nil {
		if err := a.storage.SaveCatalog(&catalog, storage.CatalogFile); err != nil {
			log.Printf("Failed to save catalog: %v", err)
		}
	}
	return nil
}

func (a *app) connectAmqp(cfg messaging.RabbitConfig) error {
	conn, err := messaging.Connect(cfg)
	if err != nil {
		return err
	}
	a.conn = conn
	a.prefix = cfg.Prefix
	if err = messaging.DefineTopics(conn, cfg.Prefix); err != nil {
		return err
	}
	listen := func(topic messaging.ChangeTopic, handler func(amqp.Delivery) error) error {
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		return messaging.ListenToTopic(ch, cfg.Prefix, topic, handler)
	}
	if err = listen(messaging.ContentUpserted, messaging.Decode(a.handleUpserts)); err != nil {
		return err
	}
	if err = listen(messaging.ContentDeleted, messaging.Decode(a.handleDeletes)); err != nil {
		return err
	}
	if err = listen(messaging.CatalogChanged, messaging.Decode(a.applyCatalog)); err != nil {
		return err
	}
	log.Printf("Listening for content changes on %s", cfg.Prefix)
	if a.tracking, err = tracking.NewRabbitTracking(conn, cfg.Prefix); err != nil {
		log.Printf("Filter tracking disabled: %v", err)
	}
	return nil
}

func (a *app) saveIfDirty() error {
	if !a.dirty.CompareAndSwap(true, false) {
		return nil
	}
	if err := a.storage.SaveItems(a.repository.Items()); err != nil {
		a.dirty.Store(true)
		return err
	}
	return nil
}

// maintain saves the snapshot after changes and prunes the local facet cache.
func (a *app) maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.saveIfDirty(); err != nil {
				log.Printf("Failed to save items: %v", err)
			}
			if a.cache != nil {
				if n := a.cache.Prune(); n > 0 {
					log.Printf("Pruned %d facet cache entries", n)
				}
			}
		}
	}
}

func (a *app) shutdownHooks() []common.ShutdownHook {
	return []common.ShutdownHook{
		func(ctx context.Context) error {
			a.changes.Stop()
			return a.saveIfDirty()
		},
		func(ctx context.Context) error {
			if a.tracking == nil {
				return nil
			}
			return a.tracking.Close()
		},
		func(ctx context.Context) error {
			if a.conn == nil {
				return nil
			}
			return a.conn.Close()
		},
		func(ctx context.Context) error {
			if a.cache == nil {
				return nil
			}
			return a.cache.Close()
		},
	}
}
