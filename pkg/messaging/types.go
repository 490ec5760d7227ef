package messaging

import (
	"github.com/matst80/slask-facets/pkg/types"
)

type ChangeTopic string

const (
	ContentUpserted ChangeTopic = "content_upserted"
	ContentDeleted  ChangeTopic = "content_deleted"
	CatalogChanged  ChangeTopic = "catalog_changed"
	FilterTracking  ChangeTopic = "filter_tracking"
)

type RabbitConfig struct {
	Url    string
	VHost  string
	Prefix string
}

// ContentUpsert is the payload of ContentUpserted, complete items replacing
// whatever is stored under their ids.
type ContentUpsert []*types.Item

// ContentDelete is the payload of ContentDeleted.
type ContentDelete []types.ItemId
