package tracking

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/matst80/slask-facets/pkg/common"
	"github.com/matst80/slask-facets/pkg/messaging"
	"github.com/matst80/slask-facets/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitTracking publishes filter events in batches on the tracking topic.
// Tracking never blocks or fails a request, publish errors are only logged.
type RabbitTracking struct {
	prefix     string
	connection *amqp.Connection
	queue      *common.QueueHandler[*types.FilterEvent]
	send       func(events []*types.FilterEvent) error
}

func NewRabbitTracking(conn *amqp.Connection, prefix string) (*RabbitTracking, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	if err = messaging.DefineTopic(ch, prefix, messaging.FilterTracking); err != nil {
		return nil, err
	}
	ret := &RabbitTracking{
		prefix:     prefix,
		connection: conn,
	}
	ret.send = func(events []*types.FilterEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return messaging.SendChange(ctx, ret.connection, ret.prefix, messaging.FilterTracking, events)
	}
	ret.start()
	return ret, nil
}

func (rt *RabbitTracking) start() {
	rt.queue = common.NewQueueHandler(func(events []*types.FilterEvent) {
		if err := rt.send(events); err != nil {
			log.Printf("Error sending %d filter events: %v", len(events), err)
		}
	}, 100, 5*time.Second)
}

func clientIp(r *http.Request) string {
	ip := r.Header.Get("X-Real-Ip")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return ip
}

func (rt *RabbitTracking) TrackFilter(event *types.FilterEvent, r *http.Request) {
	if r != nil {
		event.Referer = r.Header.Get("Referer")
		event.UserAgent = r.UserAgent()
		event.Ip = clientIp(r)
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	rt.queue.Add(event)
}

// Close publishes what is queued. The connection is owned by the caller.
func (rt *RabbitTracking) Close() error {
	rt.queue.Stop()
	return nil
}
