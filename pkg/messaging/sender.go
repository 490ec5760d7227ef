package messaging

import (
	"context"
	"fmt"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	amqp "github.com/rabbitmq/amqp091-go"
)

func Connect(cfg RabbitConfig) (*amqp.Connection, error) {
	return amqp.DialConfig(cfg.Url, amqp.Config{
		Vhost:      cfg.VHost,
		Properties: amqp.NewConnectionProperties(),
	})
}

func DefineTopic(ch *amqp.Channel, prefix string, topic ChangeTopic) error {
	name := getName(prefix, topic)
	return ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-delete
		false,   // internal
		false,   // noWait
		nil,     // arguments
	)
}

// DefineTopics declares every content topic, both sides call it so the order
// they start in does not matter.
func DefineTopics(conn *amqp.Connection, prefix string) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	for _, topic := range []ChangeTopic{ContentUpserted, ContentDeleted, CatalogChanged} {
		if err = DefineTopic(ch, prefix, topic); err != nil {
			return fmt.Errorf("define %s: %w", topic, err)
		}
	}
	return nil
}

func getName(prefix string, topic ChangeTopic) string {
	return fmt.Sprintf("%s_%s", prefix, topic)
}

func SendChange[V any](ctx context.Context, c *amqp.Connection, prefix string, topic ChangeTopic, data V) error {
	bytes, err := jsoncompat.Marshal(data)
	if err != nil {
		return err
	}
	ch, err := c.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	name := getName(prefix, topic)
	return ch.PublishWithContext(
		ctx,
		name,
		name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        bytes,
		},
	)
}
