package messaging

import (
	"log"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	amqp "github.com/rabbitmq/amqp091-go"
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := getName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	err = ch.QueueBind(q.Name, name, name, false, nil)
	if err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

// ListenToTopic consumes the topic on its own goroutine. Every instance gets
// an exclusive queue so all of them see every change.
func ListenToTopic(ch *amqp.Channel, prefix string, topic ChangeTopic, handler func(amqp.Delivery) error) error {
	msgs, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}
	go func() {
		defer ch.Close()
		consume(msgs, handler)
	}()
	return nil
}

// consume acks handled messages. A message that fails is dropped instead of
// requeued, it would fail the same way again.
func consume(msgs <-chan amqp.Delivery, handler func(amqp.Delivery) error) {
	for d := range msgs {
		if err := handler(d); err != nil {
			log.Printf("Error processing message on %s: %v", d.Exchange, err)
			if err = d.Nack(false, false); err != nil {
				log.Printf("Failed to nack message: %v", err)
			}
			continue
		}
		if err := d.Ack(false); err != nil {
			log.Printf("Failed to ack message: %v", err)
		}
	}
}

// Decode returns a handler that unmarshals the body before passing it on.
func Decode[V any](fn func(V) error) func(amqp.Delivery) error {
	return func(d amqp.Delivery) error {
		var v V
		if err := jsoncompat.Unmarshal(d.Body, &v); err != nil {
			return err
		}
		return fn(v)
	}
}
