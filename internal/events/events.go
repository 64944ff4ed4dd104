package events

import (
	// Standard library
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	// Internal packages
	"photogallery/internal/models"

	// Third-party
	"github.com/segmentio/kafka-go"
)

// CollectionCreated is published once per stored collection.
type CollectionCreated struct {
	Event             string    `json:"event"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	PhotographerEmail string    `json:"photographerEmail"`
	PhotoCount        int       `json:"photoCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Publisher announces gallery changes to other services.
type Publisher interface {
	CollectionCreated(ctx context.Context, c *models.Collection) error
	Close() error
}

// NewCollectionCreated builds the event payload for c.
func NewCollectionCreated(c *models.Collection) CollectionCreated {
	return CollectionCreated{
		Event:             "collection.created",
		Slug:              c.Slug,
		Name:              c.Name,
		PhotographerEmail: c.PhotographerEmail,
		PhotoCount:        len(c.Photos),
		CreatedAt:         c.CreatedAt.UTC(),
	}
}

// messageWriter is the part of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events keyed by slug.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher returns a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same slug, same partition
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) CollectionCreated(ctx context.Context, c *models.Collection) error {
	value, err := json.Marshal(NewCollectionCreated(c))
	if err != nil {
		return fmt.Errorf("marshal collection.created for %s: %w", c.Slug, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(c.Slug), Value: value})
	if err != nil {
		return fmt.Errorf("publish collection.created for %s: %w", c.Slug, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) CollectionCreated(ctx context.Context, c *models.Collection) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

// New returns a KafkaPublisher when brokers are set, otherwise a NopPublisher.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		log.Println("Kafka brokers not configured, collection events are disabled.")
		return NopPublisher{}
	}
	log.Printf("Publishing collection events to %s on %v", topic, brokers)
	return NewKafkaPublisher(brokers, topic)
}
