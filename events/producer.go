package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"smart-parking/models"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Producer publishes allocation records to Kafka for downstream analytics.
// The whole pipeline is optional: serve() only builds one when bootstrap
// servers are configured.
type Producer struct {
	producer     *kafka.Producer
	topic        string
	deliveryChan chan kafka.Event

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewProducer(bootstrapServers, topic string) (*Producer, error) {
	producerConfig := &kafka.ConfigMap{
		"bootstrap.servers":  bootstrapServers,
		"compression.type":   "snappy",
		"acks":               "all",
		"linger.ms":          20,
		"enable.idempotence": true,
		"request.timeout.ms": 30000,
	}

	p, err := kafka.NewProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	producer := &Producer{
		producer:     p,
		topic:        topic,
		deliveryChan: make(chan kafka.Event, 256),
		ctx:          ctx,
		cancel:       cancel,
	}

	producer.wg.Add(1)
	go producer.handleDeliveryReports()

	log.Printf("Kafka producer initialized - topic: %s, servers: %s", topic, bootstrapServers)
	return producer, nil
}

func (p *Producer) handleDeliveryReports() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case e := <-p.deliveryChan:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				log.Printf("allocation event delivery failed: %v", m.TopicPartition.Error)
			}
		}
	}
}

// PublishAllocation sends one allocation record, keyed by session ID.
func (p *Producer) PublishAllocation(record *models.AllocationRecord) error {
	payload, err := record.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize allocation: %w", err)
	}

	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(record.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "vehicle_category", Value: []byte(record.VehicleCategory)},
		},
	}

	if err := p.producer.Produce(message, p.deliveryChan); err != nil {
		return fmt.Errorf("failed to queue allocation event: %w", err)
	}
	return nil
}

// Close flushes pending messages and shuts the producer down.
func (p *Producer) Close() {
	p.cancel()
	remaining := p.producer.Flush(int((10 * time.Second).Milliseconds()))
	if remaining > 0 {
		log.Printf("%d allocation events still queued after flush timeout", remaining)
	}
	p.wg.Wait()
	p.producer.Close()
}
