package lib

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"ptx/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig() kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         "ptxProducer",
		"acks":              "all",
	}
}

func GetKafkaConsumerConfig(groupId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"group.id":          groupId,
		"auto.offset.reset": "smallest",
		"retry.backoff.ms":  100,
	}
}

// KafkaConsume subscribes to a topic and feeds each message body to the
// handler. Used for the local notification and email queues.
func KafkaConsume(groupId string, topic string, handler types.Handler) {
	cfg := GetKafkaConsumerConfig(groupId)
	consumer, err := kafka.NewConsumer(&cfg)
	if err != nil {
		log.Printf("Error creating consumer for %s: %s\n", topic, err.Error())
		return
	}
	if err := consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		log.Printf("Error subscribing to %s: %s\n", topic, err.Error())
		return
	}
	go func() {
		log.Printf("[%s] waiting for messages...\n", topic)
		run := true
		for run {
			ev := consumer.Poll(100)
			switch e := ev.(type) {
			case *kafka.Message:
				handler(string(e.Value))
			case kafka.Error:
				log.Printf("[%s] consumer error: %v\n", topic, e)
				run = false
			}
		}
		consumer.Close()
	}()
}

func KafkaProduceMessage(clientId string, topic string, payload *types.JSONB) error {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         clientId,
		"acks":              "all",
	})
	if err != nil {
		log.Printf("Error creating producer: %s\n", err.Error())
		return err
	}
	defer p.Close()
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	deliveryChan := make(chan kafka.Event, 1)
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, deliveryChan)
	if err != nil {
		return err
	}
	e := <-deliveryChan
	if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
		return m.TopicPartition.Error
	}
	return nil
}

func KafkaCreateTopics(topics ...string) ([]kafka.TopicResult, error) {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
	})
	if err != nil {
		return nil, err
	}
	defer admin.Close()
	specs := make([]kafka.TopicSpecification, 0, len(topics))
	for _, t := range topics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	results, err := admin.CreateTopics(context.Background(), specs)
	if err != nil {
		return nil, err
	}
	return results, nil
}
