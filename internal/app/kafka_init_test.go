package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	logger := log.WithField("component", "test")

	producer, err := initKafkaProducer("", logger)
	if err != nil {
		t.Fatalf("empty brokers must not be an error: %v", err)
	}
	if producer != nil {
		t.Fatal("expected nil producer for empty brokers")
	}
}

func TestCloseKafka_NilProducer(t *testing.T) {
	// Не должно паниковать.
	closeKafka(nil, log.WithField("component", "test"))
}
