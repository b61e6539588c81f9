package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// QueueType distinguishes publish/subscribe topics from point-to-point queues.
type QueueType string

// Queue types.
const (
	QueueTypeTopic QueueType = "topic"
	QueueTypeQueue QueueType = "queue"
)

// QueueConfig configures a message queue node.
type QueueConfig struct {
	QueueType QueueType `json:"queueType"`
	QueueName string    `json:"queueName"`
}

// NewQueueConfig returns the default queue payload.
func NewQueueConfig() *QueueConfig {
	return &QueueConfig{QueueType: QueueTypeTopic}
}

// Kind implements Config.
func (c *QueueConfig) Kind() Kind { return KindQueue }

// Clone implements Config.
func (c *QueueConfig) Clone() Config {
	out := *c
	return &out
}

// Validate implements Config.
func (c *QueueConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.QueueType, validation.Required, validation.In(QueueTypeTopic, QueueTypeQueue)),
	)
}

// Operation is the kind of table access a database node performs.
type Operation string

// Database operations.
const (
	OperationRead   Operation = "read"
	OperationWrite  Operation = "write"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// DatabaseConfig configures a database operation node.
type DatabaseConfig struct {
	Operation Operation `json:"operation"`
	Table     string    `json:"table"`
}

// NewDatabaseConfig returns the default database payload.
func NewDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{Operation: OperationRead}
}

// Kind implements Config.
func (c *DatabaseConfig) Kind() Kind { return KindDatabase }

// Clone implements Config.
func (c *DatabaseConfig) Clone() Config {
	out := *c
	return &out
}

// Validate implements Config.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Operation, validation.Required, validation.In(OperationRead, OperationWrite, OperationUpdate, OperationDelete)),
	)
}
