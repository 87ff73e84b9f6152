// Package messaging publishes and consumes broker messages behind one small
// interface. Drivers exist for NATS, NSQ, Kafka, Google Pub/Sub and an
// in-process memory broker.
//
// Consumers always settle messages after the handler returns: a nil error
// acks, anything else nacks so the broker can redeliver.
package messaging
