package queue

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DialTimeout bounds the TCP connect plus the AMQP handshake.
const DialTimeout = 5 * time.Second

// Dial connects to the broker.  A server that accepts the socket but never
// answers the handshake fails after timeout instead of the library's 30s.
func Dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}
