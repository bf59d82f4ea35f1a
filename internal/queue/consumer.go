package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartAuditConsumer connects to RabbitMQ, declares the two audit queues
// and appends every event to logs/audit.log, one line per event. It runs a
// reconnect loop with exponential backoff and never returns under normal
// operation; run it on its own goroutine. A broker that is down only delays
// audit lines, it never blocks request handling.
func StartAuditConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn); err != nil {
			log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}

	for _, q := range []string{bookRegisteredQueue, userDeletedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}

	books, err := ch.Consume(bookRegisteredQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", bookRegisteredQueue, err)
	}
	users, err := ch.Consume(userDeletedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", userDeletedQueue, err)
	}

	for {
		select {
		case d, ok := <-books:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ack(d, handleBookRegistered(d.Body))
		case d, ok := <-users:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ack(d, handleUserDeleted(d.Body))
		}
	}
}

func ack(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("audit-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject without requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleBookRegistered(body []byte) error {
	var ev BookRegisteredEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Book registered | book_id=%d | isbn=%q | title=%q | author_id=%d | company_id=%d\n",
		ev.RegisteredAt, ev.BookID, ev.ISBN, ev.Title, ev.AuthorID, ev.CompanyID)
	return appendAuditLine(line)
}

func handleUserDeleted(body []byte) error {
	var ev UserDeletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] User deleted | user_id=%d | email=%q | books_deleted=%d\n",
		ev.DeletedAt, ev.UserID, ev.Email, ev.BooksDeleted)
	return appendAuditLine(line)
}

func appendAuditLine(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
