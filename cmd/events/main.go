package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"support-copilot-be/pkg/events"
	pktNats "support-copilot-be/pkg/nats"
)

// Tails the durable event stream. Useful for watching ticket lifecycle
// events while exercising the copilot locally.
func main() {
	subject := flag.String("subject", "events.>", "subject filter, e.g. events.TICKET_CREATED")
	durable := flag.String("durable", "events-tail", "durable consumer name")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://localhost:4222"
	}

	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}

	err = sub.Subscribe(*subject, *durable, func(ctx context.Context, event events.Event) error {
		log.Printf("[%s] %s %v", event.Timestamp().Format("15:04:05"), event.EventType(), event.Payload())
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Subscribe failed: %v", err)
	}

	log.Printf("Tailing %s (durable %s), Ctrl-C to stop", *subject, *durable)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}
