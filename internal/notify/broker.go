package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	redisclient "github.com/Nanai10a/genkai-point-server/internal/redis"
)

// Message is one formatted text block bound for the chat platform. The
// gateway wraps delivery details; the core only produces content.
type Message struct {
	Content string `json:"content"`
}

// Client is one gateway connection draining outbound messages.
type Client struct {
	Messages chan Message
	Done     chan struct{}
}

// Broker fans outbound messages to connected gateways through Redis
// pub/sub, so the core and its consumers may run as separate processes.
type Broker struct {
	redis   *redisclient.Client
	clients map[*Client]bool
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		redis:   redisClient,
		clients: make(map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
	go b.subscribeToRedis()
	return b
}

func (b *Broker) Subscribe() *Client {
	client := &Client{
		Messages: make(chan Message, 100),
		Done:     make(chan struct{}),
	}

	b.mu.Lock()
	b.clients[client] = true
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Info().Int("clientCount", clientCount).Msg("outbound client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clients[client] {
		delete(b.clients, client)
		close(client.Done)

		log.Info().Int("clientCount", len(b.clients)).Msg("outbound client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return b.redis.Publish(ctx, redisclient.OutboundChannel(), data).Err()
}

func (b *Broker) subscribeToRedis() {
	channel := redisclient.OutboundChannel()
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().Str("channel", channel).Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case raw, ok := <-ch:
			if !ok {
				return
			}

			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal outbound message")
				continue
			}

			b.broadcast(msg)
		}
	}
}

func (b *Broker) broadcast(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		select {
		case client.Messages <- msg:
		default:
			log.Warn().Msg("outbound client buffer full, dropping message")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for client := range b.clients {
		close(client.Done)
	}
	b.clients = make(map[*Client]bool)
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
