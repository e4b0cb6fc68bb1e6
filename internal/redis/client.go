package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// OutboundChannel carries messages the gateway relays to the chat platform.
func OutboundChannel() string {
	return "genkai:outbound"
}

// MemberNamesKey is the hash of user id -> display name maintained by the
// gateway.
func MemberNamesKey() string {
	return "genkai:member:names"
}
