// Package redislib provides basic bytes & interface set/get/exists functions over a redis pool
package redislib

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

/***************************************************************************************************************
****************************************************************************************************************
* Redis functions ************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// Client wraps a redigo pool. Keys are namespaced with Prefix.
type Client struct {
	pool   *redis.Pool
	Prefix string
}

// New creates a client whose connections dial addr lazily
func New(addr, prefix string) *Client {
	return &Client{
		pool: &redis.Pool{
			// Max number of idle connections in the pool
			MaxIdle: 80,
			// Max number of connections
			MaxActive:   12000,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr)
			},
		},
		Prefix: prefix,
	}
}

// Close releases every pooled connection
func (c *Client) Close() error {
	return c.pool.Close()
}

func (c *Client) do(cmd string, args ...interface{}) (interface{}, error) {
	conn := c.pool.Get()
	defer conn.Close()
	return conn.Do(cmd, args...)
}

// Ping tests connectivity for redis (PONG should be returned)
func (c *Client) Ping() error {
	s, err := redis.String(c.do("PING"))
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	if s != "PONG" {
		return fmt.Errorf("redis ping: unexpected reply %q", s)
	}
	return nil
}

// Set executes the redis SET command
func (c *Client) Set(key string, value []byte) error {
	if _, err := c.do("SET", c.Prefix+key, value); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetInterface stores a structure as JSON
func (c *Client) SetInterface(key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return c.Set(key, value)
}

// Get executes the redis GET command. found is false when the key does not exist.
func (c *Client) Get(key string) (value []byte, found bool, err error) {
	value, err = redis.Bytes(c.do("GET", c.Prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// GetInterface decodes a structure stored by SetInterface
func (c *Client) GetInterface(key string, payload interface{}) (bool, error) {
	value, found, err := c.Get(key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(value, payload); err != nil {
		return true, fmt.Errorf("redis get %s: %w", key, err)
	}
	return true, nil
}
