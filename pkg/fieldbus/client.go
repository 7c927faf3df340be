// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fieldbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"lampo/pkg/logger"

	wrapper "github.com/grid-x/modbus"
)

// BusError wraps every failure on the physical link: connect errors,
// request timeouts and protocol-level faults all surface as this one
// kind, to be retried at the caller's next scheduled opportunity.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string { return "fieldbus: " + e.Op + ": " + e.Err.Error() }
func (e *BusError) Unwrap() error { return e.Err }

// IsBusError reports whether err is (or wraps) a field-bus failure.
func IsBusError(err error) bool {
	var be *BusError
	return errors.As(err, &be)
}

// Client owns the single Modbus TCP session to the heat pump. The
// wire protocol is strictly request-response over one connection, so
// every operation is serialized through the client mutex, including
// writes issued outside the poll cycle.
type Client struct {
	mu      sync.Mutex
	handler *wrapper.TCPClientHandler
	client  wrapper.Client
	conf    *Config
	log     *logger.Logger
	ctx     context.Context
}

// NewClient creates and connects a Modbus TCP client, blocking until
// the first connection succeeds.
func NewClient(ctx context.Context, conf *Config) *Client {
	c := &Client{
		conf: conf,
		log:  logger.New("FieldBus"),
		ctx:  ctx,
	}
	if err := c.connectWithRetry(); err != nil {
		c.log.Fatal("failed to connect to heat pump: %v", err)
	}
	return c
}

// connectWithRetry tries to connect, retrying indefinitely until success.
func (c *Client) connectWithRetry() error {
	backoff := time.Second
	for {
		if err := c.connect(); err != nil {
			c.log.Error("connect failed: %v (retrying in %v)", err, backoff)
			time.Sleep(backoff)

			// exponential backoff up to 30 seconds
			if backoff < 30*time.Second {
				backoff *= 2
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
			}
			continue
		}
		return nil
	}
}

// connect safely (re)connects the Modbus session once.
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler != nil {
		_ = c.handler.Close()
	}

	url := fmt.Sprintf("%s:%d", c.conf.Connection.Host, c.conf.Connection.Port)
	handler := wrapper.NewTCPClientHandler(url)
	handler.SlaveID = c.conf.Connection.SlaveID
	handler.Timeout = time.Second * time.Duration(c.conf.Connection.Timeout)
	handler.ProtocolRecoveryTimeout = 250 * time.Millisecond
	handler.LinkRecoveryTimeout = 5 * time.Second

	c.log.Info("Connecting to %s...", url)
	if err := handler.Connect(c.ctx); err != nil {
		return fmt.Errorf("modbus connect failed: %w", err)
	}

	c.handler = handler
	c.client = wrapper.NewClient(handler)
	c.log.Info("Connected to %s", url)
	return nil
}

// retry wraps bus operations and reconnects automatically if needed.
func (c *Client) retry(op func() error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isConnError(err) {
			c.log.Debug("retry after err: %+v", err)
			continue
		}

		c.log.Error("connection error: %v, reconnecting...", err)
		c.connectWithRetry() // blocks until connected
	}
	return err
}

// ReadHoldingRegisters reads quantity contiguous 16-bit holding
// registers starting at addr.
func (c *Client) ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	var data []byte
	err := c.retry(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		var rerr error
		data, rerr = c.client.ReadHoldingRegisters(ctx, addr, quantity)
		return rerr
	})
	if err != nil {
		return nil, &BusError{Op: fmt.Sprintf("read registers %d+%d", addr, quantity), Err: err}
	}
	words, err := wordsFromBytes(data, quantity)
	if err != nil {
		return nil, &BusError{Op: fmt.Sprintf("read registers %d+%d", addr, quantity), Err: err}
	}
	return words, nil
}

// ReadCoils reads quantity single-bit coils starting at addr.
func (c *Client) ReadCoils(ctx context.Context, addr, quantity uint16) ([]bool, error) {
	var data []byte
	err := c.retry(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		var rerr error
		data, rerr = c.client.ReadCoils(ctx, addr, quantity)
		return rerr
	})
	if err != nil {
		return nil, &BusError{Op: fmt.Sprintf("read coils %d+%d", addr, quantity), Err: err}
	}
	coils, err := coilsFromBytes(data, quantity)
	if err != nil {
		return nil, &BusError{Op: fmt.Sprintf("read coils %d+%d", addr, quantity), Err: err}
	}
	return coils, nil
}

// WriteRegister writes a single holding register.
func (c *Client) WriteRegister(ctx context.Context, addr, value uint16) error {
	c.log.Info("WriteRegister %d <- %d", addr, value)
	err := c.retry(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, err := c.client.WriteSingleRegister(ctx, addr, value)
		return err
	})
	if err != nil {
		return &BusError{Op: fmt.Sprintf("write register %d", addr), Err: err}
	}
	return nil
}

// WriteCoil writes a single coil on or off.
func (c *Client) WriteCoil(ctx context.Context, addr uint16, on bool) error {
	c.log.Info("WriteCoil %d <- %v", addr, on)
	var value uint16
	if on {
		value = coilOn
	}
	err := c.retry(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, err := c.client.WriteSingleCoil(ctx, addr, value)
		return err
	})
	if err != nil {
		return &BusError{Op: fmt.Sprintf("write coil %d", addr), Err: err}
	}
	return nil
}

// Close closes the underlying handler.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil {
		_ = c.handler.Close()
	}
}

// --- helpers ---

func isConnError(err error) bool {
	if err == nil {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "closed by the remote host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection refused")
}
