package mqtt

import (
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Operation kinds reported in token failure logs.
const (
	opPublish     = "publish"
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
)

// pendingToken is an operation awaiting the broker's acknowledgment.
type pendingToken struct {
	op    string
	topic string
	token pahomqtt.Token
}

// track hands token to the watcher goroutine without blocking the caller.
// When the queue is full the token is dropped and logged; the operation
// itself is still in flight. After Close the token is dropped silently.
func (c *Client) track(op, topic string, token pahomqtt.Token) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.tokens <- pendingToken{op: op, topic: topic, token: token}:
	case <-c.done:
	default:
		c.getLogger().Warn("mqtt token queue full, not awaiting acknowledgment", "op", op, "topic", topic)
	}
}

// watchTokens starts an await goroutine for each tracked token, so one
// stalled acknowledgment does not hold up the others.
func (c *Client) watchTokens() {
	defer c.wg.Done()

	for {
		select {
		case p := <-c.tokens:
			c.wg.Add(1)
			go c.await(p)
		case <-c.done:
			return
		}
	}
}

func (c *Client) await(p pendingToken) {
	defer c.wg.Done()
	log := c.getLogger()

	timer := time.NewTimer(c.tokenTimeout)
	defer timer.Stop()

	select {
	case <-p.token.Done():
	case <-timer.C:
		log.Warn("mqtt operation timed out", "op", p.op, "topic", p.topic, "timeout", c.tokenTimeout)
		return
	case <-c.done:
		return
	}

	if err := p.token.Error(); err != nil {
		log.Warn("mqtt operation failed", "op", p.op, "topic", p.topic, "error", err)
		if p.op == opSubscribe {
			c.subMu.Lock()
			delete(c.subscriptions, p.topic)
			c.subMu.Unlock()
		}
	}
}

// stopWatcher stops the token watcher and its await goroutines and waits
// for them to exit.
func (c *Client) stopWatcher() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}
