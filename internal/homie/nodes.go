package homie

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AddNode registers node under its id, replacing any node with the same id.
//
// Once $nodes has been published, the full node list and the attributes of
// every node are republished so the topology change is visible.
func (d *Device) AddNode(node Node) {
	id := node.ID()

	d.mu.Lock()
	if _, exists := d.nodes[id]; !exists {
		d.nodeOrder = append(d.nodeOrder, id)
	}
	d.nodes[id] = node
	published := d.nodesPublished
	d.mu.Unlock()

	if published {
		d.PublishNodesWith(d.retain, d.qos)
	}
}

// RemoveNode unregisters the node with the given id.
//
// The removed node's subscriptions are dropped, so later commands for it
// are ignored. Once $nodes has been published, $nodes and the remaining node
// attributes are republished with retain=false. The removed node's retained
// topics are left on the broker. When the device has a Journal, $nodes is
// republished retained instead and the node's journaled retained topics are
// cleared.
//
// Returns:
//   - error: ErrNodeNotFound if id is not registered
func (d *Device) RemoveNode(id string) error {
	d.mu.Lock()
	removed, exists := d.nodes[id]
	if !exists {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	delete(d.nodes, id)
	for i, nodeID := range d.nodeOrder {
		if nodeID == id {
			d.nodeOrder = append(d.nodeOrder[:i], d.nodeOrder[i+1:]...)
			break
		}
	}
	published := d.nodesPublished
	d.mu.Unlock()

	d.dropNodeSubscriptions(removed)

	if !published {
		return nil
	}

	if d.journal == nil {
		d.PublishNodesWith(false, d.qos)
		return nil
	}

	d.PublishNodesWith(d.retain, d.qos)
	d.purgeNodeTopics(id)
	return nil
}

// dropNodeSubscriptions unsubscribes the node's topics that are currently
// registered.
func (d *Device) dropNodeSubscriptions(node Node) {
	subs := node.Subscriptions()
	topics := make([]string, 0, len(subs))
	for topic := range subs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		if err := d.RemoveSubscription(topic); err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
			d.logger.Warn("dropping node subscription failed", "device", d.id, "topic", topic, "error", err)
		}
	}
}

// purgeNodeTopics clears every journaled retained topic below the node.
func (d *Device) purgeNodeTopics(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	topics, err := d.journal.Topics(ctx, d.id, d.topics.Node(id)+"/")
	if err != nil {
		d.logger.Warn("journal lookup failed", "device", d.id, "node", id, "error", err)
		return
	}

	for _, topic := range topics {
		d.publish(topic, "", true, d.qos, false)
	}

	if err := d.journal.Forget(ctx, d.id, topics); err != nil {
		d.logger.Warn("journal forget failed", "device", d.id, "node", id, "error", err)
	}

	d.logger.Info("cleared retained topics of removed node", "device", d.id, "node", id, "topics", len(topics))
}

// GetNode returns the node with the given id and whether it exists.
func (d *Device) GetNode(id string) (Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, ok := d.nodes[id]
	return node, ok
}

// Nodes returns the registered nodes in insertion order.
func (d *Device) Nodes() []Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	nodes := make([]Node, 0, len(d.nodeOrder))
	for _, id := range d.nodeOrder {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// PublishNodes publishes $nodes and then each node's attributes with the
// default retain and QoS parameters.
func (d *Device) PublishNodes() {
	d.PublishNodesWith(d.retain, d.qos)
}

// PublishNodesWith is PublishNodes with explicit retain and QoS parameters.
func (d *Device) PublishNodesWith(retain bool, qos byte) {
	nodes := d.Nodes()

	ids := make([]string, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID()
	}
	d.Publish(d.topics.Attribute(AttrNodes), strings.Join(ids, ","), retain, qos)

	d.mu.Lock()
	d.nodesPublished = true
	d.mu.Unlock()

	for _, node := range nodes {
		node.PublishAttributes(retain, qos)
	}
}
