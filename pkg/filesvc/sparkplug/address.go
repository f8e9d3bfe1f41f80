// Package sparkplug implements the Sparkplug B MQTT client for the Files
// service: connection lifecycle, birth/death/rebirth handling and the
// outbound sequence counter.
package sparkplug

import (
	"fmt"
	"strings"
)

const namespace = "spBv1.0"

// MessageKind is the Sparkplug message type carried in a topic.
type MessageKind string

const (
	KindBirth MessageKind = "BIRTH"
	KindDeath MessageKind = "DEATH"
	KindData  MessageKind = "DATA"
	KindCmd   MessageKind = "CMD"
)

// Address identifies a Sparkplug participant. Device is empty for node
// addresses.
type Address struct {
	Group  string
	Node   string
	Device string
}

// ParseAddress parses a "group/node" or "group/node/device" address string.
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Address{}, fmt.Errorf("malformed sparkplug address %q", s)
		}
		return Address{Group: parts[0], Node: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return Address{}, fmt.Errorf("malformed sparkplug address %q", s)
		}
		return Address{Group: parts[0], Node: parts[1], Device: parts[2]}, nil
	default:
		return Address{}, fmt.Errorf("malformed sparkplug address %q", s)
	}
}

// IsDevice reports whether the address names a device rather than a node.
func (a Address) IsDevice() bool {
	return a.Device != ""
}

// Equals reports whether two addresses name the same participant.
func (a Address) Equals(b Address) bool {
	return a == b
}

func (a Address) String() string {
	if a.IsDevice() {
		return a.Group + "/" + a.Node + "/" + a.Device
	}
	return a.Group + "/" + a.Node
}

// Topic names a Sparkplug message channel for one participant and kind.
type Topic struct {
	Address Address
	Kind    MessageKind
}

// Topic builds the topic for a message of the given kind from this address.
func (a Address) Topic(kind MessageKind) Topic {
	return Topic{Address: a, Kind: kind}
}

func (t Topic) String() string {
	prefix := "N"
	if t.Address.IsDevice() {
		prefix = "D"
	}
	parts := []string{namespace, t.Address.Group, prefix + string(t.Kind), t.Address.Node}
	if t.Address.IsDevice() {
		parts = append(parts, t.Address.Device)
	}
	return strings.Join(parts, "/")
}

// ParseTopic parses an MQTT topic string back into a Topic. Unknown message
// kinds and malformed topics are errors; the caller logs and drops those
// messages.
func ParseTopic(s string) (Topic, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 4 || len(parts) > 5 || parts[0] != namespace {
		return Topic{}, fmt.Errorf("not a sparkplug topic: %q", s)
	}

	typ := parts[2]
	if len(typ) < 2 {
		return Topic{}, fmt.Errorf("malformed message type in topic %q", s)
	}

	addr := Address{Group: parts[1], Node: parts[3]}
	switch typ[0] {
	case 'N':
		if len(parts) != 4 {
			return Topic{}, fmt.Errorf("node topic with device element: %q", s)
		}
	case 'D':
		if len(parts) != 5 {
			return Topic{}, fmt.Errorf("device topic without device element: %q", s)
		}
		addr.Device = parts[4]
	default:
		return Topic{}, fmt.Errorf("unknown message type %q in topic %q", typ, s)
	}

	kind := MessageKind(typ[1:])
	switch kind {
	case KindBirth, KindDeath, KindData, KindCmd:
		return Topic{Address: addr, Kind: kind}, nil
	default:
		return Topic{}, fmt.Errorf("unknown message type %q in topic %q", typ, s)
	}
}
