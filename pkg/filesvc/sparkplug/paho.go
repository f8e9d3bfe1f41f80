package sparkplug

import (
	"context"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// pahoTransport adapts the Eclipse Paho client to the transport interface.
type pahoTransport struct {
	client mqtt.Client
}

func newPahoTransport(cfg Config, opts transportOptions) (transport, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "acs-files-" + strings.ReplaceAll(cfg.Address, "/", "-")
	}

	o := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetOrderMatters(true)

	if cfg.Username != "" {
		o.SetUsername(cfg.Username)
		o.SetPassword(cfg.Password)
	}
	if opts.will != nil {
		o.SetBinaryWill(opts.will.topic, opts.will.payload, 0, false)
	}
	if opts.onConnect != nil {
		o.SetOnConnectHandler(func(mqtt.Client) {
			opts.onConnect()
		})
	}
	if opts.onConnectionLost != nil {
		o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			opts.onConnectionLost(err)
		})
	}

	return &pahoTransport{client: mqtt.NewClient(o)}, nil
}

func (t *pahoTransport) Connect(ctx context.Context) error {
	return t.wait(ctx, t.client.Connect())
}

func (t *pahoTransport) Publish(topic string, payload []byte) error {
	token := t.client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := t.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) Disconnect() {
	t.client.Disconnect(250)
}

func (t *pahoTransport) wait(ctx context.Context, token mqtt.Token) error {
	if deadline, ok := ctx.Deadline(); ok {
		if !token.WaitTimeout(time.Until(deadline)) {
			return ctx.Err()
		}
		return token.Error()
	}
	token.Wait()
	return token.Error()
}
