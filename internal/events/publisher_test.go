package events

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/pedrohpiress/banktransaction-queue/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ---- mock implementations ----

type publishCall struct {
	exchange  string
	key       string
	mandatory bool
	immediate bool
	msg       amqp.Publishing
}

type mockChannel struct {
	calls []publishCall
	err   error
}

func (m *mockChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.calls = append(m.calls, publishCall{exchange, key, mandatory, immediate, msg})
	return m.err
}

// ---- tests ----

func TestPublish(t *testing.T) {
	ch := &mockChannel{}
	p := NewPublisher(ch, PublisherConfig{Exchange: "transacoes.exchange"})

	tx, err := models.DecodeTransaction(strings.NewReader(`{"id":"tx-1","amount":100.50,"currency":"USD"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := p.Publish(context.Background(), tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ch.calls) != 1 {
		t.Fatalf("expected exactly 1 publish, got %d", len(ch.calls))
	}
	call := ch.calls[0]
	if call.exchange != "transacoes.exchange" {
		t.Errorf("expected exchange transacoes.exchange, got %q", call.exchange)
	}
	if call.key != "" {
		t.Errorf("expected empty routing key, got %q", call.key)
	}
	if call.mandatory || call.immediate {
		t.Errorf("expected mandatory and immediate to be false")
	}
	if call.msg.DeliveryMode != 0 {
		t.Errorf("expected library default delivery mode, got %d", call.msg.DeliveryMode)
	}
	if call.msg.ContentType != "" || call.msg.CorrelationId != "" {
		t.Errorf("expected no content type or correlation id, got %q / %q", call.msg.ContentType, call.msg.CorrelationId)
	}

	want := `{"id":"tx-1","amount":100.50,"currency":"USD"}`
	if string(call.msg.Body) != want {
		t.Errorf("expected body %s, got %s", want, call.msg.Body)
	}
}

func TestPublishRoundTrip(t *testing.T) {
	payloads := []string{
		`{"id":"tx-1","amount":100.50,"currency":"USD"}`,
		`{"nomeCliente":"Maria","tipo":"PIX","valor":250,"data":"2024-05-01"}`,
		`{"nested":{"list":[1,2.5,"x",null,{"deep":true}]},"empty":{}}`,
		`{}`,
	}
	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			ch := &mockChannel{}
			p := NewPublisher(ch, PublisherConfig{Exchange: "ex"})

			tx, err := models.DecodeTransaction(strings.NewReader(payload))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if err := p.Publish(context.Background(), tx); err != nil {
				t.Fatalf("publish: %v", err)
			}

			got, err := models.DecodeTransaction(strings.NewReader(string(ch.calls[0].msg.Body)))
			if err != nil {
				t.Fatalf("decode published body: %v", err)
			}
			if !reflect.DeepEqual(got.Fields, tx.Fields) {
				t.Errorf("round trip mismatch: sent %v, published %v", tx, got)
			}
		})
	}
}

func TestPublishPersistent(t *testing.T) {
	ch := &mockChannel{}
	p := NewPublisher(ch, PublisherConfig{Exchange: "ex", Persistent: true})

	if err := p.Publish(context.Background(), models.NewTransaction(map[string]any{"id": "tx-1"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.calls[0].msg.DeliveryMode != amqp.Persistent {
		t.Errorf("expected persistent delivery mode, got %d", ch.calls[0].msg.DeliveryMode)
	}
}

func TestPublishSerializationError(t *testing.T) {
	cyclic := map[string]any{"id": "tx-1"}
	cyclic["self"] = cyclic

	tests := []struct {
		name string
		tx   models.Transaction
	}{
		{name: "self-referential map", tx: models.NewTransaction(cyclic)},
		{name: "channel value", tx: models.NewTransaction(map[string]any{"ch": make(chan int)})},
		{name: "function value", tx: models.NewTransaction(map[string]any{"fn": func() {}})},
		{name: "NaN amount", tx: models.NewTransaction(map[string]any{"amount": math.NaN()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{}
			p := NewPublisher(ch, PublisherConfig{Exchange: "ex"})

			err := p.Publish(context.Background(), tt.tx)
			var serr *SerializationError
			if !errors.As(err, &serr) {
				t.Fatalf("expected SerializationError, got %v", err)
			}
			var perr *PublishError
			if errors.As(err, &perr) {
				t.Errorf("serialization failure must not be a PublishError")
			}
			if len(ch.calls) != 0 {
				t.Errorf("expected no publish attempt, got %d", len(ch.calls))
			}
		})
	}
}

func TestPublishBrokerError(t *testing.T) {
	ch := &mockChannel{err: amqp.ErrClosed}
	p := NewPublisher(ch, PublisherConfig{Exchange: "transacoes.exchange"})

	err := p.Publish(context.Background(), models.NewTransaction(map[string]any{"id": "tx-1"}))

	var perr *PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if perr.Exchange != "transacoes.exchange" {
		t.Errorf("expected exchange in error, got %q", perr.Exchange)
	}
	if !errors.Is(err, amqp.ErrClosed) {
		t.Errorf("expected wrapped amqp.ErrClosed, got %v", err)
	}
	if len(ch.calls) != 1 {
		t.Errorf("expected a single attempt with no retry, got %d", len(ch.calls))
	}
}

func TestPublishedBodyIsValidJSON(t *testing.T) {
	ch := &mockChannel{}
	p := NewPublisher(ch, PublisherConfig{Exchange: "ex"})

	if err := p.Publish(context.Background(), models.NewTransaction(map[string]any{"valor": json.Number("10.00")})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !json.Valid(ch.calls[0].msg.Body) {
		t.Errorf("published body is not valid JSON: %s", ch.calls[0].msg.Body)
	}
}
