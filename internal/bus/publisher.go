// Package bus implements an optional, out-of-process broadcast of
// BaseContentChanged notifications over NATS, for editor/tooling
// processes watching a live property graph from outside (§6 Events).
//
// Grounded on the teacher's internal/notifier package, which posts
// ChangeEvents to a webhook and separately exposes HandleNATSMessage for
// an inbound NATS subscription carrying the same payload shape; this
// package is the outbound half of that pattern, generalized from
// "asset change alerts" to "base content changed" notifications, and
// actually wires the nats-io/nats.go dependency the teacher's go.mod
// declares but never connects in code.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/noslopforever/assetgraph/internal/model"
	"github.com/noslopforever/assetgraph/internal/propertygraph"
)

// BaseContentChangedMessage is the JSON payload broadcast on
// assetgraph.<asset_id>.base_changed.
type BaseContentChangedMessage struct {
	AssetID model.ItemId `json:"assetId"`
}

// EventPublisher broadcasts BaseContentChanged notifications over a NATS
// connection. A nil *EventPublisher is safe to call Publish on (no-op),
// matching the teacher's nil-safe notifier.publisher field.
type EventPublisher struct {
	conn *nats.Conn
}

// NewEventPublisher connects to a NATS server at url. The caller owns the
// returned publisher's lifetime and should call Close when done.
func NewEventPublisher(url string) (*EventPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("bus: connect to nats at %q: %w", url, err)
	}
	return &EventPublisher{conn: conn}, nil
}

// Close drains and closes the underlying NATS connection.
func (p *EventPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// Publish broadcasts assetID's BaseContentChanged notification. Errors are
// not fatal to the caller — this is best-effort out-of-process signaling,
// not a correctness-bearing event per §6.
func (p *EventPublisher) Publish(assetID model.ItemId) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(BaseContentChangedMessage{AssetID: assetID})
	if err != nil {
		return fmt.Errorf("bus: marshal base-changed message: %w", err)
	}
	subject := fmt.Sprintf("assetgraph.%s.base_changed", assetID.String())
	return p.conn.Publish(subject, data)
}

// Attach wires p into g so that every BaseContentChanged firing (§4.6.3
// step 5) is also broadcast over NATS, for a graph identified by assetID.
func Attach(g *propertygraph.Graph, assetID model.ItemId, p *EventPublisher) {
	g.SetOnBaseContentChanged(func(*propertygraph.Graph) {
		if err := p.Publish(assetID); err != nil {
			_ = err // best-effort; the graph's own logger already saw any reconciliation warnings
		}
	})
}
