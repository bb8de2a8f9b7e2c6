package gateway

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-sensorgw/internal/audit"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

type published struct {
	topic   string
	payload []byte
}

type fakeMQTT struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	published    []published
	unsubscribed []string
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	f.unsubscribed = append(f.unsubscribed, topic)
	return nil
}

func (f *fakeMQTT) PublishDefault(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic: topic, payload: payload})
	return nil
}

func (f *fakeMQTT) handler(topic string) mqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

// messages returns the payloads published to topic, decoded into T.
func messages[T any](f *fakeMQTT, topic string) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []T
	for _, p := range f.published {
		if p.topic != topic {
			continue
		}
		var msg T
		if json.Unmarshal(p.payload, &msg) == nil {
			out = append(out, msg)
		}
	}
	return out
}

// attrSpec describes one attribute the fake resolver attaches.
type attrSpec struct {
	name       string
	converters [][2]string
	validators [][2]string
}

type fakeResolver struct {
	devices map[metadata.DeviceID][]attrSpec
	err     error
	calls   int
	mu      sync.Mutex

	// block, when set, holds every resolution until it is closed.
	block chan struct{}
}

func (f *fakeResolver) Resolve(_ context.Context, data metadata.DeviceData, factory metadata.AttributeFactory) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}

	if f.err != nil {
		return f.err
	}
	specs, ok := f.devices[data.DeviceID()]
	if !ok {
		return metadata.ErrNoMetadata
	}
	attrs := make([]metadata.SensorAttribute, 0, len(specs))
	for _, s := range specs {
		a := factory.Create(s.name)
		for _, c := range s.converters {
			a.AddConverter(c[0], c[1])
		}
		for _, v := range s.validators {
			a.AddValidator(v[0], v[1])
		}
		attrs = append(attrs, a)
	}
	data.SetAttributes(attrs)
	return nil
}

type fakeAuth struct {
	tokens map[string]store.Row
	seen   []query.Params
	mu     sync.Mutex
}

func (f *fakeAuth) AuthenticateParams(_ context.Context, params query.Params) (store.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, params)
	tok, _ := params["token"].(string)
	if row, ok := f.tokens[tok]; ok {
		return row, nil
	}
	return nil, errNoUser
}

type fakePersister struct {
	err    error
	stored []map[string]any
	mu     sync.Mutex
}

func (f *fakePersister) Store(_ context.Context, data metadata.DeviceData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, maps.Clone(data.Data()))
	return nil
}

type tsPoint struct {
	device string
	values map[string]float64
	ts     time.Time
}

type fakeTimeSeries struct {
	mu         sync.Mutex
	readings   []tsPoint
	rejections []string
}

func (f *fakeTimeSeries) WriteReading(deviceID string, values map[string]float64, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, tsPoint{device: deviceID, values: values, ts: ts})
}

func (f *fakeTimeSeries) WriteRejection(deviceID, attribute string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejections = append(f.rejections, deviceID+"/"+attribute)
}

type fakeAudit struct {
	mu   sync.Mutex
	logs []audit.AuditLog
}

func (f *fakeAudit) Create(_ context.Context, log *audit.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}
