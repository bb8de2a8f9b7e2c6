package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-sensorgw/internal/audit"
	"github.com/nerrad567/gray-logic-sensorgw/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
	"github.com/nerrad567/gray-logic-sensorgw/internal/query"
	"github.com/nerrad567/gray-logic-sensorgw/internal/sensor"
	"github.com/nerrad567/gray-logic-sensorgw/internal/storage"
	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

const (
	defaultConcurrency = 16
	defaultQueueSize   = 256
	eventTimeout       = 30 * time.Second
	drainTimeout       = 10 * time.Second
	auditSource        = "mqtt"
)

// MQTTClient is the subset of *mqtt.Client the gateway uses.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishDefault(topic string, payload []byte) error
}

// MetadataResolver attaches attribute instances to device data.
// Satisfied by *metadata.Service.
type MetadataResolver interface {
	Resolve(ctx context.Context, data metadata.DeviceData, factory metadata.AttributeFactory) error
}

// Authenticator checks ingest credentials. Satisfied by *auth.Authenticator.
type Authenticator interface {
	AuthenticateParams(ctx context.Context, params query.Params) (store.Row, error)
}

// TimeSeriesWriter mirrors processed readings. Satisfied by *influxdb.Client.
type TimeSeriesWriter interface {
	WriteReading(deviceID string, values map[string]float64, ts time.Time)
	WriteRejection(deviceID, attribute string, ts time.Time)
}

// AuditRecorder stores dropped events. Satisfied by *audit.SQLiteRepository.
type AuditRecorder interface {
	Create(ctx context.Context, log *audit.AuditLog) error
}

// Logger is satisfied by logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Gateway. MQTT and Metadata are required, and Auth is
// required when RequireAuth is set. The rest are optional.
type Options struct {
	MQTT        MQTTClient
	Metadata    MetadataResolver
	Auth        Authenticator
	Persister   storage.Persister // nil means storage.Unsupported
	TimeSeries  TimeSeriesWriter
	Audit       AuditRecorder
	Metrics     *Metrics
	Logger      Logger
	RequireAuth bool
	Concurrency int // events processed at once, default 16
	QueueSize   int // events waiting for a worker, default 256
}

// Gateway processes ingest events. All methods are safe for concurrent use.
type Gateway struct {
	mqtt        MQTTClient
	resolver    MetadataResolver
	auth        Authenticator
	persister   storage.Persister
	ts          TimeSeriesWriter
	audit       AuditRecorder
	metrics     *Metrics
	logger      Logger
	requireAuth bool
	topics      mqtt.Topics
	now         func() time.Time

	sem       chan struct{}
	backlog   chan struct{}
	ctx       context.Context
	ctxCancel context.CancelFunc
	mu        sync.Mutex
	stopped   bool
	wg        sync.WaitGroup
	stopOnce  sync.Once

	unsupportedOnce sync.Once
}

// New validates opts and creates a Gateway.
func New(opts Options) (*Gateway, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Metadata == nil {
		return nil, fmt.Errorf("metadata resolver is required")
	}
	if opts.RequireAuth && opts.Auth == nil {
		return nil, fmt.Errorf("authenticator is required when auth is enabled")
	}

	g := &Gateway{
		mqtt:        opts.MQTT,
		resolver:    opts.Metadata,
		auth:        opts.Auth,
		persister:   opts.Persister,
		ts:          opts.TimeSeries,
		audit:       opts.Audit,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		requireAuth: opts.RequireAuth,
		now:         time.Now,
	}
	if g.persister == nil {
		g.persister = storage.Unsupported{}
	}
	if g.logger == nil {
		g.logger = noopLogger{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	g.sem = make(chan struct{}, concurrency)
	g.backlog = make(chan struct{}, concurrency+queueSize)
	g.ctx, g.ctxCancel = context.WithCancel(context.Background())

	return g, nil
}

// Start subscribes to every device's ingest topic.
func (g *Gateway) Start() error {
	topic := g.topics.AllIngest()
	if err := g.mqtt.Subscribe(topic, 1, g.dispatch); err != nil {
		return fmt.Errorf("subscribe to ingest: %w", err)
	}
	g.logger.Info("gateway started", "topic", topic, "require_auth", g.requireAuth)
	return nil
}

// Stop unsubscribes and waits for in-flight events. Events still running
// after drainTimeout have their context cancelled.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		g.mu.Lock()
		g.stopped = true
		g.mu.Unlock()

		if err := g.mqtt.Unsubscribe(g.topics.AllIngest()); err != nil {
			g.logger.Warn("unsubscribe from ingest failed", "error", err)
		}
		drained := make(chan struct{})
		go func() {
			g.wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(drainTimeout):
			g.logger.Warn("in-flight events did not finish, cancelling", "timeout", drainTimeout)
			g.ctxCancel()
			<-drained
		}
		g.ctxCancel()
		g.logger.Info("gateway stopped")
	})
}

// dispatch is the MQTT handler. It hands the event to a goroutine so paho's
// delivery loop is never blocked by database work. Events arriving while
// every worker is busy and the queue is full are dropped.
func (g *Gateway) dispatch(topic string, payload []byte) error {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return ErrStopped
	}
	select {
	case g.backlog <- struct{}{}:
	default:
		g.mu.Unlock()
		g.metrics.countEvent(resultOverloaded)
		g.logger.Warn("ingest queue full, event dropped", "topic", topic, "capacity", cap(g.backlog))
		return ErrOverloaded
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer func() { <-g.backlog }()

		g.sem <- struct{}{}
		defer func() { <-g.sem }()

		ctx, cancel := context.WithTimeout(g.ctx, eventTimeout)
		defer cancel()

		if err := g.Handle(ctx, topic, payload); err != nil {
			g.logger.Warn("ingest event dropped", "topic", topic, "error", err)
		}
	}()
	return nil
}

// Handle processes one ingest message synchronously. A non-nil error means
// the event was dropped; rejection side effects have already happened.
func (g *Gateway) Handle(ctx context.Context, topic string, payload []byte) error {
	g.metrics.track(1)
	defer g.metrics.track(-1)

	device, ok := g.topics.ParseIngest(topic)
	if !ok {
		g.metrics.countEvent(resultInvalid)
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	received := g.now()

	msg, err := decodeIngest(payload)
	if err != nil {
		return g.reject(ctx, device, "", CodeInvalidPayload, audit.ActionPayloadInvalid, err)
	}

	var userID string
	if g.requireAuth {
		user, err := g.auth.AuthenticateParams(ctx, authParams(msg))
		if err != nil {
			return g.reject(ctx, device, "", CodeUnauthorized, audit.ActionAuthFailed, err)
		}
		userID = rowString(user, "id")
	}

	reading := sensor.NewReading(metadata.DeviceID(device), msg.Data, received)
	if err := g.resolver.Resolve(ctx, reading, sensor.Factory{}); err != nil {
		code := CodeMetadataFailed
		if errors.Is(err, metadata.ErrNoMetadata) {
			code = CodeNoMetadata
		}
		return g.reject(ctx, device, userID, code, audit.ActionMetadataFailed, err)
	}

	res := reading.Process()
	rejected := make(map[string]string, len(res.Rejected))
	for name, rerr := range res.Rejected {
		rejected[name] = rerr.Error()
		g.metrics.countRejected(name)
		if g.ts != nil {
			g.ts.WriteRejection(device, name, res.Timestamp)
		}
		g.logger.Debug("value rejected", "device_id", device, "attribute", name, "error", rerr)
	}

	if err := g.persister.Store(ctx, reading); err != nil {
		if !errors.Is(err, storage.ErrNotSupported) {
			return g.reject(ctx, device, userID, CodeStoreFailed, audit.ActionStoreFailed, err)
		}
		g.unsupportedOnce.Do(func() {
			g.logger.Debug("storage not supported, processed readings are not persisted")
		})
	}

	if g.ts != nil {
		g.ts.WriteReading(device, res.Values, res.Timestamp)
	}

	g.publish(g.topics.Processed(device), ProcessedMessage{
		ID:        uuid.NewString(),
		DeviceID:  device,
		Timestamp: res.Timestamp,
		Values:    res.Values,
		Rejected:  rejected,
	})
	g.metrics.countEvent(resultProcessed)
	g.logger.Debug("reading processed", "device_id", device, "values", len(res.Values), "rejected", len(rejected))
	return nil
}

// reject records a dropped event and returns cause.
func (g *Gateway) reject(ctx context.Context, device, userID, code, action string, cause error) error {
	g.metrics.countEvent(code)

	if g.audit != nil {
		entry := &audit.AuditLog{
			Action:     action,
			EntityType: audit.EntityDevice,
			EntityID:   device,
			UserID:     userID,
			Source:     auditSource,
			Details:    map[string]any{"code": code, "error": cause.Error()},
		}
		// The event context may already be done; the audit row is still wanted.
		if err := g.audit.Create(context.WithoutCancel(ctx), entry); err != nil {
			g.logger.Error("writing audit log failed", "device_id", device, "error", err)
		}
	}

	g.publish(g.topics.Rejected(device), RejectedMessage{
		ID:        uuid.NewString(),
		DeviceID:  device,
		Timestamp: g.now().UTC(),
		Code:      code,
		Reason:    cause.Error(),
	})
	return cause
}

func (g *Gateway) publish(topic string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error("encoding message failed", "topic", topic, "error", err)
		return
	}
	if err := g.mqtt.PublishDefault(topic, payload); err != nil {
		g.logger.Warn("publish failed", "topic", topic, "error", err)
	}
}

// authParams builds the authorization query parameters from the message.
func authParams(msg IngestMessage) query.Params {
	params := make(query.Params, len(msg.Auth)+1)
	for k, v := range msg.Auth {
		params[k] = v
	}
	params["token"] = msg.Token
	return params
}

func rowString(row store.Row, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
