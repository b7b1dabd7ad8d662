package di

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"Infinity/internal/domain/models"
	"Infinity/internal/domain/repository"
	"Infinity/internal/handler/api"
	mid "Infinity/internal/middleware"
	internalrepo "Infinity/internal/repository"
	svcmetrics "Infinity/internal/service/metrics"
	"Infinity/internal/service/ratelimit"
	"Infinity/internal/usecase"
	"Infinity/pkg/cache"
	pkgch "Infinity/pkg/clickhouse"
	"Infinity/pkg/config"
	xhttp "Infinity/pkg/http"
	pkgkafka "Infinity/pkg/kafka"
	applogger "Infinity/pkg/logger"
	"Infinity/pkg/metrics"
	"Infinity/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	return metrics.New(reg)
}

func ProvideIntentMetrics(reg prometheus.Registerer) *svcmetrics.Intents {
	return svcmetrics.NewIntents(reg)
}

// ProvideAssets converts the configured instruments, falling back to the built-in set.
func ProvideAssets(cfg *config.Config) []models.Asset {
	if len(cfg.Session.Assets) == 0 {
		return models.DefaultAssets()
	}
	assets := make([]models.Asset, 0, len(cfg.Session.Assets))
	for _, a := range cfg.Session.Assets {
		assets = append(assets, models.Asset{
			ID:     a.ID,
			Name:   a.Name,
			Price:  a.Price,
			Change: a.Change,
			Type:   models.AssetType(a.Type),
		})
	}
	return assets
}

// ProvidePriceFeed creates the simulated quote feed. It owns its random source since it
// ticks on its own goroutine.
func ProvidePriceFeed(cfg *config.Config, assets []models.Asset, m repository.Metrics, l *applogger.Logger) *usecase.PriceFeed {
	return usecase.NewPriceFeed(assets, newRandom(), cfg.Session.FeedPeriod, m, l.With(applogger.String("component", "price_feed")))
}

func ProvideSignalEngine() *usecase.SignalEngine {
	return usecase.NewSignalEngine(newRandom())
}

// ProvideQuotaLimiter builds the limiter from the configured per-tier quotas.
func ProvideQuotaLimiter(cfg *config.Config) *ratelimit.QuotaLimiter {
	quotas := make(map[models.UserStatus]int, len(cfg.Session.Quotas))
	for tier, n := range cfg.Session.Quotas {
		quotas[models.UserStatus(tier)] = n
	}
	return ratelimit.New(cfg.Session.Window, quotas)
}

func ProvideTierGate(cfg *config.Config) *usecase.TierGate {
	secrets := make(map[string]models.UserStatus, len(cfg.Session.TierSecrets))
	for secret, tier := range cfg.Session.TierSecrets {
		secrets[secret] = models.UserStatus(tier)
	}
	return usecase.NewTierGate(secrets)
}

// ProvideStateStore creates the persistence gateway on the configured cache backend.
func ProvideStateStore(cfg *config.Config, l *applogger.Logger) (repository.StateStore, error) {
	l = l.With(applogger.String("component", "state_store"))
	switch cfg.State.Backend {
	case "redis", "layered":
		rc := cfg.State.Redis
		ctx, cancel := context.WithTimeout(context.Background(), rc.ConnectTimeout)
		defer cancel()
		remote, err := cache.NewRedisCache(ctx,
			cache.WithRedisAddr(rc.Addr),
			cache.WithRedisPassword(rc.Password),
			cache.WithRedisDB(rc.DB),
			cache.WithRedisPool(rc.PoolSize, 1, 5*time.Second),
			cache.WithRedisPrefix(rc.Prefix),
			cache.WithRedisConnectTimeout(rc.ConnectTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("redis state store: %w", err)
		}
		l.Info("state store connected", applogger.String("backend", cfg.State.Backend), applogger.String("addr", rc.Addr))
		if cfg.State.Backend == "layered" {
			return internalrepo.NewCacheStateStore(cache.NewLayeredCache(remote), l), nil
		}
		return internalrepo.NewCacheStateStore(remote, l), nil
	default:
		return internalrepo.NewCacheStateStore(cache.NewMemoryCache(), l), nil
	}
}

// ProvideEventPublisher creates the configured event sink behind a redelivery pipeline.
func ProvideEventPublisher(cfg *config.Config, reg prometheus.Registerer, m repository.Metrics, l *applogger.Logger) (*mid.EventPipeline, error) {
	l = l.With(applogger.String("component", "events"))
	ev := cfg.Events

	var sink repository.EventPublisher
	switch ev.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(reg,
			pkgkafka.WithBrokers(ev.Kafka.Brokers),
			pkgkafka.WithTopic(ev.Kafka.Topic),
			pkgkafka.WithClientID("infinity"),
			pkgkafka.WithCompression(ev.Kafka.Compression),
			pkgkafka.WithRequiredAcks(ev.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(ev.Kafka.MaxAttempts),
			pkgkafka.WithWriteTimeout(ev.Kafka.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		l.Info("kafka events enabled", applogger.Strings("brokers", ev.Kafka.Brokers), applogger.String("topic", ev.Kafka.Topic))
		sink = internalrepo.NewKafkaEventPublisher(producer)
	case "clickhouse":
		ch := ev.ClickHouse
		ctx, cancel := context.WithTimeout(context.Background(), ch.ConnectTimeout)
		defer cancel()
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
			pkgch.WithConnectTimeout(ch.ConnectTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		archive, err := internalrepo.NewCHEventArchive(ctx, client, l)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse event archive: %w", err)
		}
		l.Info("clickhouse events enabled", applogger.String("host", ch.Host), applogger.String("table", internalrepo.SignalEventsTable))
		sink = archive
	default:
		sink = internalrepo.NoopEventPublisher{}
	}

	return mid.NewEventPipeline(sink, m, l,
		mid.WithBufferSize(ev.BufferSize),
		mid.WithRetry(0, 0, ev.RetryDeadline),
	), nil
}

// ProvideSession wires the core around the configured store and sink.
func ProvideSession(
	cfg *config.Config,
	feed *usecase.PriceFeed,
	engine *usecase.SignalEngine,
	limiter *ratelimit.QuotaLimiter,
	gate *usecase.TierGate,
	store repository.StateStore,
	events *mid.EventPipeline,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Session {
	return usecase.NewSession(feed, engine, limiter, gate, store, events, m,
		l.With(applogger.String("component", "session")),
		usecase.WithDefaultLanguage(models.Language(strings.ToUpper(cfg.Session.DefaultLanguage))),
		usecase.WithPersistTimeout(cfg.Session.PersistTimeout),
		usecase.WithHistoryCapacity(cfg.Session.HistoryCapacity),
	)
}

func ProvideHandler(l *applogger.Logger, session *usecase.Session, intents *svcmetrics.Intents) xhttp.Handler {
	return api.NewSessionEchoHandler(l, session, intents)
}

// ProvideHTTPServer creates the Echo server; the metrics endpoint follows cfg.Metrics.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	path := cfg.Metrics.Path
	if !cfg.Metrics.Enabled {
		path = ""
	}
	return xhttp.NewServer(h, l, reg,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithAllowOrigins(cfg.Server.AllowOrigins),
		xhttp.WithMetricsPath(path),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	session *usecase.Session,
	events *mid.EventPipeline,
	store repository.StateStore,
) *server.App {
	return server.New(cfg, l, httpServer, session, events, store)
}

func newRandom() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
