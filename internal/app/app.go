package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/auth"
	"github.com/vladislavdragonenkov/checkout/internal/client/orders"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/httpapi"
	"github.com/vladislavdragonenkov/checkout/internal/provider"
	"github.com/vladislavdragonenkov/checkout/internal/provider/iamport"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	// BackendBaseURL — адрес backend API заказов.
	BackendBaseURL string
	// WidgetURL — адрес платёжного виджета; пустое значение включает mock-провайдер.
	WidgetURL string
	// MerchantID — идентификатор мерчанта для инициализации виджета.
	MerchantID string
	// PostgresDSN — DSN хранилища сессий; пустое значение включает in-memory репозиторий.
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую; пустое значение отключает события.
	KafkaBrokers string
	// BearerToken — стартовый токен авторизации backend-запросов; далее токен
	// обновляется из Authorization-заголовков входящих запросов.
	BearerToken string
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:       ":8080",
		MetricsAddr:    ":9090",
		BackendBaseURL: "http://localhost:4000",
		MerchantID:     "imp_checkout_dev",
	}
}

// paymentGateway объединяет провайдер и маршрутизацию его результатов:
// callback'и приходят отдельным HTTP-запросом и должны найти свой платёж.
type paymentGateway interface {
	domain.PaymentProvider
	domain.ResultDispatcher
}

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	tokenStore := auth.NewTokenStore()
	if cfg.BearerToken != "" {
		tokenStore.Set(cfg.BearerToken)
	}

	healthHandler := healthcheck.NewHandler(version.String())

	// Хранилище сессий: PostgreSQL при заданном DSN, иначе in-memory.
	var sessions domain.SessionRepository
	var store *postgres.Store
	if cfg.PostgresDSN != "" {
		opened, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		if err := opened.EnsureSchema(ctx); err != nil {
			opened.Close()
			return err
		}
		store = opened
		sessions = postgres.NewSessionRepository(store)
		healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(checkCtx)
		}))
		logger.Info("postgres session repository initialized")
	} else {
		sessions = memory.NewSessionRepository()
		logger.Info("in-memory session repository initialized")
	}

	// Платёжный провайдер: реальный виджет при заданном адресе, иначе mock.
	var gateway paymentGateway
	if cfg.WidgetURL != "" {
		gateway = iamport.New(cfg.WidgetURL, logger.WithField("component", "iamport-provider"))
	} else {
		gateway = provider.NewMockProvider()
		logger.Warn("widget url is not set, using mock payment provider")
	}
	if err := gateway.Init(cfg.MerchantID); err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.WithError(err).Warn("failed to close payment provider")
		}
	}()

	backend := orders.New(cfg.BackendBaseURL, tokenStore, logger.WithField("component", "orders-client"))

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	var flow *checkout.Flow
	if kafkaProducer != nil {
		flow = checkout.NewFlowWithKafka(sessions, backend, gateway, kafkaProducer, logger.WithField("component", "checkout-flow"))
	} else {
		flow = checkout.NewFlow(sessions, backend, gateway, logger.WithField("component", "checkout-flow"))
	}

	api := httpapi.New(flow, gateway, tokenStore, logger.WithField("component", "httpapi"))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Router()}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(srv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		if store != nil {
			store.Close()
		}
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		if store != nil {
			store.Close()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health checks.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
