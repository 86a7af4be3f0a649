package container

import (
	"context"
	"fmt"
	"time"

	"paygate/internal/config"
	"paygate/internal/infrastructure/cache"
	"paygate/internal/infrastructure/database"
	"paygate/internal/payment/gateway"
	"paygate/internal/payment/gateway/bkash"
	"paygate/internal/payment/gateway/nagad"
	"paygate/internal/payment/gateway/sslcommerz"
	"paygate/internal/payment/handler"
	"paygate/internal/payment/repository"
	"paygate/internal/payment/service"
	"paygate/pkg/logger"
)

// ========================================
// CONTAINER
// ========================================

// Container is the root of the dependency graph. Everything in it is a
// singleton wired once at startup.
type Container struct {
	Config *config.Config
	DB     *database.PostgresDB
	Redis  *cache.RedisClient

	Ledger    repository.Ledger
	SpecStore repository.SpecStore

	Resolver *gateway.Resolver
	Registry *gateway.Registry
	Manager  *gateway.Manager

	Events         *service.Events
	Fraud          *service.FraudScreen
	PaymentService service.PaymentService
	Reconciler     service.Reconciler

	PaymentHandler *handler.PaymentHandler
}

// NewContainer builds the full graph in dependency order:
// config -> infrastructure -> repositories -> gateway stack -> services
// -> handlers.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	c.initRepositories()

	if err := c.initGatewayStack(); err != nil {
		return nil, err
	}

	c.initServices()
	c.initHandlers()

	logger.Info("container initialized", map[string]interface{}{
		"environment":     cfg.App.Environment,
		"default_gateway": cfg.Payment.DefaultGateway,
		"gateways":        c.Registry.Names(),
	})
	return c, nil
}

func (c *Container) initInfrastructure() error {
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	redis := cache.NewRedisClient(
		c.Config.Redis.Host,
		c.Config.Redis.Password,
		c.Config.Redis.DB,
	)
	if err := redis.Connect(ctx); err != nil {
		// Redis only backs the dedup fast path; the ledger still
		// guarantees idempotency without it.
		logger.Error("redis connection failed (dedup fast path disabled)", err)
	}
	c.Redis = redis

	return nil
}

func (c *Container) initRepositories() {
	c.Ledger = repository.NewLedger(c.DB.Pool)
	c.SpecStore = repository.NewSpecStore(c.DB.Pool)
}

func (c *Container) initGatewayStack() error {
	// Persisted specs win over static env config, key by key
	staticCreds := make(map[string]map[string]string, len(c.Config.Payment.Gateways))
	for name, gw := range c.Config.Payment.Gateways {
		staticCreds[name] = gw.Credentials
	}
	c.Resolver = gateway.NewResolver(
		gateway.NewSpecSource(c.SpecStore),
		gateway.NewStaticSource(staticCreds),
	)

	specs := make(map[string]gateway.DriverSpec, len(c.Config.Payment.Gateways))
	for name, gw := range c.Config.Payment.Gateways {
		specs[name] = gateway.DriverSpec{
			Name:     name,
			Kind:     gateway.DriverKind(gw.Driver),
			Sandbox:  gw.Sandbox,
			Disabled: !gw.Enabled,
		}
	}

	registry, err := gateway.NewRegistry(specs, map[gateway.DriverKind]gateway.Factory{
		gateway.KindSSLCommerz: sslcommerz.NewDriver,
		gateway.KindBkash:      bkash.NewDriver,
		gateway.KindNagad:      nagad.NewDriver,
	})
	if err != nil {
		return fmt.Errorf("failed to build gateway registry: %w", err)
	}
	c.Registry = registry

	c.Manager = gateway.NewManager(registry, c.Resolver, c.Config.Payment.DefaultGateway)
	return nil
}

func (c *Container) initServices() {
	c.Events = service.NewEvents()
	c.Fraud = service.NewFraudScreen(c.Ledger)

	c.PaymentService = service.NewPaymentService(c.Manager, c.Ledger, c.Fraud, c.Events)
	c.Reconciler = service.NewReconciler(c.Manager, c.Ledger, cache.NewDedupStore(c.Redis), c.Events)
}

func (c *Container) initHandlers() {
	c.PaymentHandler = handler.NewPaymentHandler(c.PaymentService, c.Reconciler)
}

// Cleanup releases container resources during graceful shutdown.
func (c *Container) Cleanup() {
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			logger.Error("failed to close event hooks", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}

	logger.Info("container cleanup completed", nil)
}
