package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/pkg/authz"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/sms"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"google.golang.org/api/option"
)

const (
	driverLog  = "log"
	driverSMTP = "smtp"
	driverHTTP = "http"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
			if err := godotenv.Load(); err != nil {
				slog.Warn("no .env file loaded", "error", err)
			}
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))
	a.password = hash.NewPassword(
		a.config.GetString("hash.password.algorithm"),
		a.config.GetInt("hash.bcrypt.cost"),
		a.config.GetString("hash.password.pepper"),
	)

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflakeNode(a.config.GetInt64("app.node_id"))
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(a.config.GetString("jwt.secret")),
		Issuer:     a.config.GetString("jwt.issuer"),
		Audiences:  a.config.GetArray("jwt.audiences"),
		TTLMinutes: a.config.GetMinute("jwt.ttl_minutes"),
		Clock:      a.clock,
		UUID:       a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

// ping retries fn with exponential backoff so the service survives a
// dependency that starts a little later than it does.
func (a *App) ping(name string, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(200 * time.Millisecond)
	b = retry.WithMaxRetries(4, b)
	b = retry.WithCappedDuration(3*time.Second, b)

	return retry.Do(a.ctx, b, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := fn(pingCtx); err != nil {
			slog.Warn("dependency not ready", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (a *App) initDatabase() {
	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	if err := a.ping("database", pool.Ping); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	if err := a.ping("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.NewWithPrefix(a.cacheConn, a.config.GetString("redis.idempotency_prefix"))
}

func (a *App) initMail() {
	switch driver := strings.ToLower(a.config.GetString("mail.driver")); driver {
	case driverSMTP:
		m, err := mail.NewSMTP(mail.SMTPConfig{
			Host:               a.config.GetString("mail.smtp.host"),
			Port:               a.config.GetInt("mail.smtp.port"),
			Username:           a.config.GetString("mail.smtp.username"),
			Password:           a.config.GetString("mail.smtp.password"),
			From:               a.config.GetString("mail.from"),
			SSL:                a.config.GetBool("mail.smtp.ssl"),
			InsecureSkipVerify: a.config.GetBool("mail.smtp.insecure_skip_verify"),
		})
		if err != nil {
			slog.Error("failed to init mail", "error", err)
			os.Exit(1)
		}
		a.mail = m
	case driverLog, "":
		a.mail = mail.NewLog()
	default:
		slog.Error("failed to init mail, unknown driver", "driver", driver)
		os.Exit(1)
	}
}

func (a *App) initSMS() {
	prefix := a.config.GetString("sms.country_prefix")

	switch driver := strings.ToLower(a.config.GetString("sms.driver")); driver {
	case driverHTTP:
		gw, err := sms.NewHTTPGateway(sms.HTTPConfig{
			URL:           a.config.GetString("sms.http.url"),
			APIKey:        a.config.GetString("sms.http.api_key"),
			UserID:        a.config.GetString("sms.http.user_id"),
			Password:      a.config.GetString("sms.http.password"),
			SenderID:      a.config.GetString("sms.http.sender_id"),
			CountryPrefix: prefix,
			Timeout:       a.config.GetSecond("sms.http.timeout_seconds"),
		})
		if err != nil {
			slog.Error("failed to init sms gateway", "error", err)
			os.Exit(1)
		}
		a.sms = gw
	case driverLog, "":
		a.sms = sms.NewLog(prefix)
	default:
		slog.Error("failed to init sms, unknown driver", "driver", driver)
		os.Exit(1)
	}
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	var pubsubOptions []option.ClientOption
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); v != "" {
		pubsubOptions = append(pubsubOptions, option.WithEndpoint(v), option.WithoutAuthentication())
	}
	if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.credentials_file")); v != "" {
		pubsubOptions = append(pubsubOptions, option.WithCredentialsFile(v))
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		Memory: messaging.MemoryConfig{
			Buffer:      a.config.GetInt("messaging.memory.buffer"),
			MaxAttempts: a.config.GetInt("messaging.memory.max_attempts"),
		},
		NSQ: messaging.NSQConfig{
			ProducerAddr: a.config.GetString("messaging.nsq.producer_addr"),
			NSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			LookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
			RequeueDelay: a.config.GetSecond("messaging.nsq.requeue_delay_seconds"),
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID:  a.config.GetString("messaging.kafka.client_id"),
				Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
				DualStack: true,
			},
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOptions,
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initCasbin() {
	e, err := authz.NewEnforcer(a.config.GetArray("casbin.policies"))
	if err != nil {
		slog.Error("failed to init casbin", "error", err)
		os.Exit(1)
	}

	a.casbin = e
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	a.limiter = router.NewRateLimiter(
		a.config.GetFloat64("app.server.rate_limit.rps"),
		a.config.GetInt("app.server.rate_limit.burst"),
		a.config.GetMinute("app.server.rate_limit.ttl_minutes"),
	)
	a.goroutine.Go(a.ctx, func(ctx context.Context) error {
		a.limiter.Cleanup(ctx, time.Minute)
		return nil
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				a.dbConn.Close()

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
