// Package app wires configuration into a ready Pipeline for the Lambda and
// CLI entrypoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"autodraft/internal/config"
	"autodraft/internal/domain"
	"autodraft/internal/integrations/openai"
	"autodraft/internal/integrations/paramstore"
	"autodraft/internal/integrations/wordpress"
	"autodraft/internal/ratelimit"
	"autodraft/internal/repository"
	"autodraft/internal/usecase"
)

const rateScope = "generation"

// App holds the wired pipeline and the resources that need closing.
type App struct {
	Config   config.Config
	Pipeline *usecase.Pipeline
	Limiter  *ratelimit.Limiter
	Logger   *slog.Logger

	closers []io.Closer
}

// Close releases the rate store connection and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build resolves secrets and constructs every client. AWS configuration is
// only loaded when SSM or DynamoDB is needed.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	clients := &awsClients{}
	resolver := paramstore.NewResolver(nil, cfg.ParamPrefix)
	if cfg.ParamPrefix != "" && (cfg.Generation.APIKey == "" || cfg.WordPress.Password == "") {
		ssmClient, err := clients.ssm(ctx)
		if err != nil {
			return nil, err
		}
		resolver = paramstore.NewResolver(ssmClient, cfg.ParamPrefix)
		var names []string
		if cfg.Generation.APIKey == "" {
			names = append(names, config.OpenAIKeyParameter)
		}
		if cfg.WordPress.Password == "" {
			names = append(names, config.WPPasswordParameter)
		}
		if err := resolver.Prefetch(ctx, names...); err != nil {
			logger.Debug("secret prefetch failed, resolving one by one", "err", err)
		}
	}
	if err := cfg.ResolveSecrets(ctx, resolver); err != nil {
		return nil, err
	}
	a.Config = cfg

	personas, err := config.LoadPersonas(cfg.PersonasFile)
	if err != nil {
		return nil, err
	}

	store, err := a.rateStore(ctx, cfg.RateLimit, clients)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.New(store, rateScope, cfg.RateLimit.PerHour)
	if err != nil {
		return nil, err
	}
	a.Limiter = limiter

	llm, err := openai.NewClient(cfg.Generation.APIKey,
		openai.WithBaseURL(cfg.Generation.BaseURL),
		openai.WithTimeout(cfg.Generation.Timeout),
	)
	if err != nil {
		return nil, domain.ConfigurationError("openai_client", err)
	}

	wp, err := wordpress.New(wordpress.Settings{
		BaseURL:  cfg.WordPress.BaseURL,
		Username: cfg.WordPress.Username,
		Password: cfg.WordPress.Password,
		Defaults: wordpress.Defaults{
			Status:     cfg.WordPress.DefaultStatus,
			AuthorID:   cfg.WordPress.DefaultAuthor,
			CategoryID: cfg.WordPress.DefaultCategory,
		},
	},
		wordpress.WithHTTPClient(&http.Client{Timeout: cfg.WordPress.Timeout}),
		wordpress.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	pacer := ratelimit.NewPacer(cfg.BatchDelay)
	gen, err := usecase.NewGenerator(personas, llm, usecase.GenerationDefaults{
		Model:          cfg.Generation.Model,
		MaxTokens:      cfg.Generation.MaxTokens,
		Temperature:    cfg.Generation.Temperature,
		DefaultPersona: cfg.DefaultPersona,
	},
		usecase.WithRateLimiter(limiter),
		usecase.WithPacer(pacer),
		usecase.WithGeneratorLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	pipeline, err := usecase.NewPipeline(gen, wp,
		usecase.WithFormatter(cfg.Renderer),
		usecase.WithBatchPacer(pacer),
		usecase.WithPipelineLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	a.Pipeline = pipeline

	if cfg.Generation.MaxRetries > 0 {
		logger.Debug("retry settings are ignored; calls are not retried",
			"max_retries", cfg.Generation.MaxRetries,
			"retry_delay", cfg.Generation.RetryDelay,
		)
	}
	return a, nil
}

func (a *App) rateStore(ctx context.Context, cfg config.RateLimit, clients *awsClients) (ratelimit.Store, error) {
	switch cfg.Store {
	case config.StoreDynamoDB:
		api, err := clients.dynamo(ctx)
		if err != nil {
			return nil, err
		}
		return repository.NewDynamoStore(api, cfg.Table)
	case config.StoreRedis:
		client, err := repository.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, domain.ConfigurationError("redis_unavailable", err)
		}
		a.closers = append(a.closers, client)
		return repository.NewRedisStore(client)
	default:
		return ratelimit.NewMemoryStore(), nil
	}
}

// awsClients loads the shared AWS config at most once.
type awsClients struct {
	loaded bool
	cfg    aws.Config
}

func (c *awsClients) load(ctx context.Context) (aws.Config, error) {
	if c.loaded {
		return c.cfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, domain.ConfigurationError("aws_config", fmt.Errorf("app: load AWS config: %w", err))
	}
	c.cfg = cfg
	c.loaded = true
	return cfg, nil
}

func (c *awsClients) ssm(ctx context.Context) (*paramstore.Client, error) {
	cfg, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return paramstore.New(awsssm.NewFromConfig(cfg))
}

func (c *awsClients) dynamo(ctx context.Context) (*awsdynamodb.Client, error) {
	cfg, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return awsdynamodb.NewFromConfig(cfg), nil
}
