package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/config"
	"locus-quiz-service/internal/infra/ai"
	"locus-quiz-service/internal/infra/memory"
	mongostore "locus-quiz-service/internal/infra/mongo"
	pgstore "locus-quiz-service/internal/infra/postgres"
	redisinfra "locus-quiz-service/internal/infra/redis"
	"locus-quiz-service/internal/infra/s3"
)

// backends holds the storage selected by config plus what must be closed.
type backends struct {
	quizzes app.QuizStore
	roster  app.RosterStore
	results app.ResultStore
	cache   app.QuizRepository
	hubs    app.HubRepository
	relay   *redisinfra.LeaderboardRelay
	pings   []func(ctx context.Context) error
	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// health pings every configured backend.
func (b *backends) health(r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, ping := range b.pings {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if err := b.openStore(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.pings = append(b.pings, func(ctx context.Context) error { return client.Ping(ctx).Err() })

		redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		b.cache = redisinfra.NewQuizRepository(client, b.quizzes, quizTTL)
		b.hubs = redisinfra.NewHubStore(client, redisTTL)
		b.relay = redisinfra.NewLeaderboardRelay(client)
	} else {
		b.cache = memory.NewQuizRepository(b.quizzes, quizTTL)
		b.hubs = memory.NewHubStore()
	}
	return b, nil
}

func (b *backends) openStore(ctx context.Context, cfg config.Config) error {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		store := memory.NewQuizStore()
		b.quizzes = store
		b.roster = memory.NewRosterStore(store)
		b.results = memory.NewResultStore()
		return nil

	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.pings = append(b.pings, pool.Ping)
		b.quizzes = pgstore.NewQuizStore(pool)
		b.roster = pgstore.NewRosterStore(pool)
		b.results = pgstore.NewResultStore(pool)
		return nil

	case config.DriverMongo:
		if cfg.Mongo.URI == "" {
			return fmt.Errorf("mongo uri not configured")
		}
		opts := options.Client().ApplyURI(cfg.Mongo.URI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		b.pings = append(b.pings, func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) })
		db := client.Database(cfg.Mongo.Database)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		b.quizzes = mongostore.NewQuizStore(db)
		b.roster = mongostore.NewRosterStore(client, db)
		b.results = mongostore.NewResultStore(db)
		return nil
	}
	return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// newConvertService returns nil when no generation endpoint is configured.
func newConvertService(cfg config.Config, quizzes *app.QuizService) (*app.ConvertService, error) {
	if cfg.AI.Endpoint == "" {
		return nil, nil
	}
	generator := ai.NewClient(ai.Config{
		Endpoint: cfg.AI.Endpoint,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		Timeout:  config.TTLDuration(cfg.AI.Timeout, 60*time.Second),
	})

	var archive app.SourceArchive
	if cfg.S3.Bucket != "" {
		a, err := s3.NewArchive(s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		archive = a
	}
	return app.NewConvertService(generator, archive, quizzes), nil
}

func newLiveService(b *backends) *app.LiveService {
	var opts []app.LiveOption
	if b.relay != nil {
		opts = append(opts, app.WithPublisher(b.relay))
	}
	return app.NewLiveService(b.quizzes, b.cache, b.roster, b.results, b.hubs, opts...)
}
