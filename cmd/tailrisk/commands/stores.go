package commands

import (
	"context"
	"fmt"

	"github.com/wonny/tailrisk/internal/report"
	"github.com/wonny/tailrisk/pkg/config"
	"github.com/wonny/tailrisk/pkg/database"
	"github.com/wonny/tailrisk/pkg/logger"
	"github.com/wonny/tailrisk/pkg/redis"
)

// stores 리포터 + (선택) DB 저장소 + (선택) Redis 캐시
type stores struct {
	reporter *report.Reporter
	repo     *report.Repository
	db       *database.DB
	redis    *redis.Client
}

// openStores DATABASE_URL이 있으면 저장, REDIS_ENABLED=true면 캐시
// requireDB=true면 DATABASE_URL이 없을 때 실패
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger, requireDB bool) (*stores, error) {
	s := &stores{reporter: report.NewReporter(log.Zerolog())}

	if cfg.Database.URL != "" || requireDB {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		s.db = db
		s.repo = report.NewRepository(db.Pool)
		s.reporter.WithStore(s.repo)
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set; reports will not be stored")
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.redis = rc
	if rc.Enabled() {
		s.reporter.WithCache(redis.NewCache(rc, "tailrisk"), cfg.Redis.CacheTTL)
		log.Info("Redis report cache enabled")
	}

	return s, nil
}

// Close releases connections
func (s *stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
