package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/permbase/permbase/internal/observability"
	"github.com/permbase/permbase/internal/rbac"
)

const warmupConcurrency = 4

// PermissionsWarmupJob pre-populates the permission cache so the first
// authorization check after a deploy or TTL expiry does not pay the store
// round trip.
type PermissionsWarmupJob struct {
	Store   rbac.Store
	Matcher *rbac.Matcher
	Logger  *slog.Logger
	Metrics *observability.Metrics
	clock   func() time.Time
}

// NewPermissionsWarmupJob wires dependencies for the warmup handler.
func NewPermissionsWarmupJob(store rbac.Store, matcher *rbac.Matcher, logger *slog.Logger, metrics *observability.Metrics) *PermissionsWarmupJob {
	return &PermissionsWarmupJob{
		Store:   store,
		Matcher: matcher,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes permissions warmup tasks.
func (j *PermissionsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Matcher == nil {
		return errors.New("permissions warmup: handler not configured")
	}
	var payload PermissionsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	defer func() {
		j.Metrics.WarmupRun(resultErr)
	}()

	start := j.clock()
	logger := j.logger()

	roleIDs := payload.RoleIDs
	if len(roleIDs) == 0 {
		var err error
		roleIDs, err = j.Store.ListRoleIDs(ctx)
		if err != nil {
			logger.Error("list roles for warmup", slog.Any("error", err))
			return err
		}
	}
	if len(roleIDs) == 0 {
		logger.Info("no roles discovered for warmup")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for _, roleID := range roleIDs {
		g.Go(func() error {
			if _, err := j.Matcher.Permissions(gctx, roleID); err != nil {
				logger.Error("warm role", slog.Int64("role_id", roleID), slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("completed permissions warmup",
		slog.Int("roles", len(roleIDs)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *PermissionsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
