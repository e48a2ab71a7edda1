package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lakshayybhati/liftor-worker/internal/config"
	"github.com/redis/go-redis/v9"
)

var Rdb *redis.Client

// InitRedis connects the optional progress-mirror client. Deployments
// without Redis simply leave it disabled.
func InitRedis() error {
	redisCfg := config.GlobalConfig.Database.Redis
	if !redisCfg.Enabled {
		return nil
	}

	Rdb = redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port),
		Password:   redisCfg.Password,
		DB:         redisCfg.DB,
		PoolSize:   redisCfg.PoolSize,
		MaxRetries: redisCfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	return nil
}

func Close() error {
	if Rdb != nil {
		return Rdb.Close()
	}
	return nil
}

// TaskProgress is the job progress record mirrored for UI polling.
type TaskProgress struct {
	JobID  string `json:"jobId"`
	Phase  int    `json:"phase"`
	Status string `json:"status"`
}

const taskProgressTTL = time.Hour

// SetTaskProgress mirrors a job's checkpoint phase and status. Callers
// treat failures as advisory; the generation pipeline never depends on it.
func SetTaskProgress(ctx context.Context, client *redis.Client, progress TaskProgress) error {
	if client == nil {
		return nil
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("plan_task:%s", progress.JobID)
	return client.Set(ctx, key, data, taskProgressTTL).Err()
}

// GetTaskProgress reads a mirrored progress record. A missing key returns
// a nil progress with no error.
func GetTaskProgress(ctx context.Context, client *redis.Client, jobID string) (*TaskProgress, error) {
	if client == nil {
		return nil, nil
	}
	key := fmt.Sprintf("plan_task:%s", jobID)
	data, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var progress TaskProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// DeleteTaskProgress clears the mirror after a terminal transition.
func DeleteTaskProgress(ctx context.Context, client *redis.Client, jobID string) error {
	if client == nil {
		return nil
	}
	key := fmt.Sprintf("plan_task:%s", jobID)
	return client.Del(ctx, key).Err()
}
