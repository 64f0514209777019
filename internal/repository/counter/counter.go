package counter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	KeyDownloadCounters = "dc" // HASH. dc:{archive_id} file_path: counter. HINCRBY dc:{archive_id} {file_path} 1

	KeySeparator = ":"
)

type counterRepository struct {
	cl  redis.Cmdable
	log *slog.Logger
}

func NewCounterRepository(cl redis.Cmdable, log *slog.Logger) *counterRepository {
	return &counterRepository{
		cl:  cl,
		log: log.With(slog.String("item", "CounterRepository")),
	}
}

// IncFileCounter increments the counter of a file path inside the archive.
func (r *counterRepository) IncFileCounter(ctx context.Context, archiveID, filePath string) (int64, error) {
	counter, err := r.cl.HIncrBy(ctx, getKey(KeyDownloadCounters, archiveID), filePath, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("cannot increment file %s counter: %w", filePath, err)
	}

	return counter, nil
}

func (r *counterRepository) GetDownloadCounters(ctx context.Context, archiveID string) (map[string]int64, error) {
	values, err := r.cl.HGetAll(ctx, getKey(KeyDownloadCounters, archiveID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get download counters: %w", err)
	}

	counters := make(map[string]int64, len(values))
	for filePath, value := range values {
		c, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			r.log.Error("Cannot convert counter value to int", slog.String("file", filePath), slog.Any("error", err))

			continue
		}

		counters[filePath] = c
	}

	return counters, nil
}

func getKey(keys ...string) string {
	return strings.Join(keys, KeySeparator)
}
