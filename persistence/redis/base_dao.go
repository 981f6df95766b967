package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/orchy-console/logger"
	"go.uber.org/zap"
)

type baseDao struct {
	redisClient rd.UniversalClient
	namespace   string
	ring        *ring
}

func newBaseDao(conf Config) *baseDao {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		Password: conf.Password,
		PoolSize: conf.PoolSize,
	})
	return &baseDao{
		redisClient: redisClient,
		namespace:   conf.Namespace,
		ring:        newRing(conf.PartitionCount),
	}
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}

func (bs *baseDao) getPartitionKey(prefix string, id string) string {
	return bs.getNamespaceKey(prefix, strconv.Itoa(bs.ring.GetPartition(id)))
}

func (bs *baseDao) ping(ctx context.Context, retries int) error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), uint64(retries))
	return backoff.Retry(func() error {
		err := bs.redisClient.Ping(ctx).Err()
		if err != nil {
			logger.Warn("redis not reachable", zap.Error(err))
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func (bs *baseDao) Close() error {
	return bs.redisClient.Close()
}
