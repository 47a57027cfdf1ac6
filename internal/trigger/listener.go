package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/timmy/reelvault/internal/logger"
)

const popTimeout = 5 * time.Second

// Listener drains the Redis signal list and runs one worker invocation per
// signal, one at a time.
type Listener struct {
	client   *redis.Client
	queue    string
	run      RunFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewListener creates a listener for queue.
func NewListener(client *redis.Client, queue string, run RunFunc) *Listener {
	return &Listener{
		client:   client,
		queue:    queue,
		run:      run,
		stopChan: make(chan struct{}),
	}
}

// Start begins consuming signals until ctx is done or Stop is called.
func (l *Listener) Start(ctx context.Context) {
	l.wg.Add(1)
	go l.loop(ctx)
	logger.CtxInfo(ctx, "Worker signal listener started on %s", l.queue)
}

// Stop waits for the in-flight invocation to finish.
func (l *Listener) Stop() {
	l.once.Do(func() { close(l.stopChan) })
	l.wg.Wait()
}

func (l *Listener) loop(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		default:
		}

		result, err := l.client.BLPop(ctx, popTimeout, l.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.CtxError(ctx, "Failed to read worker signal: %v", err)
			select {
			case <-time.After(time.Second):
			case <-l.stopChan:
				return
			case <-ctx.Done():
				return
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var inv Invocation
		if err := json.Unmarshal([]byte(result[1]), &inv); err != nil {
			logger.CtxWarn(ctx, "Dropping malformed worker signal %q: %v", result[1], err)
			continue
		}
		if err := l.run(ctx, inv); err != nil {
			logger.FromContext(ctx).WithError(err).WithFields(logger.Fields{
				logger.FieldChainDepth: inv.Depth,
			}).Error("Download worker run failed")
		}
	}
}
