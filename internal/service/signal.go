package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

// SignalService publishes committed events on redis, one channel per event kind.
type SignalService struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewSignalService(redisClient *redis.Client, logger *zap.Logger) *SignalService {
	return &SignalService{
		rdb:    redisClient,
		logger: logger,
	}
}

func Channel(kind adz.EventKind) string {
	return domain.SignalChannelPrefix + string(kind)
}

func (s *SignalService) Emit(ctx context.Context, event adz.Event) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.rdb.Publish(ctx, Channel(event.Kind), jsonstr).Err()
}

// Realtime forwards events whose kind is in the latest set received on input.
// An empty set means every kind. It returns when ctx is done or input is closed.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []adz.EventKind, output chan<- adz.Event) {
	pubsub := s.rdb.PSubscribe(ctx, domain.SignalChannelPrefix+"*")
	defer pubsub.Close()

	messages := pubsub.Channel()
	filter := map[adz.EventKind]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return
		case kinds, ok := <-input:
			if !ok {
				return
			}
			filter = make(map[adz.EventKind]struct{}, len(kinds))
			for _, k := range kinds {
				filter[k] = struct{}{}
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			kind := adz.EventKind(strings.TrimPrefix(msg.Channel, domain.SignalChannelPrefix))
			if len(filter) > 0 {
				if _, want := filter[kind]; !want {
					continue
				}
			}

			var event adz.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warn("dropping malformed signal", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}

			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
