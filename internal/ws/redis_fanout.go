package ws

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// SubscribeRedisAuctionEvents fans messages published by any instance out
// to the in-process Hub. Blocks until ctx is cancelled.
func SubscribeRedisAuctionEvents(ctx context.Context, rdb *redis.Client, hub *Hub) {
	pubsub := rdb.PSubscribe(ctx, "auction:*:events")
	defer pubsub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			// channel format: "auction:<auctionID>:events"
			parts := strings.Split(m.Channel, ":")
			if len(parts) != 3 {
				continue
			}
			id, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				continue
			}
			hub.Broadcast(id, []byte(m.Payload))
		}
	}
}
