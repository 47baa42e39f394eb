package worker

import (
	"context"

	"github.com/anyswap/CrossChain-HTLC/disclosure"
	"github.com/anyswap/CrossChain-HTLC/events"
)

const feedJob = "feed"

// FeedLoop record broadcast events into the public notice feed
func FeedLoop(bus *events.Bus, feed *disclosure.Feed) func(ctx context.Context) {
	ch := bus.Subscribe(0, disclosure.FeedTopics...)
	return func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if !feed.Record(ev) {
					logWorkerWarn(feedJob, "ignore unexpected feed event", "topic", ev.Topic)
					continue
				}
				logWorkerTrace(feedJob, "record public notice", "topic", ev.Topic, "seq", feed.LastSeq())
			}
		}
	}
}
