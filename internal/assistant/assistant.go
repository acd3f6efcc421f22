// Package assistant answers chat messages about the supported coins.
package assistant

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"cryptoguide/internal/coins"
	"cryptoguide/internal/intent"
	"cryptoguide/internal/market"
	"cryptoguide/internal/metrics"
	"cryptoguide/internal/textproc"
	"cryptoguide/logger"
)

// Reply kinds, used as metric labels.
const (
	KindGreeting = "greeting"
	KindHelp     = "help"
	KindMarket   = "market"
)

// Assistant runs the answer pipeline: greeting and help short-circuits,
// then tokenize, classify, fetch and format. It is safe for concurrent use.
type Assistant struct {
	fetcher market.Fetcher
	log     *logger.Entry

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRand sets the source used to pick greeting replies.
func WithRand(r *rand.Rand) Option {
	return func(a *Assistant) {
		a.rnd = r
	}
}

// WithLogger replaces the default component logger.
func WithLogger(log *logger.Log) Option {
	return func(a *Assistant) {
		a.log = log.WithComponent("assistant")
	}
}

func New(fetcher market.Fetcher, opts ...Option) *Assistant {
	a := &Assistant{
		fetcher: fetcher,
		log:     logger.GetLogger().WithComponent("assistant"),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer returns the reply to question. It never fails: fetch problems
// are rendered into the text for the affected coin.
func (a *Assistant) Answer(ctx context.Context, question string) string {
	text := intent.Normalize(question)

	if word, ok := intent.Greeting(text); ok {
		metrics.ObserveQuery(KindGreeting)
		return a.greet(word) + "\n\n" + Capabilities
	}
	if intent.IsHelp(text) {
		metrics.ObserveQuery(KindHelp)
		return Capabilities
	}

	start := time.Now()
	in := intent.Classify(textproc.Preprocess(text))
	reports := a.collect(ctx, in)
	reply := Format(in, reports)

	metrics.ObserveQuery(KindMarket)
	logger.LogPerformanceEntry(a.log, "assistant", "answer", time.Since(start), logger.Fields{
		"coins":  len(in.Coins),
		"fields": in.Fields.Names(),
		"all":    in.ShowAll,
	})
	return reply
}

// collect fetches what in asks for, one coin after another.
func (a *Assistant) collect(ctx context.Context, in intent.Intent) []CoinReport {
	reports := make([]CoinReport, 0, len(in.Coins))
	for _, id := range in.Coins {
		r := CoinReport{Coin: id}
		r.Sustainability, _ = coins.SustainabilityOf(id)

		snap, err := a.fetcher.Snapshot(ctx, id)
		if err != nil {
			a.log.WithError(err).WithFields(logger.Fields{"coin": id.String()}).Warn("snapshot unavailable")
			reports = append(reports, r)
			continue
		}
		r.Snapshot = &snap

		if in.Wants(intent.FieldNews) {
			news, err := a.fetcher.Description(ctx, id)
			if err != nil {
				a.log.WithError(err).WithFields(logger.Fields{"coin": id.String()}).Warn("news unavailable")
			} else {
				r.News = news
			}
		}
		reports = append(reports, r)
	}
	return reports
}

func (a *Assistant) greet(word string) string {
	replies := greetingReplies[word]
	if len(replies) == 0 {
		replies = greetingReplies["hello"]
	}
	a.mu.Lock()
	i := a.rnd.Intn(len(replies))
	a.mu.Unlock()
	return replies[i]
}
