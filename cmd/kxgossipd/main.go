// Command kxgossipd runs one gossip cluster participant: it binds a UDP
// socket, joins the configured seed peers, forwards messages from an
// external NATS feed into the cluster, and serves Prometheus metrics —
// following the lineage repo's cmd/single/main.go wiring order: automaxprocs
// first, then config, then the structured logger, then the long-running
// components, then a signal-driven graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/time/rate"

	"github.com/adred-codev/kxgossip/internal/config"
	"github.com/adred-codev/kxgossip/internal/feed"
	"github.com/adred-codev/kxgossip/internal/health"
	"github.com/adred-codev/kxgossip/internal/logging"
	"github.com/adred-codev/kxgossip/internal/metrics"
	"github.com/adred-codev/kxgossip/pkg/kxgossip"
	"github.com/adred-codev/kxgossip/pkg/kxmember"
	"github.com/adred-codev/kxgossip/pkg/kxoutbound"
)

// feedQueueSize bounds how many NATS payloads may be buffered waiting for
// the gossip driving loop to call SendData. A subscriber that outruns this
// gets ErrFeedQueueFull back from Send, which the feed subscriber logs
// before dropping the payload —
// better than letting the NATS dispatch goroutine call into Engine directly.
const feedQueueSize = 256

// ErrFeedQueueFull is returned to the NATS subscription callback when the
// handoff channel to the gossip driving loop is full.
var ErrFeedQueueFull = fmt.Errorf("kxgossipd: feed queue full")

// memberSnapshot guards Engine.Members() reads from the gossip loop
// goroutine, following the design note's "reference embedding uses a
// reader-writer lock for the membership enumeration query": the lock lives
// here in the host process, not inside the single-threaded engine.
type memberSnapshot struct {
	mu      sync.RWMutex
	members []*kxmember.Member
}

func (s *memberSnapshot) set(members []*kxmember.Member) {
	s.mu.Lock()
	s.members = members
	s.mu.Unlock()
}

func (s *memberSnapshot) get() []*kxmember.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides LOG_LEVEL)")
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	cfg.LogConfig(logger)

	registry := prometheus.NewRegistry()
	met := metrics.New(registry)
	sampler := health.NewSampler()

	bindAddr, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("bind_addr", cfg.BindAddr).Msg("invalid bind address")
	}

	// Burst is fixed at MAX_OUTPUT_MESSAGES (the outbound pool's slot count)
	// so one drain can always clear a full pool's worth of due retries; the
	// sustained rate is the operator-tunable KXGOSSIP_SEND_RATE.
	limiter := rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), kxoutbound.MaxSlots)

	engine, err := kxgossip.New(bindAddr, nil,
		kxgossip.WithLogger(logger),
		kxgossip.WithMetrics(met),
		kxgossip.WithSendRateLimit(limiter),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct gossip engine")
	}
	defer engine.Close()

	seeds := make([]*net.UDPAddr, 0, len(cfg.Seeds))
	for _, s := range cfg.Seeds {
		if s == "" {
			continue
		}
		addr, err := net.ResolveUDPAddr("udp", s)
		if err != nil {
			logger.Warn().Err(err).Str("seed", s).Msg("skipping unresolvable seed")
			continue
		}
		seeds = append(seeds, addr)
	}
	if err := engine.Join(seeds); err != nil {
		logger.Fatal().Err(err).Msg("failed to join cluster")
	}
	logger.Info().Str("self", engine.Self().Addr.String()).Int("seeds", len(seeds)).Msg("gossip engine joined")

	snapshot := &memberSnapshot{}

	// feedCh hands payloads from the NATS subscription's dispatch goroutine
	// to the single gossip driving loop — Engine.SendData is only ever
	// called from runGossipLoop, never from the NATS callback itself, since
	// the engine is not reentrant and provides no internal locking (spec
	// §5). A full channel means the driving loop is falling behind the
	// feed; Send reports that back to nats.go as an error rather than
	// blocking the dispatch goroutine.
	feedCh := make(chan []byte, feedQueueSize)

	subscriber, err := feed.Connect(feed.Config{
		URL:     cfg.NATSURL,
		Subject: cfg.NATSSubject,
		Logger:  logger,
		Send: func(payload []byte) error {
			select {
			case feedCh <- payload:
				return nil
			default:
				return ErrFeedQueueFull
			}
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("external data feed unavailable, continuing without it")
	} else {
		defer subscriber.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		sampler.Update()
		mem := health.Memory()
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
		logger.Debug().
			Float64("cpu_percent", sampler.CPUPercent()).
			Uint64("heap_alloc_bytes", mem.HeapAllocBytes).
			Int("members", len(snapshot.get())).
			Msg("health check")
	})
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runGossipLoop(engine, snapshot, feedCh, stop, logger)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	close(stop)
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown error")
	}
}

// runGossipLoop drives ProcessReceive, ProcessSend, Tick, and SendData in
// the single-threaded, non-reentrant order the engine requires (spec §5):
// one goroutine owns the engine for its entire lifetime. feedCh is drained
// here too, so a payload handed off by the NATS subscription's dispatch
// goroutine only ever reaches Engine.SendData from this goroutine.
func runGossipLoop(engine *kxgossip.Engine, snapshot *memberSnapshot, feedCh <-chan []byte, stop <-chan struct{}, logger zerolog.Logger) {
	const pollInterval = 10 * time.Millisecond
	const maxReceivesPerTick = 64
	const maxFeedPerTick = 64
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// ProcessReceive drains at most one datagram per call and
			// returns a nil error both when it handled one and when the
			// socket had nothing queued (ErrWouldBlock). Call it a bounded
			// number of times per tick so a burst of inbound traffic
			// doesn't starve ProcessSend/Tick, without needing to
			// distinguish those two nil-error cases from here.
			for i := 0; i < maxReceivesPerTick; i++ {
				if err := engine.ProcessReceive(); err != nil {
					logger.Warn().Err(err).Msg("process receive failed")
					break
				}
			}
		drainFeed:
			for i := 0; i < maxFeedPerTick; i++ {
				select {
				case payload := <-feedCh:
					if err := engine.SendData(payload); err != nil {
						logger.Warn().Err(err).Msg("send data from feed failed")
					}
				default:
					break drainFeed
				}
			}
			if _, err := engine.ProcessSend(); err != nil {
				logger.Warn().Err(err).Msg("process send failed")
			}
			if _, err := engine.Tick(); err != nil {
				logger.Warn().Err(err).Msg("tick failed")
			}
			snapshot.set(engine.Members())
		}
	}
}
