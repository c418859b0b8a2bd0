// Command gatewayd is the futures trading gateway's composition root: it
// loads configuration, opens persistence, seeds the catalog and ledgers,
// wires the matching engine to the FIX application layer, and accepts
// client connections until a signal asks it to stop.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"futures-gateway/internal/adminapi"
	"futures-gateway/internal/catalog"
	"futures-gateway/internal/config"
	"futures-gateway/internal/events"
	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/gateway"
	"futures-gateway/internal/ledger"
	"futures-gateway/internal/matching"
	"futures-gateway/internal/mdvendor"
	"futures-gateway/internal/monitor"
	"futures-gateway/internal/netconn"
	"futures-gateway/internal/persistence"
	"futures-gateway/internal/reactor"
	"futures-gateway/internal/timingwheel"
	"futures-gateway/internal/workerpool"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

func main() {
	os.Exit(run())
}

// run does all of the real work and returns the process exit code, so
// defers (DB close, listener close) actually execute before os.Exit runs
// in main — os.Exit itself skips every deferred call in its caller.
func run() int {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(os.Getenv("GATEWAY_CONFIG"))
	if err != nil {
		log.Printf("gatewayd: config load failed: %v", err)
		return 1
	}
	applyCLIOverrides(cfg, os.Args[1:])

	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		log.Printf("gatewayd: open database: %v", err)
		return 1
	}
	defer db.Close()
	if err := persistence.ApplyMigrations(db); err != nil {
		log.Printf("gatewayd: apply migrations: %v", err)
		return 1
	}
	store := persistence.NewStore(db)

	cat := catalog.New()
	instruments := make([]catalog.Instrument, 0, len(cfg.Instruments))
	for _, row := range cfg.Instruments {
		instruments = append(instruments, catalog.Instrument{
			InstrumentID:   row.InstrumentID,
			Exchange:       row.Exchange,
			ProductID:      row.ProductID,
			PriceTick:      row.PriceTick,
			VolumeMultiple: row.VolumeMultiple,
			MarginRate:     row.MarginRate,
		})
	}
	if err := cat.LoadFromConfig(instruments); err != nil {
		log.Printf("gatewayd: load catalog: %v", err)
		return 1
	}

	accounts := ledger.NewAccountLedger()
	positions := ledger.NewPositionLedger()
	seedLedgers(cfg, store, accounts, positions)

	bus := events.NewBus()

	nextExecID := func() string { return uuid.NewString() }

	orderNode, err := snowflake.NewNode(1)
	if err != nil {
		log.Printf("gatewayd: init order ID generator: %v", err)
		return 1
	}
	nextOrderID := func() string { return orderNode.Generate().String() }

	registry := fixcore.NewRegistry()
	gw := gateway.New(registry, accounts, positions, cat, store, bus, nextExecID)

	engine := matching.New(1024, nil, nextOrderID, gw.HandleReport,
		matching.WithMarketDataObserver(gw.HandleMarketData))
	gw.SetEngine(engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go engine.Run(ctx)

	wheel := timingwheel.New(cfg.TimingWheel.Slots, cfg.TimingWheel.TickDur)
	wheel.AddPeriodicTask(time.Second, func() {
		registry.ForEachSession(func(_ fixcore.SessionID, s *fixcore.Session) {
			s.OnTimerCheck()
		})
	})

	react := reactor.New(cfg.TimingWheel.TickDur)
	go react.Run()
	defer react.Stop()

	// Drive the wheel's tick off the reactor's own timer seam (its doc
	// comment names this as the intended pairing) rather than giving the
	// wheel a second standalone ticker goroutine.
	var scheduleTick func()
	scheduleTick = func() {
		react.AddTimer(cfg.TimingWheel.TickDur, func() {
			wheel.Tick()
			scheduleTick()
		})
	}
	scheduleTick()

	pool := workerpool.New(cfg.Server.WorkerThreads, 256)
	defer pool.Shutdown()

	if cfg.MDVendorAddr != "" {
		startMarketDataFeed(ctx, cfg.MDVendorAddr, instruments, engine)
	}

	sysMetrics := monitor.NewSystemMetrics()
	mon := &monitor.Monitor{Bus: bus, Sink: monitor.LogSink{}, Metrics: sysMetrics}
	mon.Start(ctx)

	if cfg.AdminAddr != "" {
		startAdminServer(ctx, cfg, accounts, positions, cat, store, bus, sysMetrics)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		log.Printf("gatewayd: listen on port %d: %v", cfg.Server.Port, err)
		return 1
	}
	defer listener.Close()
	log.Printf("gatewayd: listening on %s (%d worker threads)", listener.Addr(), cfg.Server.WorkerThreads)

	var connCount int64
	go acceptLoop(listener, pool, registry, gw, cfg, store, &connCount)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("gatewayd: shutting down")

	registry.ForEachSession(func(id fixcore.SessionID, s *fixcore.Session) {
		s.Shutdown("server shutdown")
	})
	return 0
}

// applyCLIOverrides implements the optional positional
// `<worker_threads> <port>` CLI surface: present args win over whatever
// config.Load produced (defaults, then file, then explicit override).
func applyCLIOverrides(cfg *config.Config, args []string) {
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			cfg.Server.WorkerThreads = n
		} else {
			log.Printf("gatewayd: ignoring invalid worker_threads argument %q", args[0])
		}
	}
	if len(args) >= 2 {
		if p, err := strconv.Atoi(args[1]); err == nil && p > 0 {
			cfg.Server.Port = p
		} else {
			log.Printf("gatewayd: ignoring invalid port argument %q", args[1])
		}
	}
}

// seedLedgers loads whatever the persistence layer already has on file; an
// account present in cfg but absent from the database gets the configured
// starting balance (positions come from the database only), the same "DB wins, config seeds" precedence
// config.Load itself applies between file and defaults.
func seedLedgers(cfg *config.Config, store *persistence.Store, accounts *ledger.AccountLedger, positions *ledger.PositionLedger) {
	persisted, err := store.LoadAccounts()
	if err != nil {
		log.Printf("gatewayd: load persisted accounts: %v", err)
	}
	seen := make(map[string]bool, len(persisted))
	for _, a := range persisted {
		seen[a.AccountID] = true
		accounts.Seed(ledger.Account{
			AccountID: a.AccountID, Balance: a.Balance, Available: a.Available,
			FrozenMargin: a.FrozenMargin, UsedMargin: a.UsedMargin,
			PositionProfit: a.PositionProfit, CloseProfit: a.CloseProfit,
		})
	}
	for _, row := range cfg.Accounts {
		if seen[row.AccountID] {
			continue
		}
		accounts.Seed(ledger.Account{
			AccountID: row.AccountID, Balance: row.StartingBalance, Available: row.StartingBalance,
		})
	}

	persistedPositions, err := store.LoadPositions()
	if err != nil {
		log.Printf("gatewayd: load persisted positions: %v", err)
	}
	for _, p := range persistedPositions {
		positions.Seed(ledger.Position{
			AccountID: p.AccountID, InstrumentID: p.InstrumentID,
			LongQty: p.LongQty, LongAvgPx: p.LongAvgPx, LongMargin: p.LongMargin,
			ShortQty: p.ShortQty, ShortAvgPx: p.ShortAvgPx, ShortMargin: p.ShortMargin,
			PositionProfit: p.PositionProfit,
		})
	}
}

// startMarketDataFeed dials the vendor once and fans its quote stream for
// every configured instrument into the matching engine. A dial failure is
// logged, not fatal: the gateway still serves order entry and query
// traffic, but the matching engine fills only against vendor snapshots, so
// without one limit orders rest unfilled and market orders are canceled.
func startMarketDataFeed(ctx context.Context, addr string, instruments []catalog.Instrument, engine *matching.Engine) {
	client, err := mdvendor.Dial(addr)
	if err != nil {
		log.Printf("gatewayd: market data vendor unavailable: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		client.Close()
	}()
	for _, inst := range instruments {
		go client.Run(ctx, inst.InstrumentID, engine.SubmitMarketData)
	}
}

// startAdminServer runs the read-only HTTP/WebSocket admin surface on its
// own address, separate from the FIX listener, so an operator dashboard
// never shares a port (or a failure mode) with order entry traffic.
func startAdminServer(ctx context.Context, cfg *config.Config, accounts *ledger.AccountLedger,
	positions *ledger.PositionLedger, cat *catalog.Catalog, store *persistence.Store,
	bus *events.Bus, metrics *monitor.SystemMetrics) {
	creds := make([]adminapi.Credential, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		creds = append(creds, adminapi.Credential{AccountID: a.AccountID, Password: a.Password})
	}
	srv := adminapi.New(accounts, positions, cat, store, bus, metrics, cfg.JWTSecret, creds)
	httpServer := &http.Server{Addr: cfg.AdminAddr, Handler: srv.Router}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("gatewayd: admin server stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
}

// acceptLoop accepts connections until the listener is closed at shutdown,
// assigning each one a thread-affine worker index (connFd mod N, approximated
// here by a monotonic accept counter since Go's net.Conn exposes no raw fd)
// and a SessionID. Counterparties are provisioned out of band in this
// reference deployment: the accepted TCP connection itself, not a wire
// field, is what the session binds to an account (see Gateway.OnLogon).
func acceptLoop(listener net.Listener, pool *workerpool.Pool, registry *fixcore.Registry, app fixcore.Application, cfg *config.Config, store *persistence.Store, connCount *int64) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("gatewayd: accept loop stopped: %v", err)
			return
		}
		n := atomic.AddInt64(connCount, 1)
		threadIndex := int(n) % pool.Size()
		sessionID := fixcore.SessionID{SenderCompID: "GATEWAY", TargetCompID: fmt.Sprintf("CLIENT%d", n)}

		codec := fixwire.NewCodec()
		decoder := fixwire.NewDecoder(cfg.Protocol.MaxBufferSize, cfg.Protocol.MaxBodyLength)
		session := fixcore.NewSession(sessionID, fixcore.RoleAcceptor,
			cfg.Client.DefaultHeartBtInt, cfg.FixSession.MinHeartBtInt, cfg.FixSession.MaxHeartBtInt,
			codec, store, app)

		netConn := netconn.New(conn, session, pool, threadIndex, decoder, codec)
		session.SetSender(netConn)
		registry.Register(sessionID, session)

		log.Printf("gatewayd: accepted %s as session %s/%s on worker %d",
			conn.RemoteAddr(), sessionID.SenderCompID, sessionID.TargetCompID, threadIndex)

		session.Start()
		go netConn.Serve()
	}
}
