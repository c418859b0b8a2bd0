// Package adminapi exposes a read-only HTTP/WebSocket surface over the
// gateway's ledgers and catalog: health and metrics for operators, a JSON
// mirror of the FIX query round trips (U1-U10) for anything that would
// rather poll REST than speak FIX, and a WebSocket push of mark-to-market
// position/account updates for a dashboard. None of it can place, cancel,
// or otherwise mutate an order — that surface is FIX-only.
package adminapi

import (
	"log"
	"net/http"
	"time"

	"futures-gateway/internal/catalog"
	"futures-gateway/internal/events"
	"futures-gateway/internal/ledger"
	"futures-gateway/internal/monitor"
	"futures-gateway/internal/persistence"

	"github.com/denisbrodbeck/machineid"
	"github.com/gin-gonic/gin"
)

// Server wires the gin router around the gateway's read models.
type Server struct {
	Router *gin.Engine

	accounts  *ledger.AccountLedger
	positions *ledger.PositionLedger
	catalog   *catalog.Catalog
	store     *persistence.Store
	bus       *events.Bus
	metrics   *monitor.SystemMetrics

	jwtSecret   string
	startedAt   time.Time
	instanceID  string
	credentials map[string]string // accountID -> bcrypt hash
}

// Credential pairs an account ID with the plaintext dashboard password an
// operator will log in with; New hashes it once at startup.
type Credential struct {
	AccountID string
	Password  string
}

// New builds the router and registers routes. jwtSecret gates every route
// under /api/v1 except /healthz and /metrics, keeping public auth endpoints
// separate from AuthMiddleware-protected ones. bus and metrics may be nil:
// with no bus the dashboard websocket sends one error frame and closes, and
// with no metrics the metrics endpoint omits its "system" section. An account with
// no entry in creds (empty password) cannot log in to the dashboard at all,
// though its orders still flow normally over FIX.
func New(accounts *ledger.AccountLedger, positions *ledger.PositionLedger, cat *catalog.Catalog, store *persistence.Store, bus *events.Bus, metrics *monitor.SystemMetrics, jwtSecret string, creds []Credential) *Server {
	id, err := machineid.ProtectedID("futures-gateway")
	if err != nil {
		id = "unknown"
	}

	hashes := make(map[string]string, len(creds))
	for _, c := range creds {
		if c.Password == "" {
			continue
		}
		h, err := hashPassword(c.Password)
		if err != nil {
			log.Printf("adminapi: hash password for %s: %v", c.AccountID, err)
			continue
		}
		hashes[c.AccountID] = h
	}

	s := &Server{
		Router:      gin.New(),
		accounts:    accounts,
		positions:   positions,
		catalog:     cat,
		store:       store,
		bus:         bus,
		metrics:     metrics,
		jwtSecret:   jwtSecret,
		startedAt:   time.Now(),
		instanceID:  id,
		credentials: hashes,
	}

	r := s.Router
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RateLimitMiddleware())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", s.metricsHandler)
	r.POST("/auth/login", s.Login)

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.GET("/accounts/:id/balance", s.getBalance)
		api.GET("/accounts/:id/positions", s.getPositions)
		api.GET("/instruments", s.searchInstruments)
		api.GET("/accounts/:id/orders", s.getOrderHistory)
		api.GET("/ws/dashboard", s.dashboard)
	}

	return s
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"instance_id": s.instanceID,
		"uptime":      time.Since(s.startedAt).String(),
	})
}

func (s *Server) metricsHandler(c *gin.Context) {
	resp := gin.H{
		"accounts":    len(s.accounts.All()),
		"instruments": len(s.catalog.All()),
	}
	if s.metrics != nil {
		resp["system"] = s.metrics.GetSnapshot()
	}
	c.JSON(http.StatusOK, resp)
}

// Login mints a bearer token for an account whose dashboard password
// checks out. The account must also already be known to the ledger; an
// account with no configured password cannot log in at all.
func (s *Server) Login(c *gin.Context) {
	var req struct {
		AccountID string `json:"account_id"`
		Password  string `json:"password"`
	}
	if err := c.BindJSON(&req); err != nil || req.AccountID == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id and password required"})
		return
	}
	if _, ok := s.accounts.Get(req.AccountID); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	hash, ok := s.credentials[req.AccountID]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := checkPassword(hash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	expiresAt := time.Now().Add(24 * time.Hour)
	token, err := generateToken(req.AccountID, s.jwtSecret, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt.UTC().Format(time.RFC3339)})
}

func accountIDFromPath(c *gin.Context) string {
	return c.Param("id")
}
