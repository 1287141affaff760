// Package api provides the HTTP surface: command submission and world
// observation. GET endpoints are public (read-only observation), admin
// POST endpoints require a bearer token, and a websocket stream carries
// live events.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/blockrow/internal/economy"
	"github.com/talgya/blockrow/internal/engine"
	"github.com/talgya/blockrow/internal/persistence"
)

// A request ID shorter than this cannot plausibly be unique.
const minRequestIDLen = 8

// Server serves the city over HTTP.
type Server struct {
	Eng      *engine.Engine
	Clock    *engine.Clock
	DB       *persistence.DB
	Hub      *Hub
	Port     int
	AdminKey string // bearer token for admin endpoints; empty = disabled
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	commandLimiter := NewRateLimiter(120, time.Minute)
	registerLimiter := NewRateLimiter(10, time.Hour)

	mux := http.NewServeMux()

	// Command plane.
	mux.HandleFunc("/api/v1/register", RateLimitMiddleware(registerLimiter, s.handleRegister))
	mux.HandleFunc("/api/v1/command", RateLimitMiddleware(commandLimiter, s.handleCommand))

	// Public observation endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/districts", s.handleDistricts)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentRoutes)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/gangs", s.handleGangs)
	mux.HandleFunc("/api/v1/territories", s.handleTerritories)
	mux.HandleFunc("/api/v1/market", s.handleMarket)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/properties", s.handleProperties)
	mux.HandleFunc("/api/v1/catalog", s.handleCatalog)

	if s.Hub != nil {
		mux.Handle("/api/v1/stream", s.Hub)
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/init", s.adminOnly(s.handleInit))
	mux.HandleFunc("/api/v1/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("/api/v1/resume", s.adminOnly(s.handleResume))
	mux.HandleFunc("/api/v1/tick", s.adminOnly(s.handleManualTick))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no CITYSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	a := s.Eng.Register(strings.TrimSpace(req.Name))
	writeJSON(w, a)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.AgentID == "" {
		http.Error(w, "agent_id required", http.StatusBadRequest)
		return
	}
	if len(req.RequestID) < minRequestIDLen {
		http.Error(w, fmt.Sprintf("request_id must be at least %d characters", minRequestIDLen), http.StatusBadRequest)
		return
	}

	cmd, err := parseCommand(req.Kind, req.Args)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := s.Eng.Resolve(req.AgentID, req.RequestID, cmd)
	writeJSON(w, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.View(func(world *engine.World) {
		npcs := 0
		var totalCash int64
		for _, a := range world.Agents {
			if a.NPC {
				npcs++
			}
			totalCash += a.Cash
		}
		status = map[string]any{
			"name":        "Blockrow",
			"seed":        world.Seed,
			"tick":        world.Tick,
			"paused":      world.Paused,
			"agents":      len(world.Agents),
			"npcs":        npcs,
			"districts":   len(world.Map.Districts),
			"gangs":       len(world.Gangs),
			"territories": len(world.Territories),
			"businesses":  len(world.Businesses),
			"bounties":    len(world.Bounties),
			"total_cash":  totalCash,
		}
	})
	writeJSON(w, status)
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	type districtSummary struct {
		Slug       string  `json:"slug"`
		Name       string  `json:"name"`
		Wealth     float64 `json:"wealth"`
		Danger     float64 `json:"danger"`
		Civic      bool    `json:"civic,omitempty"`
		Agents     int     `json:"agents"`
		Businesses int     `json:"businesses"`
		HeldBy     string  `json:"held_by,omitempty"`
	}

	var out []districtSummary
	s.Eng.View(func(world *engine.World) {
		byZone := make(map[string]int)
		for _, a := range world.Agents {
			byZone[a.Zone]++
		}
		for _, slug := range world.Map.Order {
			d := world.Map.Get(slug)
			entry := districtSummary{
				Slug:       d.Slug,
				Name:       d.Name,
				Wealth:     d.Wealth,
				Danger:     d.Danger,
				Civic:      d.Civic,
				Agents:     byZone[slug],
				Businesses: len(world.BusinessesInZone(slug)),
			}
			if terr := world.Territories[slug]; terr != nil {
				if g := world.Gangs[terr.GangID]; g != nil {
					entry.HeldBy = g.Name
				}
			}
			out = append(out, entry)
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		NPC    bool   `json:"npc,omitempty"`
		Zone   string `json:"zone"`
		Status string `json:"status"`
	}

	var out []agentSummary
	s.Eng.View(func(world *engine.World) {
		for _, id := range world.AgentIDs() {
			a := world.Agents[id]
			out = append(out, agentSummary{
				ID: a.ID, Name: a.Name, NPC: a.NPC,
				Zone: a.Zone, Status: a.Status.String(),
			})
		}
	})
	writeJSON(w, out)
}

// handleAgentRoutes dispatches /api/v1/agent/{id}[/events|/ledger].
func (s *Server) handleAgentRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/agent/")
	parts := strings.SplitN(path, "/", 2)
	agentID := parts[0]
	if agentID == "" {
		http.Error(w, "agent id required", http.StatusBadRequest)
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "events":
			s.handleAgentEvents(w, r, agentID)
		case "ledger":
			s.handleAgentLedger(w, r, agentID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	var snapshot map[string]any
	s.Eng.View(func(world *engine.World) {
		a := world.Agents[agentID]
		if a == nil {
			return
		}
		snapshot = map[string]any{
			"agent":            a,
			"wealth":           world.TotalWealth(a),
			"allowed_commands": engine.AllowedCommands(world, a),
			"jobs":             world.JobsInZone(a.Zone),
			"businesses":       world.BusinessesInZone(a.Zone),
		}
		if g := world.GangOf(a); g != nil {
			snapshot["gang"] = map[string]any{"id": g.ID, "name": g.Name, "leader": g.LeaderID}
		}
	})
	if snapshot == nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleAgentEvents(w http.ResponseWriter, r *http.Request, agentID string) {
	if s.DB == nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	events, err := s.DB.AgentEvents(agentID, queryLimit(r, 50))
	if err != nil {
		slog.Error("agent events query failed", "agent", agentID, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleAgentLedger(w http.ResponseWriter, r *http.Request, agentID string) {
	if s.DB == nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	entries, err := s.DB.AgentLedger(agentID, queryLimit(r, 50))
	if err != nil {
		slog.Error("agent ledger query failed", "agent", agentID, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)

	if since := r.URL.Query().Get("since"); since != "" && s.DB != nil {
		tick, err := strconv.ParseUint(since, 10, 64)
		if err != nil {
			http.Error(w, "since must be a tick number", http.StatusBadRequest)
			return
		}
		events, err := s.DB.EventsSince(tick, limit)
		if err != nil {
			slog.Error("events query failed", "error", err)
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, events)
		return
	}

	writeJSON(w, s.Eng.RecentEvents(limit))
}

func (s *Server) handleGangs(w http.ResponseWriter, r *http.Request) {
	type gangSummary struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		LeaderID    string   `json:"leader_id"`
		Members     int      `json:"members"`
		Treasury    int64    `json:"treasury"`
		Territories []string `json:"territories,omitempty"`
	}

	var out []gangSummary
	s.Eng.View(func(world *engine.World) {
		for _, g := range world.Gangs {
			entry := gangSummary{
				ID: g.ID, Name: g.Name, LeaderID: g.LeaderID,
				Members: len(g.Members), Treasury: g.Treasury,
			}
			for _, zone := range world.TerritoryZones() {
				if world.Territories[zone].GangID == g.ID {
					entry.Territories = append(entry.Territories, zone)
				}
			}
			out = append(out, entry)
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleTerritories(w http.ResponseWriter, r *http.Request) {
	var out []map[string]any
	s.Eng.View(func(world *engine.World) {
		for _, zone := range world.TerritoryZones() {
			terr := world.Territories[zone]
			entry := map[string]any{
				"zone":        terr.Zone,
				"gang_id":     terr.GangID,
				"strength":    terr.Strength,
				"contestable": terr.Contestable,
			}
			if g := world.Gangs[terr.GangID]; g != nil {
				entry["gang_name"] = g.Name
			}
			out = append(out, entry)
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		http.Error(w, "zone query parameter required", http.StatusBadRequest)
		return
	}

	var out []*economy.Business
	s.Eng.View(func(world *engine.World) {
		out = world.BusinessesInZone(zone)
	})
	writeJSON(w, out)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		http.Error(w, "zone query parameter required", http.StatusBadRequest)
		return
	}

	var out any
	s.Eng.View(func(world *engine.World) {
		out = world.JobsInZone(zone)
	})
	writeJSON(w, out)
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")

	type propertyView struct {
		*economy.Property
		Occupied bool `json:"occupied"`
	}
	var out []propertyView
	s.Eng.View(func(world *engine.World) {
		for _, p := range world.Properties {
			if zone != "" && p.Zone != zone {
				continue
			}
			_, occupied := world.Residencies[p.ID]
			out = append(out, propertyView{Property: p, Occupied: occupied})
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, economy.Catalog)
}

// handleInit generates a world when none exists yet. Safe to call
// repeatedly: an existing world is reported, never replaced.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed      string `json:"seed"`
		Districts int    `json:"districts"`
	}
	// Body is optional; an empty or malformed one falls back to defaults.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Seed == "" {
		req.Seed = "blockrow-1"
	}

	tick, created := s.Eng.InitWorld(req.Seed, req.Districts)
	writeJSON(w, map[string]any{"tick": tick, "created": created})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.Eng.SetPaused(true)
	slog.Info("world paused via admin API")
	writeJSON(w, map[string]any{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.Eng.SetPaused(false)
	slog.Info("world resumed via admin API")
	writeJSON(w, map[string]any{"paused": false})
}

// handleManualTick steps the clock once, for external schedulers and test
// harnesses. While the world is paused the step is a no-op; while running
// the tick simply lands between scheduled ones.
func (s *Server) handleManualTick(w http.ResponseWriter, r *http.Request) {
	if s.Clock == nil {
		http.Error(w, "no clock attached", http.StatusServiceUnavailable)
		return
	}
	s.Clock.Step()
	var tick uint64
	s.Eng.View(func(world *engine.World) { tick = world.Tick })
	writeJSON(w, map[string]any{"tick": tick})
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 1000 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}
