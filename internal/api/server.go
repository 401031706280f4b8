package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"NetDecoy/internal/config"
	"NetDecoy/internal/model"
)

// Server exposes a read-only status API for operators. It observes the
// controller through the shared Stats value and never touches the
// datapath.
type Server struct {
	static *config.Static
	stats  *model.Stats
	http   *http.Server
}

// NewServer builds the HTTP server on the configured address.
func NewServer(cfg config.APIConfig, static *config.Static, stats *model.Stats) *Server {
	s := &Server{static: static, stats: stats}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/api/v1/config", s.configHandler).Methods("GET")

	s.http = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	return s
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		log.Printf("Status API listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Status API stopped: %v", err)
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type statusResponse struct {
	UptimeSeconds   float64 `json:"uptime_seconds"`
	SwitchConnected bool    `json:"switch_connected"`
	FlowsLearned    uint64  `json:"flows_learned"`
	ARPReplies      uint64  `json:"arp_replies"`
	PacketsIgnored  uint64  `json:"packets_ignored"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		UptimeSeconds:   time.Since(s.stats.StartTime).Seconds(),
		SwitchConnected: s.stats.SwitchConnected.Load(),
		FlowsLearned:    s.stats.FlowsLearned.Load(),
		ARPReplies:      s.stats.ARPReplies.Load(),
		PacketsIgnored:  s.stats.PacketsIgnored.Load(),
	}
	writeJSON(w, resp)
}

type configResponse struct {
	CoproPort     uint32 `json:"copro_port"`
	FakePort      uint32 `json:"fake_port"`
	FakeServerMAC string `json:"fake_server_mac"`
	FakeClientMAC string `json:"fake_client_mac"`
	VLAN          uint16 `json:"vlan"`
	FakeIP        string `json:"fake_ip"`
	FakeNet       string `json:"fake_net"`
	IdleTimeout   uint16 `json:"idle_timeout_sec"`
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	resp := configResponse{
		CoproPort:     s.static.CoproPort,
		FakePort:      s.static.FakePort,
		FakeServerMAC: s.static.FakeServerMAC.String(),
		FakeClientMAC: s.static.FakeClientMAC.String(),
		VLAN:          s.static.VLAN,
		FakeIP:        s.static.FakeIP.String(),
		FakeNet:       s.static.FakeNet.String(),
		IdleTimeout:   s.static.IdleTimeout,
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
