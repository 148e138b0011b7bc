// Package server 提供开发用的调试 HTTP 服务
//
// 路由：
//   - GET /metrics          Prometheus 指标
//   - GET /status           会话快照（JSON）
//   - GET /recommendations  AI 建议（JSON）
//   - GET /modes?level=N    模式解锁情况（JSON）
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gonewx/rallyx/pkg/game"
	"github.com/gonewx/rallyx/pkg/systems"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// SessionView 调试服务读取的会话接口
type SessionView interface {
	Snapshot() game.Snapshot
	Recommendations() []string
	AvailableModes(playerLevel int) []systems.ModeAvailability
}

// DebugServer 调试 HTTP 服务
type DebugServer struct {
	addr     string
	session  SessionView
	metrics  http.Handler
	server   *http.Server
	listener net.Listener
	log      *logrus.Entry
}

// NewDebugServer 创建调试服务
// metrics 为 nil 时不注册 /metrics
func NewDebugServer(addr string, session SessionView, metrics http.Handler) *DebugServer {
	d := &DebugServer{
		addr:    addr,
		session: session,
		metrics: metrics,
		log:     logrus.WithField("component", "DebugServer"),
	}
	d.server = &http.Server{
		Handler:           d.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return d
}

// Router 返回路由（测试可直接使用）
func (d *DebugServer) Router() *mux.Router {
	r := mux.NewRouter()
	if d.metrics != nil {
		r.Handle("/metrics", d.metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/status", d.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/recommendations", d.handleRecommendations).Methods(http.MethodGet)
	r.HandleFunc("/modes", d.handleModes).Methods(http.MethodGet)
	return r
}

// Start 在后台开始监听
func (d *DebugServer) Start() error {
	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return err
	}
	d.listener = ln
	go func() {
		d.log.Infof("debug server listening on %s", ln.Addr())
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.WithError(err).Error("debug server failed")
		}
	}()
	return nil
}

// Addr 返回实际监听地址（Start 之后有效）
func (d *DebugServer) Addr() string {
	if d.listener == nil {
		return d.addr
	}
	return d.listener.Addr().String()
}

// Shutdown 优雅关闭
func (d *DebugServer) Shutdown(ctx context.Context) error {
	d.log.Info("shutting down debug server...")
	return d.server.Shutdown(ctx)
}

func (d *DebugServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.session.Snapshot())
}

func (d *DebugServer) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"recommendations": d.session.Recommendations(),
	})
}

type modeEntry struct {
	Mode        string `json:"mode"`
	DisplayName string `json:"displayName"`
	UnlockLevel int    `json:"unlockLevel"`
	Unlocked    bool   `json:"unlocked"`
	BestScore   int    `json:"bestScore"`
	GamesPlayed int    `json:"gamesPlayed"`
}

func (d *DebugServer) handleModes(w http.ResponseWriter, r *http.Request) {
	level := 1
	if raw := r.URL.Query().Get("level"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "level must be a positive integer"})
			return
		}
		level = n
	}

	modes := d.session.AvailableModes(level)
	out := make([]modeEntry, 0, len(modes))
	for _, m := range modes {
		out = append(out, modeEntry{
			Mode:        string(m.Settings.Mode),
			DisplayName: m.Settings.DisplayName,
			UnlockLevel: m.Settings.UnlockLevel,
			Unlocked:    m.Unlocked,
			BestScore:   m.Record.BestScore,
			GamesPlayed: m.Record.GamesPlayed,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to encode debug response")
	}
}
