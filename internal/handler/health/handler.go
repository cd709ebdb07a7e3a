package health

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/zhouzirui/voicemate/backend/internal/model/chat"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
	"github.com/zhouzirui/voicemate/backend/pkg/utils"
)

// StatsSource 提供会话统计
type StatsSource interface {
	Stats(ctx context.Context) chat.Stats
}

// HostProbe 读取主机资源占用百分比
type HostProbe func(ctx context.Context) (cpuPercent, memPercent float64, err error)

// Handler 健康检查处理器
type Handler struct {
	stats    StatsSource
	statuses func() []provider.Status
	probe    HostProbe
	started  time.Time
	now      func() time.Time
}

// New 创建健康检查处理器；probe 为空时使用 gopsutil 采样。
func New(stats StatsSource, statuses func() []provider.Status, probe HostProbe) *Handler {
	if probe == nil {
		probe = sampleHost
	}
	return &Handler{
		stats:    stats,
		statuses: statuses,
		probe:    probe,
		started:  time.Now(),
		now:      time.Now,
	}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

type hostUsage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

type response struct {
	Status         string            `json:"status"`
	Services       []provider.Status `json:"services"`
	ActiveSessions int               `json:"active_sessions"`
	TotalMessages  int               `json:"total_messages"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Host           *hostUsage        `json:"host,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := response{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
	}
	resp.UptimeSeconds = int64(resp.Timestamp.Sub(h.started.UTC()).Seconds())

	if h.statuses != nil {
		resp.Services = h.statuses()
	}
	for _, s := range resp.Services {
		if !s.Initialized {
			resp.Status = "degraded"
		}
	}

	if h.stats != nil {
		stats := h.stats.Stats(r.Context())
		resp.ActiveSessions = stats.Sessions
		resp.TotalMessages = stats.Messages
	}

	cpuPercent, memPercent, err := h.probe(r.Context())
	if err != nil {
		log.Printf("[health] host sampling failed: %v", err)
	} else {
		resp.Host = &hostUsage{CPUPercent: cpuPercent, MemoryPercent: memPercent}
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func sampleHost(ctx context.Context) (float64, float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, 0, err
	}
	var cpuPercent float64
	if len(percentages) > 0 {
		cpuPercent = percentages[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return cpuPercent, vm.UsedPercent, nil
}
