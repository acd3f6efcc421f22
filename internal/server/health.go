package server

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"sessions":   s.sessions.Len(),
		"goroutines": runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcessWithContext(c.Request.Context(), int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfoWithContext(c.Request.Context()); err == nil {
			body["memory_rss"] = memInfo.RSS
		}
		if pct, err := proc.CPUPercentWithContext(c.Request.Context()); err == nil {
			body["cpu_percent"] = pct
		}
	}

	if snap, ok := s.resourceSampler.latest(); ok {
		body["host"] = snap
	}

	c.JSON(http.StatusOK, body)
}
