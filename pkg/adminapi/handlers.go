// Copyright 2024-2026 Aiku AI

package adminapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultStatsLimit = 5
	maxStatsLimit     = 100
)

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	resp := gin.H{
		"status":  "ok",
		"version": s.opts.Version,
	}
	if s.opts.Database != nil {
		if err := s.opts.Database.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Health check: database unreachable")
			resp["status"] = "unavailable"
			resp["error"] = "database unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	if s.opts.Provenance != nil {
		n, err := s.opts.Provenance.Count(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("Health check: failed to count reposts")
		} else {
			resp["tracked_reposts"] = n
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStats(c *gin.Context) {
	if s.opts.Reporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "statistics are disabled"})
		return
	}
	limit := defaultStatsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxStatsLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be an integer between 0 and " + strconv.Itoa(maxStatsLimit),
			})
			return
		}
		limit = n
	}
	summary, err := s.opts.Reporter.Summary(c.Request.Context(), limit)
	if err != nil {
		s.log.Err(err).Msg("Failed to build stats summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// authMiddleware accepts the key in X-API-Key or as a bearer token.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide the key in X-API-Key or Authorization: Bearer <key>",
			})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		c.Next()
	}
}
