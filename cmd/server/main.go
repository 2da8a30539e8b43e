// Copyright 2025 Jason Sherman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for the clip enrichment backend. It
// runs a Gin REST API for submitting clips, polling task status,
// creating curios, and semantic search, and hosts the Pub/Sub worker
// that performs the enrichment asynchronously. The server is
// instrumented with OpenTelemetry throughout.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jasonsherman/curioclip-backend/internal/core/services"
	"github.com/jasonsherman/curioclip-backend/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("tracing initialized")

	InitState(ctx)
	slog.Info("state initialized")

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		ClipRouter(apiV1)
		CurioRouter(apiV1)
		SearchRouter(apiV1)
	}

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("server ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	// In-flight requests get five seconds; the root context cancel stops
	// the listeners.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	log.Println("server exiting")
}

// ClipRouter registers the clip submission and status endpoints.
//
//   - POST /clips: submit a URL for enrichment, returns the clip and its
//     pending task.
//   - GET /clips: list the caller's clips.
//   - GET /clips/:id/status: poll the processing task for a submission.
func ClipRouter(r *gin.RouterGroup) {
	clips := r.Group("/clips")
	{
		clips.POST("", func(c *gin.Context) {
			var body struct {
				Url    string `json:"url" binding:"required"`
				UserId string `json:"user_id" binding:"required"`
			}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			clip, task, err := state.clipService.Submit(c, body.UserId, body.Url)
			if err != nil {
				slog.Error("failed to submit clip", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not submit clip"})
				return
			}
			c.JSON(http.StatusAccepted, services.ClipStatus{Task: task, Clip: clip})
		})

		clips.GET("", func(c *gin.Context) {
			userId := c.Query("user_id")
			if userId == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			out, err := state.clipService.List(c, userId)
			if err != nil {
				slog.Error("failed to list clips", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		clips.GET("/:id/status", func(c *gin.Context) {
			status, err := state.clipService.Status(c, c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, status)
		})
	}
}

// CurioRouter registers the collection management endpoint.
func CurioRouter(r *gin.RouterGroup) {
	curios := r.Group("/curios")
	{
		curios.POST("", func(c *gin.Context) {
			var body struct {
				UserId      string `json:"user_id" binding:"required"`
				Name        string `json:"name" binding:"required"`
				Description string `json:"description"`
				IsPublic    bool   `json:"is_public"`
			}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			curio, err := state.clipService.CreateCurio(c, body.UserId, body.Name, body.Description, body.IsPublic)
			if err != nil {
				slog.Error("failed to create curio", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusCreated, curio)
		})
	}
}

// SearchRouter registers the semantic search endpoint.
//
//   - GET /search?q=<query>&limit=<n>&threshold=<t>&user_id=<id>:
//     returns the best matching clip per result, ordered by similarity.
//     When user_id is present only that owner's clips are returned.
func SearchRouter(r *gin.RouterGroup) {
	search := r.Group("/search")
	{
		search.GET("", func(c *gin.Context) {
			query := c.Query("q")
			if len(query) == 0 {
				c.Status(http.StatusBadRequest)
				return
			}
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
			if err != nil {
				limit = 0
			}
			threshold, err := strconv.ParseFloat(c.DefaultQuery("threshold", "-1"), 64)
			if err != nil {
				threshold = -1
			}

			matches, err := state.searchService.Search(c, query, limit, threshold)
			if err != nil {
				slog.Error("search failed", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			if userId := c.Query("user_id"); userId != "" {
				matches, err = state.searchService.FilterByOwner(c, matches, userId)
				if err != nil {
					slog.Error("search owner filter failed", "error", err)
					c.Status(http.StatusInternalServerError)
					return
				}
			}
			c.JSON(http.StatusOK, services.BestPerClip(matches))
		})
	}
}
