// Package api provides the REST API server for textseq
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/textseq/pkg/engine"
	"github.com/james-see/textseq/pkg/sequencer"
)

// @title textseq API
// @version 1.0
// @description API for editing and driving the text step sequencer
// @host localhost:8080
// @BasePath /api/v1

// SessionResponse describes the current session
type SessionResponse struct {
	Piano   string `json:"piano"`
	Beat    string `json:"beat"`
	Sync    bool   `json:"sync"`
	Playing bool   `json:"playing"`
	Code    string `json:"code"`
}

// TextRequest replaces a track's text
type TextRequest struct {
	Text *string `json:"text" binding:"required"`
}

// SyncRequest sets the cycling policy
type SyncRequest struct {
	Sync *bool `json:"sync" binding:"required"`
}

// CodeRequest carries a share code
type CodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type handler struct {
	engine *engine.Engine
}

// NewRouter builds the gin router serving e
func NewRouter(e *engine.Engine) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	h := &handler{engine: e}

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/session", h.getSession)
		v1.PUT("/tracks/:track", h.putTrack)
		v1.POST("/transport/toggle", h.toggleTransport)
		v1.PUT("/sync", h.putSync)
		v1.GET("/render", h.render)
		v1.POST("/step", h.step)
		v1.POST("/share", h.share)
		v1.POST("/share/load", h.loadShare)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(e *engine.Engine, port int) error {
	return NewRouter(e).Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "textseq",
	})
}

func (h *handler) session() (SessionResponse, error) {
	st := h.engine.Store().State()
	code, err := h.engine.Share()
	if err != nil {
		return SessionResponse{}, err
	}
	return SessionResponse{
		Piano:   st.Piano,
		Beat:    st.Beat,
		Sync:    st.Sync,
		Playing: h.engine.Clock().Playing(),
		Code:    code,
	}, nil
}

func (h *handler) respondSession(c *gin.Context) {
	resp, err := h.session()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getSession godoc
// @Summary Current session
// @Description Returns both track texts, the sync flag, the transport state and the share code
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/v1/session [get]
func (h *handler) getSession(c *gin.Context) {
	h.respondSession(c)
}

// putTrack godoc
// @Summary Replace a track's text
// @Tags session
// @Accept json
// @Produce json
// @Param track path string true "piano or beat"
// @Param body body TextRequest true "New text"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/tracks/{track} [put]
func (h *handler) putTrack(c *gin.Context) {
	id, err := engine.ParseTrackID(c.Param("track"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.engine.SetText(id, *req.Text)
	h.respondSession(c)
}

// toggleTransport godoc
// @Summary Toggle play/pause
// @Tags transport
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/v1/transport/toggle [post]
func (h *handler) toggleTransport(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"playing": h.engine.TogglePlay()})
}

// putSync godoc
// @Summary Set the cycling policy
// @Tags transport
// @Accept json
// @Produce json
// @Param body body SyncRequest true "Sync flag"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /api/v1/sync [put]
func (h *handler) putSync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.engine.SetSync(*req.Sync)
	c.JSON(http.StatusOK, gin.H{"sync": *req.Sync})
}

// render godoc
// @Summary Render both tracks
// @Description Returns the highlighted lines of both tracks at the current step without advancing
// @Tags render
// @Produce json
// @Success 200 {object} engine.Frame
// @Router /api/v1/render [get]
func (h *handler) render(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Render())
}

// step godoc
// @Summary Advance one step
// @Description Ticks both tracks once and returns the triggered sound keys
// @Tags transport
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/step [post]
func (h *handler) step(c *gin.Context) {
	sounds := h.engine.Step()
	if sounds == nil {
		sounds = []sequencer.SoundHandle{}
	}
	c.JSON(http.StatusOK, gin.H{
		"sounds": sounds,
		"frame":  h.engine.Render(),
	})
}

// share godoc
// @Summary Create a share code
// @Tags session
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/share [post]
func (h *handler) share(c *gin.Context) {
	code, err := h.engine.Share()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// loadShare godoc
// @Summary Load a share code
// @Description Replaces both texts and the sync flag. A malformed code leaves the session unchanged.
// @Tags session
// @Accept json
// @Produce json
// @Param body body CodeRequest true "Share code"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/share/load [post]
func (h *handler) loadShare(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.engine.Load(req.Code); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondSession(c)
}
