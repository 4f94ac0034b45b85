package http

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"badge-compliance-service/internal/config"
	"badge-compliance-service/internal/domain/compliance"
	"badge-compliance-service/internal/imaging"
	"badge-compliance-service/internal/ledger"
	"badge-compliance-service/internal/repository"
	"badge-compliance-service/internal/service"
)

var ErrInvalidInput = errors.New("invalid input")

type Handler struct {
	pipeline   *service.Pipeline
	fineLedger *ledger.Ledger
	repo       *repository.LedgerRepository
	config     *config.Config
	log        zerolog.Logger
}

func NewHandler(
	pipeline *service.Pipeline,
	fineLedger *ledger.Ledger,
	repo *repository.LedgerRepository,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		pipeline:   pipeline,
		fineLedger: fineLedger,
		repo:       repo,
		config:     cfg,
		log:        log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/healthz", h.health)

	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.POST("/frames", h.processFrame)
		public.GET("/totals", h.totals)
	}

	// Protected endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/export", h.exportLedger)
		protected.POST("/identities", h.createIdentity)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) processFrame(c *gin.Context) {
	if !h.pipeline.Ready() {
		c.JSON(http.StatusServiceUnavailable, errorResponse("core detection collaborators not available"))
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		c.JSON(http.StatusBadRequest, errorResponse("no image data provided"))
		return
	}

	frame, err := imaging.DecodeBase64(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to decode image data"))
		return
	}

	annotated, verdicts, err := h.pipeline.ProcessFrame(c.Request.Context(), frame)
	if err != nil {
		if errors.Is(err, service.ErrMissingCollaborator) {
			c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
			return
		}
		h.log.Error().Err(err).Msg("failed to process frame")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	encoded, err := imaging.EncodeBase64(annotated)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode processed frame")
		c.JSON(http.StatusInternalServerError, errorResponse("failed to encode processed image"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed_image": encoded,
		"detections":      verdicts,
	})
}

func (h *Handler) totals(c *gin.Context) {
	violations, outstanding := h.fineLedger.Totals(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"violations": violations,
		"fine":       outstanding,
	})
}

func (h *Handler) exportLedger(c *gin.Context) {
	snapshot := h.fineLedger.Export()

	filename := fmt.Sprintf("fines_export_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"identity_id", "display_name", "outstanding_balance", "email"})
	for _, identity := range snapshot {
		w.Write([]string{
			identity.IdentityID,
			identity.DisplayName,
			strconv.FormatFloat(identity.OutstandingBalance, 'f', 2, 64),
			identity.Email,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.log.Error().Err(err).Msg("failed to stream ledger export")
	}
}

func (h *Handler) createIdentity(c *gin.Context) {
	var req struct {
		IdentityID  string         `json:"identity_id"`
		DisplayName string         `json:"name"`
		Email       string         `json:"email"`
		Metadata    datatypes.JSON `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if strings.TrimSpace(req.IdentityID) == "" || strings.TrimSpace(req.DisplayName) == "" {
		c.JSON(http.StatusBadRequest, errorResponse("identity_id and name are required"))
		return
	}

	identity := compliance.Identity{
		IdentityID:  strings.TrimSpace(req.IdentityID),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       strings.TrimSpace(req.Email),
		Metadata:    req.Metadata,
	}

	if err := h.repo.UpsertIdentity(c.Request.Context(), identity); err != nil {
		h.log.Error().Err(err).Str("identity_id", identity.IdentityID).Msg("failed to upsert identity")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	h.fineLedger.Register(identity)

	h.log.Info().
		Str("identity_id", identity.IdentityID).
		Str("name", identity.DisplayName).
		Msg("identity registered")
	c.JSON(http.StatusCreated, gin.H{
		"status":      "ok",
		"identity_id": identity.IdentityID,
	})
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
