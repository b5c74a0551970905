package webhandler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/veriledger/veriledger/internal/digeststore"
	"github.com/veriledger/veriledger/pkg/journal"
)

// DigestHandler exposes HTTP endpoints over a digest store. Reads are
// public; writes require the shared admin secret header.
type DigestHandler struct {
	store       digeststore.Store
	adminSecret string
	logger      *zap.Logger
}

// NewDigestHandler creates a new DigestHandler.
func NewDigestHandler(store digeststore.Store, logger *zap.Logger) *DigestHandler {
	return &DigestHandler{store: store, logger: logger}
}

// SetAdminSecret configures the shared secret that guards digest writes.
// When empty, writes are rejected.
func (h *DigestHandler) SetAdminSecret(secret string) {
	h.adminSecret = secret
}

// Register mounts the digest routes on the given router group.
func (h *DigestHandler) Register(rg *gin.RouterGroup) {
	d := rg.Group("/digests")
	{
		d.GET("", h.List)
		d.GET("/latest", h.Latest)
		d.POST("", h.requireAdmin, h.Save)
	}
}

func (h *DigestHandler) requireAdmin(c *gin.Context) {
	if h.adminSecret == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "digest writes are disabled"})
		return
	}
	got := c.GetHeader("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.adminSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret"})
		return
	}
	c.Next()
}

// List handles GET /digests — returns every stored digest, oldest first.
func (h *DigestHandler) List(c *gin.Context) {
	all, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("digest list", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list digests"})
		return
	}
	if all == nil {
		all = []journal.Digest{}
	}
	c.JSON(http.StatusOK, gin.H{"digests": all})
}

// Latest handles GET /digests/latest — returns the digest with the highest
// tip sequence number.
func (h *DigestHandler) Latest(c *gin.Context) {
	latest, err := h.store.Latest(c.Request.Context())
	if errors.Is(err, digeststore.ErrNoDigests) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no digests stored"})
		return
	}
	if err != nil {
		h.logger.Error("digest latest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query digests"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// Save handles POST /digests — stores a digest, overwriting any existing
// digest at the same tip address.
func (h *DigestHandler) Save(c *gin.Context) {
	var d journal.Digest
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid digest JSON: " + err.Error()})
		return
	}
	if d.Digest.IsEmpty() || !d.Digest.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "digest hash must be 32 bytes"})
		return
	}

	if err := h.store.Save(c.Request.Context(), d); err != nil {
		h.logger.Error("digest save", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save digest"})
		return
	}

	RecordDigestSave()
	h.logger.Info("digest saved",
		zap.String("strand_id", d.TipAddress.StrandID),
		zap.Int64("sequence_no", d.TipAddress.SequenceNo),
	)
	c.JSON(http.StatusCreated, d)
}
