package webhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/veriledger/veriledger/pkg/journal"
	"github.com/veriledger/veriledger/pkg/ledgerhash"
	"github.com/veriledger/veriledger/pkg/verify"
)

// VerifyHandler exposes HTTP endpoints for block and proof verification.
type VerifyHandler struct {
	verifier *verify.Verifier
	logger   *zap.Logger
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(verifier *verify.Verifier, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, logger: logger}
}

// Register mounts the verification routes on the given router group.
func (h *VerifyHandler) Register(rg *gin.RouterGroup) {
	v := rg.Group("/verify")
	{
		v.POST("/block", h.Block)
		v.POST("/proof", h.Proof)
	}
}

// Block handles POST /verify/block — recomputes every hash in the posted
// block and reports whether it is internally consistent.
func (h *VerifyHandler) Block(c *gin.Context) {
	var block journal.Block
	if err := c.ShouldBindJSON(&block); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid block JSON: " + err.Error()})
		return
	}

	if err := h.verifier.BlockHash(block); err != nil {
		h.logger.Warn("block verification failed",
			zap.String("strand_id", block.BlockAddress.StrandID),
			zap.Int64("sequence_no", block.BlockAddress.SequenceNo),
			zap.Error(err),
		)
		RecordVerification("block", false)
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	RecordVerification("block", true)
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

type proofRequest struct {
	DocumentHash ledgerhash.Hash `json:"documentHash" binding:"required"`
	Digest       ledgerhash.Hash `json:"digest" binding:"required"`
	Proof        journal.Proof   `json:"proof"`
}

// Proof handles POST /verify/proof — folds the proof path onto the
// document hash and reports whether it lands on the digest.
func (h *VerifyHandler) Proof(c *gin.Context) {
	var req proofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof request: " + err.Error()})
		return
	}

	valid, err := h.verifier.Digest(req.DocumentHash, req.Digest, req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed proof: " + err.Error()})
		return
	}

	RecordVerification("proof", valid)
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
