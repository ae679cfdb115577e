package handlers

import (
	"io"
	"net/http"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/middleware"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/services/verification"
	"aigyoo-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// VerificationStatus returns the caller's badge and latest submission.
func (h *Handler) VerificationStatus(c *gin.Context) {
	sess, authed := currentSession(c)
	if !authed {
		return
	}
	view, err := h.app.Verification.Status(c.Request.Context(), sess.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OK", view)
}

// UploadVerification takes the multipart "file" field and answers
// {success, message}.
func (h *Handler) UploadVerification(c *gin.Context) {
	if _, err := h.submitUpload(c, false); err != nil {
		uploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": verification.MsgSubmitted})
}

// UploadDoctorID is the generic upload that also accepts PDFs and answers
// {url}.
func (h *Handler) UploadDoctorID(c *gin.Context) {
	row, err := h.submitUpload(c, true)
	if err != nil {
		uploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": row.DoctorIDImageURL})
}

func (h *Handler) submitUpload(c *gin.Context, allowPDF bool) (*models.DoctorVerification, error) {
	sess, authed := middleware.CurrentSession(c)
	if !authed {
		return nil, svcErr.AuthRequired("Unauthorized")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, svcErr.Validation(verification.MsgMissingFile)
	}
	if fh.Size > verification.MaxUploadSize {
		return nil, svcErr.Validation(verification.MsgTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, svcErr.Backend("failed to read upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, verification.MaxUploadSize+1))
	if err != nil {
		return nil, svcErr.Backend("failed to read upload", err)
	}

	return h.app.Verification.Submit(c.Request.Context(), sess, verification.Upload{
		Filename: fh.Filename,
		Size:     int64(len(data)),
		Data:     data,
		AllowPDF: allowPDF,
	})
}

// uploadError answers {error} with 400, 401 or 500.
func uploadError(c *gin.Context, err error) {
	switch svcErr.KindOf(err) {
	case svcErr.KindValidation, svcErr.KindForbidden:
		utils.ErrorJSON(c, http.StatusBadRequest, svcErr.Message(err))
	case svcErr.KindAuthRequired:
		utils.ErrorJSON(c, http.StatusUnauthorized, svcErr.Message(err))
	default:
		logger.Error("verification upload failed", "path", c.FullPath(), "error", err)
		utils.ErrorJSON(c, http.StatusInternalServerError, svcErr.Message(err))
	}
}
