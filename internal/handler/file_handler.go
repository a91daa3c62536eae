package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mailwing/internal/filestore"
	"github.com/xxxsen/mailwing/internal/pkg/response"
)

const maxAttachmentSize = 10 << 20

type FileHandler struct {
	store filestore.Store
}

func NewFileHandler(store filestore.Store) *FileHandler {
	return &FileHandler{store: store}
}

type uploadResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Upload stores one attachment and returns the key to reference in a send
// request's attachment field.
func (h *FileHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "file is required")
		return
	}
	if file.Size > maxAttachmentSize {
		response.Error(c, http.StatusBadRequest, "file is too large")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to open file")
		return
	}
	defer func() { _ = opened.Close() }()

	key := buildAttachmentKey(getUserID(c), file.Filename)
	if err := h.store.Save(c.Request.Context(), key, opened); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to store file")
		return
	}
	response.Success(c, uploadResponse{Key: key, Name: file.Filename, Size: file.Size})
}

func buildAttachmentKey(userID int64, filename string) string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%d/%s%s", userID, hex.EncodeToString(bytes), ext)
}
