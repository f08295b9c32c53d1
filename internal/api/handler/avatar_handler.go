package handler

import (
	"bufio"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

// AvatarBlobHandler streams avatar blobs from storage backends that have no
// URL of their own.
type AvatarBlobHandler struct {
	storage ports.AvatarStorage
}

func NewAvatarBlobHandler(storage ports.AvatarStorage) *AvatarBlobHandler {
	return &AvatarBlobHandler{storage: storage}
}

// Serve handles GET /avatars/:key.
//
// @Summary      Download an avatar blob
// @Tags         avatars
// @Produce      png,jpeg
// @Param        key  path  string  true  "Blob key"
// @Success      200
// @Failure      404  {object}  errorResponse
// @Router       /avatars/{key} [get]
func (h *AvatarBlobHandler) Serve(c echo.Context) error {
	rc, err := h.storage.Open(c.Request().Context(), domain.AvatarKeyPrefix+c.Param("key"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
		}
		return err
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen)
	head, _ := br.Peek(sniffLen)

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return c.Stream(http.StatusOK, http.DetectContentType(head), br)
}
