package browser

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/azamatb/objbrowse/internal/backend"
	"github.com/azamatb/objbrowse/internal/batch"
	"github.com/azamatb/objbrowse/internal/catalog"
	"github.com/azamatb/objbrowse/internal/filter"
	"github.com/azamatb/objbrowse/internal/upload"
)

// RegisterRoutes mounts the session API onto the router group.
func RegisterRoutes(group *gin.RouterGroup, manager *Manager) {
	handler := &httpHandler{manager: manager}
	group.POST("/sessions", handler.createSession)
	group.DELETE("/sessions/:sessionID", handler.closeSession)
	group.GET("/sessions/:sessionID/state", handler.state)
	group.POST("/sessions/:sessionID/refresh", handler.refresh)
	group.POST("/sessions/:sessionID/buckets", handler.createBucket)
	group.DELETE("/sessions/:sessionID/buckets/:bucket", handler.deleteBucket)
	group.POST("/sessions/:sessionID/navigate", handler.navigate)
	group.POST("/sessions/:sessionID/filter", handler.setFilter)
	group.DELETE("/sessions/:sessionID/filter", handler.resetFilter)
	group.GET("/sessions/:sessionID/search", handler.search)
	group.POST("/sessions/:sessionID/selection/toggle", handler.toggleSelection)
	group.POST("/sessions/:sessionID/selection/all", handler.selectAll)
	group.POST("/sessions/:sessionID/selection/clear", handler.clearSelection)
	group.POST("/sessions/:sessionID/batch", handler.executeBatch)
	group.POST("/sessions/:sessionID/uploads", handler.uploadFiles)
	group.POST("/sessions/:sessionID/folders", handler.createFolder)
}

type httpHandler struct {
	manager *Manager
}

func (h *httpHandler) session(c *gin.Context) (*Session, bool) {
	id, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}
	session, err := h.manager.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return session, true
}

type createSessionRequest struct {
	Credentials *backend.Credentials `json:"credentials,omitempty"`
}

func (h *httpHandler) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	session, err := h.manager.Create(req.Credentials)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to open session"})
		return
	}
	if err := session.LoadBuckets(c.Request.Context()); err != nil {
		// session stays usable; the error is inline state, retryable via refresh
		c.JSON(http.StatusCreated, gin.H{"id": session.ID, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": session.ID})
}

func (h *httpHandler) closeSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if err := h.manager.Close(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) state(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.State())
}

func (h *httpHandler) refresh(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session.State())
}

type navigateRequest struct {
	// Exactly one of the fields drives the move. Bucket may be empty
	// together with Up to return to the bucket list.
	Bucket     *string `json:"bucket,omitempty"`
	EnterKey   string  `json:"enter_key,omitempty"`
	Up         bool    `json:"up,omitempty"`
	Breadcrumb string  `json:"breadcrumb,omitempty"`
}

func (h *httpHandler) navigate(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var err error
	switch {
	case req.Bucket != nil:
		err = session.SelectBucket(ctx, *req.Bucket)
	case req.EnterKey != "":
		err = session.EnterFolder(ctx, req.EnterKey)
	case req.Up:
		err = session.GoUp(ctx)
	case req.Breadcrumb != "":
		err = session.NavigateToSegment(ctx, req.Breadcrumb)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "no navigation target"})
		return
	}

	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ErrItemNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session.State())
}

func (h *httpHandler) setFilter(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var criteria filter.Criteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := session.SetCriteria(criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": session.View()})
}

func (h *httpHandler) resetFilter(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.ResetCriteria()
	c.JSON(http.StatusOK, gin.H{"view": session.View()})
}

func (h *httpHandler) search(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	results, err := session.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		if errors.Is(err, catalog.ErrNoBucket) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no bucket selected"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type toggleRequest struct {
	Key  string           `json:"key" binding:"required"`
	Type catalog.ItemType `json:"type" binding:"required"`
}

func (h *httpHandler) toggleSelection(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := session.ToggleSelect(catalog.Ident{Key: req.Key, Type: req.Type}); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selection": session.Selection()})
}

func (h *httpHandler) selectAll(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.SelectAll()
	c.JSON(http.StatusOK, gin.H{"selection": session.Selection()})
}

func (h *httpHandler) clearSelection(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.ClearSelection()
	c.Status(http.StatusNoContent)
}

type batchRequest struct {
	Action batch.Action      `json:"action" binding:"required"`
	Target string            `json:"target,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

func (h *httpHandler) executeBatch(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := session.ExecuteBatch(c.Request.Context(), req.Action, batch.Options{
		Target: req.Target,
		Tags:   req.Tags,
	})
	if err != nil {
		// precondition failures: nothing started
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) uploadFiles(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files field is required"})
		return
	}

	files := make([]upload.LocalFile, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file " + header.Filename})
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file " + header.Filename})
			return
		}
		files = append(files, upload.LocalFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	summary, err := session.Upload(c.Request.Context(), files)
	if err != nil {
		if errors.Is(err, catalog.ErrNoBucket) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no bucket selected"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type createBucketRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *httpHandler) createBucket(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req createBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := session.CreateBucket(c.Request.Context(), req.Name); err != nil {
		switch {
		case errors.Is(err, ErrInvalidBucketName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket name"})
		case errors.Is(err, backend.ErrBucketExists):
			c.JSON(http.StatusConflict, gin.H{"error": "bucket already exists"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"buckets": session.State().Buckets})
}

func (h *httpHandler) deleteBucket(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.DeleteBucket(c.Request.Context(), c.Param("bucket")); err != nil {
		if errors.Is(err, backend.ErrBucketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "bucket not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type createFolderRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *httpHandler) createFolder(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := session.CreateFolder(c.Request.Context(), req.Name); err != nil {
		if errors.Is(err, catalog.ErrNoBucket) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no bucket selected"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": session.State().Items})
}
