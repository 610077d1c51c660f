package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleRegister(c *gin.Context) {
	ctx := c.Request.Context()

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid registration request")
		return
	}

	s.logger.Info(ctx, "Registration request", "login", req.Login)

	if _, err := s.users.Register(ctx, req.Login, req.Password); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			badRequest(c, "login is already taken")
			return
		}
		s.writeError(c, err)
		return
	}

	s.logger.Info(ctx, "Registered", "login", req.Login)
	c.JSON(http.StatusOK, gin.H{"login": req.Login})
}

func (s *Server) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()

	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid login request")
		return
	}

	token, err := s.users.Login(ctx, req.Login, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{AuthToken: token, Login: req.Login})
}

func (s *Server) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()

	token := extractToken(c)
	if err := s.users.Logout(ctx, token); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) handleUpload(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	if c.Request.ContentLength > s.maxUploadSize {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
			errorResponse{Message: "request body too large", Code: http.StatusRequestEntityTooLarge})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(c, err)
			return
		}
		// No "file" part or an unparseable body is caller input, not a
		// server-side failure.
		badRequest(c, "missing or malformed file part")
		return
	}

	name := c.Query("filename")
	if name == "" {
		name = fh.Filename
	}

	f, err := fh.Open()
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.writeError(c, err)
		return
	}

	file, err := s.storage.Save(ctx, user, name, fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(ctx, "File uploaded", "login", user.Login, "filename", file.Filename, "size", file.Size)
	c.JSON(http.StatusOK, fileResponse{
		Filename:    file.Filename,
		Size:        file.Size,
		ContentType: file.ContentType,
		CreatedAt:   file.CreatedAt,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	name := c.Query("filename")

	data, err := s.storage.Read(ctx, user, name)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleDelete(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	name := c.Query("filename")

	if err := s.storage.Delete(ctx, user, name); err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(ctx, "File deleted", "login", user.Login, "filename", name)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (s *Server) handleRename(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	oldName := c.Query("filename")

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid rename request")
		return
	}

	if err := s.storage.Rename(ctx, user, oldName, req.Filename); err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(ctx, "File renamed", "login", user.Login, "from", oldName, "to", req.Filename)
	c.JSON(http.StatusOK, gin.H{"message": "renamed"})
}

func (s *Server) handleList(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	files, err := s.storage.List(ctx, user, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	result := make([]fileResponse, 0, len(files))
	for _, f := range files {
		result = append(result, fileResponse{
			Filename:    f.Filename,
			Size:        f.Size,
			ContentType: f.ContentType,
			CreatedAt:   f.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, result)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		errorResponse{Message: msg, Code: http.StatusBadRequest})
}

// writeError maps service errors onto HTTP statuses. Internal details never
// reach the response body, only the log.
func (s *Server) writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var maxBytesErr *http.MaxBytesError

	var status int
	var msg string

	switch {
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
		msg = "request body too large"
	case errors.Is(err, common.ErrorInvalidFilename),
		errors.Is(err, common.ErrorPathTraversal),
		errors.Is(err, common.ErrorAlreadyExists):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		status = http.StatusUnauthorized
		msg = "unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
		msg = "file not found"
	default:
		s.logger.Error(ctx, err.Error())
		status = http.StatusInternalServerError
		msg = "internal error"
	}

	c.AbortWithStatusJSON(status, errorResponse{Message: msg, Code: status})
}
