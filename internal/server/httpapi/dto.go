package httpapi

import (
	"time"

	"github.com/dmitrijs2005/cloudstore/internal/server/blob"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Login is restricted to alphanumerics because it doubles as the owner
// namespace in the blob store.
type registerRequest struct {
	Login    string `json:"login" binding:"required,min=3,max=255,alphanum"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

type authRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type renameRequest struct {
	Filename string `json:"filename" binding:"required,storedname"`
}

type authResponse struct {
	AuthToken string `json:"auth-token"`
	Login     string `json:"login"`
}

type fileResponse struct {
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// registerValidators adds the "storedname" rule used by rename requests so
// bad target names are rejected at binding time with the same policy the
// storage layer applies.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("storedname", func(fl validator.FieldLevel) bool {
			return blob.ValidateFilename(fl.Field().String()) == nil
		})
	}
}
