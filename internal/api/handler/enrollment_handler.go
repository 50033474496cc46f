package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"ay-digital/backend/internal/dto"
	"ay-digital/backend/internal/service"
	"ay-digital/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// EnrollmentHandler 课程报名 HTTP 处理器
type EnrollmentHandler struct {
	enrollSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollSvc: enrollSvc}
}

// Enroll 提交报名
// POST /api/enroll
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if !bindOptionalJSON(c, &req, service.ErrEnrollMissingFields.Error()) {
		return
	}

	e, err := h.enrollSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, gin.H{"data": e})
}

// ListEnrollments 报名列表，最新在前
// GET /api/enrollments
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	list, err := h.enrollSvc.List(c.Request.Context())
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, gin.H{"enrollments": list})
}

// ExportEnrollments 导出报名表
// GET /api/enrollments/export
func (h *EnrollmentHandler) ExportEnrollments(c *gin.Context) {
	buf, filename, err := h.enrollSvc.Export(c.Request.Context())
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEnrollMissingFields):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c)
	}
}
