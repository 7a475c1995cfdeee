package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/questbank/internal/service/discipline"
)

// DisciplineHandler 学科处理器
type DisciplineHandler struct {
	svc *discipline.Service
}

// NewDisciplineHandler 创建学科处理器
func NewDisciplineHandler(svc *discipline.Service) *DisciplineHandler {
	return &DisciplineHandler{svc: svc}
}

// ListDisciplines 列出学科
// @Summary      学科列表
// @Tags         学科管理
// @Produce      json
// @Param        all  query     bool      false  "包含停用的学科"
// @Success      200  {object}  Response  "学科列表"
// @Router       /disciplines [get]
func (h *DisciplineHandler) ListDisciplines(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, items)
}

// CreateDiscipline 创建学科
// @Summary      创建学科
// @Tags         学科管理
// @Accept       json
// @Produce      json
// @Param        request  body      discipline.CreateRequest  true  "学科信息"
// @Success      201      {object}  Response                  "创建的学科"
// @Failure      409      {object}  Response                  "编码重复"
// @Router       /disciplines [post]
func (h *DisciplineHandler) CreateDiscipline(c *gin.Context) {
	var req discipline.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, d)
}

// GetDiscipline 获取学科
// @Summary      获取学科
// @Tags         学科管理
// @Produce      json
// @Param        id   path      string    true  "学科ID"
// @Success      200  {object}  Response  "学科"
// @Failure      404  {object}  Response  "学科不存在"
// @Router       /disciplines/{id} [get]
func (h *DisciplineHandler) GetDiscipline(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, d)
}
