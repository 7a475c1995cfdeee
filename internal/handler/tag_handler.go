package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/questbank/internal/export"
	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/service/discipline"
	"github.com/ashwinyue/questbank/internal/service/taxonomy"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TagHandler 标签处理器
type TagHandler struct {
	svc         *taxonomy.Service
	disciplines *discipline.Service
	separator   string
}

// NewTagHandler 创建标签处理器
func NewTagHandler(svc *taxonomy.Service, disciplines *discipline.Service, separator string) *TagHandler {
	return &TagHandler{svc: svc, disciplines: disciplines, separator: separator}
}

// CreateContentTagRequest 创建内容标签请求
type CreateContentTagRequest struct {
	Name         string  `json:"name" binding:"required"`
	ParentID     *string `json:"parent_id"`
	DisciplineID *string `json:"discipline_id"`
}

// CreateRootTagRequest 创建考试来源/年级标签请求
// 考试来源和年级只能是叶子，给出 parent_id 时返回 422
type CreateRootTagRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *string `json:"parent_id"`
}

// RenameTagRequest 重命名请求
type RenameTagRequest struct {
	Name string `json:"name" binding:"required"`
}

// SetQuestionTagsRequest 设置题目标签请求
type SetQuestionTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

// CreateContentTag 创建内容标签
// @Summary      创建内容标签
// @Description  parent_id 为空时创建学科下的根标签，编码由系统分配
// @Tags         标签管理
// @Accept       json
// @Produce      json
// @Param        request  body      CreateContentTagRequest  true  "标签信息"
// @Success      201      {object}  Response                 "创建的标签"
// @Failure      400      {object}  Response                 "请求参数错误"
// @Failure      409      {object}  Response                 "名称重复"
// @Failure      422      {object}  Response                 "父标签不能有子标签"
// @Router       /tags/content [post]
func (h *TagHandler) CreateContentTag(c *gin.Context) {
	var req CreateContentTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tag, err := h.svc.CreateContentTag(c.Request.Context(), req.Name, req.ParentID, req.DisciplineID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, tag)
}

// CreateExamSourceTag 创建考试来源标签
// @Summary      创建考试来源标签
// @Tags         标签管理
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRootTagRequest  true  "标签名称"
// @Success      201      {object}  Response              "创建的标签（V 编码）"
// @Failure      422      {object}  Response              "父标签不能有子标签"
// @Router       /tags/exam-sources [post]
func (h *TagHandler) CreateExamSourceTag(c *gin.Context) {
	h.createRoot(c, h.svc.CreateExamSourceTag)
}

// CreateGradeLevelTag 创建年级标签
// @Summary      创建年级标签
// @Tags         标签管理
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRootTagRequest  true  "标签名称"
// @Success      201      {object}  Response              "创建的标签（N 编码）"
// @Failure      422      {object}  Response              "父标签不能有子标签"
// @Router       /tags/grade-levels [post]
func (h *TagHandler) CreateGradeLevelTag(c *gin.Context) {
	h.createRoot(c, h.svc.CreateGradeLevelTag)
}

func (h *TagHandler) createRoot(c *gin.Context, create func(ctx context.Context, name string, parentID *string) (*model.Tag, error)) {
	var req CreateRootTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tag, err := create(c.Request.Context(), req.Name, req.ParentID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, tag)
}

// ListTags 启用标签平铺列表
// @Summary      标签列表
// @Description  启用标签及其完整路径，可按层级过滤
// @Tags         标签管理
// @Produce      json
// @Param        depth  query     int       false  "层级"
// @Success      200    {object}  Response  "标签列表"
// @Router       /tags [get]
func (h *TagHandler) ListTags(c *gin.Context) {
	depth := 0
	if raw := c.Query("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 {
			badRequest(c, fmt.Errorf("depth must be a positive integer"))
			return
		}
		depth = d
	}

	tags, err := h.svc.ListActiveWithPaths(c.Request.Context(), depth)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"tags": tags, "total": len(tags)})
}

// GetTree 完整标签树
// @Summary      标签树
// @Description  所有命名空间的启用标签；指定 root 时只返回该根的子树
// @Tags         标签管理
// @Produce      json
// @Param        root  query     string    false  "根标签名称"
// @Success      200   {object}  Response  "标签树"
// @Router       /tags/tree [get]
func (h *TagHandler) GetTree(c *gin.Context) {
	var (
		tree []*taxonomy.TreeNode
		err  error
	)
	if root := c.Query("root"); root != "" {
		tree, err = h.svc.GetTreeByRootName(c.Request.Context(), root)
	} else {
		tree, err = h.svc.GetFullTree(c.Request.Context())
	}
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tree)
}

// GetContentTree 内容标签树
// @Summary      内容标签树
// @Tags         标签管理
// @Produce      json
// @Success      200  {object}  Response  "标签树"
// @Router       /tags/tree/content [get]
func (h *TagHandler) GetContentTree(c *gin.Context) {
	tree, err := h.svc.GetContentTree(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tree)
}

// ListInactive 停用标签
// @Summary      停用标签
// @Tags         标签管理
// @Produce      json
// @Success      200  {object}  Response  "停用标签列表"
// @Router       /tags/inactive [get]
func (h *TagHandler) ListInactive(c *gin.Context) {
	tags, err := h.svc.GetInactiveFlat(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"tags": tags, "total": len(tags)})
}

// ListExamSources 考试来源
// @Summary      考试来源列表
// @Tags         标签管理
// @Produce      json
// @Success      200  {object}  Response  "考试来源"
// @Router       /tags/exam-sources [get]
func (h *TagHandler) ListExamSources(c *gin.Context) {
	tags, err := h.svc.ListExamSources(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tags)
}

// ListGradeLevels 年级
// @Summary      年级列表
// @Tags         标签管理
// @Produce      json
// @Success      200  {object}  Response  "年级"
// @Router       /tags/grade-levels [get]
func (h *TagHandler) ListGradeLevels(c *gin.Context) {
	tags, err := h.svc.ListGradeLevels(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tags)
}

// Export 导出标签体系
// @Summary      导出标签体系
// @Description  导出启用标签为 xlsx
// @Tags         标签管理
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /tags/export [get]
func (h *TagHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()

	tree, err := h.svc.GetFullTree(ctx)
	if err != nil {
		errorResponse(c, err)
		return
	}
	items, err := h.disciplines.List(ctx, false)
	if err != nil {
		errorResponse(c, err)
		return
	}

	data, err := export.GenerateTaxonomyExcel(export.Rows(tree, export.DisciplineCodes(items), h.separator))
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="taxonomy.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetTagByCode 按编码查询
// @Summary      按编码查询标签
// @Tags         标签管理
// @Produce      json
// @Param        code  path      string    true  "标签编码"
// @Success      200   {object}  Response  "标签"
// @Failure      404   {object}  Response  "标签不存在"
// @Router       /tags/code/{code} [get]
func (h *TagHandler) GetTagByCode(c *gin.Context) {
	tag, err := h.svc.GetTagByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tag)
}

// GetTag 标签详情
// @Summary      获取标签
// @Description  包含完整路径和关联题目数
// @Tags         标签管理
// @Produce      json
// @Param        id   path      string    true  "标签ID"
// @Success      200  {object}  Response  "标签详情"
// @Failure      404  {object}  Response  "标签不存在"
// @Router       /tags/{id} [get]
func (h *TagHandler) GetTag(c *gin.Context) {
	detail, err := h.svc.GetTag(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, detail)
}

// ListChildren 直接子标签
// @Summary      子标签
// @Tags         标签管理
// @Produce      json
// @Param        id   path      string    true  "标签ID"
// @Success      200  {object}  Response  "启用的子标签"
// @Router       /tags/{id}/children [get]
func (h *TagHandler) ListChildren(c *gin.Context) {
	tags, err := h.svc.ListChildren(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tags)
}

// GetPath 标签路径
// @Summary      标签路径
// @Tags         标签管理
// @Produce      json
// @Param        id   path      string    true  "标签ID"
// @Success      200  {object}  Response  "路径"
// @Router       /tags/{id}/path [get]
func (h *TagHandler) GetPath(c *gin.Context) {
	chain, err := h.svc.ResolvePath(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{
		"path": taxonomy.JoinNames(chain, h.separator),
		"tags": chain,
	})
}

// CanHaveChildren 是否允许创建子标签
// @Summary      是否允许子标签
// @Tags         标签管理
// @Produce      json
// @Param        id   path      string    true  "标签ID"
// @Success      200  {object}  Response  "结果"
// @Router       /tags/{id}/can-have-children [get]
func (h *TagHandler) CanHaveChildren(c *gin.Context) {
	ok, err := h.svc.CanCreateChildUnder(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"can_have_children": ok})
}

// RenameTag 重命名标签
// @Summary      重命名标签
// @Tags         标签管理
// @Accept       json
// @Produce      json
// @Param        id       path      string            true  "标签ID"
// @Param        request  body      RenameTagRequest  true  "新名称"
// @Success      200      {object}  Response          "更新后的标签"
// @Router       /tags/{id} [put]
func (h *TagHandler) RenameTag(c *gin.Context) {
	var req RenameTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tag, err := h.svc.RenameTag(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tag)
}

// InactivateTag 停用标签
// @Summary      停用标签
// @Description  存在启用的子标签时拒绝
// @Tags         标签管理
// @Produce      json
// @Param        id   path      string    true  "标签ID"
// @Success      200  {object}  Response  "结果"
// @Failure      422  {object}  Response  "存在启用的子标签"
// @Router       /tags/{id}/inactivate [post]
func (h *TagHandler) InactivateTag(c *gin.Context) {
	h.toggle(c, h.svc.InactivateTag)
}

// DeleteTag 删除标签（软删除）
// @Summary      删除标签
// @Description  存在启用的子标签或任何题目关联时拒绝
// @Tags         标签管理
// @Produce      json
// @Param        id   path      string    true  "标签ID"
// @Success      200  {object}  Response  "结果"
// @Failure      422  {object}  Response  "存在子标签或题目关联"
// @Router       /tags/{id} [delete]
func (h *TagHandler) DeleteTag(c *gin.Context) {
	h.toggle(c, h.svc.DeleteTag)
}

// ReactivateTag 重新启用标签
// @Summary      重新启用标签
// @Tags         标签管理
// @Produce      json
// @Param        id   path      string    true  "标签ID"
// @Success      200  {object}  Response  "结果"
// @Failure      422  {object}  Response  "父标签未启用"
// @Router       /tags/{id}/reactivate [post]
func (h *TagHandler) ReactivateTag(c *gin.Context) {
	h.toggle(c, h.svc.ReactivateTag)
}

func (h *TagHandler) toggle(c *gin.Context, fn func(ctx context.Context, id string) (bool, error)) {
	ok, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"success": ok})
}

// GetQuestionTags 题目标签
// @Summary      题目标签
// @Tags         题目标签
// @Produce      json
// @Param        id   path      string    true  "题目ID"
// @Success      200  {object}  Response  "标签列表"
// @Router       /questions/{id}/tags [get]
func (h *TagHandler) GetQuestionTags(c *gin.Context) {
	tags, err := h.svc.GetQuestionTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, tags)
}

// SetQuestionTags 替换题目标签
// @Summary      设置题目标签
// @Tags         题目标签
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "题目ID"
// @Param        request  body      SetQuestionTagsRequest  true  "标签ID列表"
// @Success      200      {object}  Response                "结果"
// @Router       /questions/{id}/tags [put]
func (h *TagHandler) SetQuestionTags(c *gin.Context) {
	var req SetQuestionTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	questionID := c.Param("id")
	if err := h.svc.SetQuestionTags(c.Request.Context(), questionID, req.TagIDs); err != nil {
		errorResponse(c, err)
		return
	}

	h.GetQuestionTags(c)
}
