package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/catalog"
	"github.com/xiebiao/library/internal/interface/http/dto"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// BookHandler 图书目录HTTP处理器
type BookHandler struct {
	catalog *catalog.Service
}

// NewBookHandler 创建图书处理器
func NewBookHandler(catalog *catalog.Service) *BookHandler {
	return &BookHandler{catalog: catalog}
}

// Create 新书入账
// @Summary      新书入账
// @Description  创建图书，可借数量等于总量；可选上传封面(jpg/jpeg/png/webp，不超过5MB)
// @Tags         图书
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title            formData string true  "书名"
// @Param        author           formData string true  "作者"
// @Param        isbn             formData string true  "ISBN-10/ISBN-13"
// @Param        publication_year formData int    false "出版年份"
// @Param        description      formData string false "描述"
// @Param        total_quantity   formData int    true  "总量"
// @Param        cover            formData file   false "封面"
// @Success      201 {object} response.Response{data=dto.BookResponse}
// @Failure      400 {object} response.Response "参数错误"
// @Failure      401 {object} response.Response "未登录"
// @Failure      409 {object} response.Response "ISBN已存在"
// @Router       /api/v1/books [post]
func (h *BookHandler) Create(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	cover, closeCover, err := coverFromForm(c)
	if err != nil {
		bindError(c, err)
		return
	}
	defer closeCover()

	b, err := h.catalog.Create(c.Request.Context(), catalog.CreateRequest{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		TotalQuantity:   req.TotalQuantity,
		Cover:           cover,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewBookResponse(b))
}

// Get 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Param        id path string true "图书ID"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	b, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBookResponse(b))
}

// List 图书列表
// @Summary      图书列表
// @Description  按书名、作者、ISBN模糊搜索，默认按更新时间倒序
// @Tags         图书
// @Produce      json
// @Param        page    query int    false "页码" default(1)
// @Param        limit   query int    false "每页数量" default(10)
// @Param        search  query string false "关键词"
// @Param        sort_by query string false "排序" Enums(updated_at_desc, created_at_desc, title_asc)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.BookListItem}}
// @Router       /api/v1/books [get]
func (h *BookHandler) List(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	books, meta, err := h.catalog.List(c.Request.Context(), catalog.ListRequest{
		Page:   req.Page,
		Limit:  req.Limit,
		Search: req.Search,
		SortBy: req.SortBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewBookList(books), meta)
}

// Update 编辑图书
// @Summary      编辑图书
// @Description  部分更新；修改总量时可借数量 = 新总量 - 已借出数量
// @Tags         图书
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id               path     string true  "图书ID"
// @Param        title            formData string false "书名"
// @Param        author           formData string false "作者"
// @Param        isbn             formData string false "ISBN"
// @Param        publication_year formData int    false "出版年份"
// @Param        description      formData string false "描述"
// @Param        total_quantity   formData int    false "总量"
// @Param        cover            formData file   false "封面"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      400 {object} response.Response "参数错误/总量小于已借出数量"
// @Failure      404 {object} response.Response "图书不存在"
// @Failure      409 {object} response.Response "ISBN已存在"
// @Router       /api/v1/books/{id} [put]
func (h *BookHandler) Update(c *gin.Context) {
	var req dto.UpdateBookRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	cover, closeCover, err := coverFromForm(c)
	if err != nil {
		bindError(c, err)
		return
	}
	defer closeCover()

	b, err := h.catalog.Update(c.Request.Context(), c.Param("id"), catalog.UpdateRequest{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		TotalQuantity:   req.TotalQuantity,
		Cover:           cover,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBookResponse(b))
}

// Delete 删除图书
// @Summary      删除图书
// @Description  软删除，借阅历史保留；有未归还借阅时拒绝
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "图书ID"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response "图书不存在"
// @Failure      409 {object} response.Response "仍有未归还借阅"
// @Router       /api/v1/books/{id} [delete]
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

// StockLogs 库存变更日志
// @Summary      库存变更日志
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string true  "图书ID"
// @Param        page  query int    false "页码"
// @Param        limit query int    false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.StockLogResponse}}
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id}/stock-logs [get]
func (h *BookHandler) StockLogs(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	logs, meta, err := h.catalog.StockLogs(c.Request.Context(), c.Param("id"), req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewStockLogList(logs), meta)
}

// coverFromForm 读取multipart中的cover文件，没有上传时返回nil
func coverFromForm(c *gin.Context) (*catalog.CoverUpload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile("cover")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &catalog.CoverUpload{Filename: fh.Filename, Content: f}, func() { _ = f.Close() }, nil
}

// bindError 参数绑定失败
func bindError(c *gin.Context, err error) {
	response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
}
