package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/lending"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// LendingHandler 借阅HTTP处理器
type LendingHandler struct {
	engine *lending.Engine
}

// NewLendingHandler 创建借阅处理器
func NewLendingHandler(engine *lending.Engine) *LendingHandler {
	return &LendingHandler{engine: engine}
}

// Borrow 借阅图书
// @Summary      借阅图书
// @Description  当前用户借阅一本书；days不传时使用默认借期(7天)
// @Tags         借阅
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true  "图书ID"
// @Param        request body dto.BorrowRequest false "借阅参数"
// @Success      200 {object} response.Response{data=dto.LendingResponse}
// @Failure      400 {object} response.Response "参数错误"
// @Failure      404 {object} response.Response "图书不存在"
// @Failure      409 {object} response.Response "库存不足/已借阅"
// @Router       /api/v1/books/{id}/borrow [post]
func (h *LendingHandler) Borrow(c *gin.Context) {
	var req dto.BorrowRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		bindError(c, err)
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	res, err := h.engine.Borrow(c.Request.Context(), lending.BorrowRequest{
		BookID:   c.Param("id"),
		UserID:   middleware.GetUserID(c),
		Quantity: req.Qty,
		LoanDays: req.Days,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.LendingResponse{
		Book:   dto.NewBookResponse(res.Book),
		Record: dto.NewBorrowRecordResponse(res.Record),
	})
}

// Return 归还图书
// @Summary      归还图书
// @Tags         借阅
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true  "图书ID"
// @Param        request body dto.ReturnRequest false "归还参数"
// @Success      200 {object} response.Response{data=dto.LendingResponse}
// @Failure      400 {object} response.Response "没有未归还的借阅"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id}/return [post]
func (h *LendingHandler) Return(c *gin.Context) {
	var req dto.ReturnRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		bindError(c, err)
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	res, err := h.engine.Return(c.Request.Context(), lending.ReturnRequest{
		BookID:   c.Param("id"),
		UserID:   middleware.GetUserID(c),
		Quantity: req.Qty,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.LendingResponse{
		Book:   dto.NewBookResponse(res.Book),
		Record: dto.NewBorrowRecordResponse(res.Record),
	})
}

// MyBorrows 我的借阅
// @Summary      我的借阅
// @Description  按借阅时间倒序；active=true只返回未归还
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        active query bool false "只看未归还"
// @Success      200 {object} response.Response{data=[]dto.BorrowRecordResponse}
// @Router       /api/v1/books/my-borrows [get]
func (h *LendingHandler) MyBorrows(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	records, err := h.engine.UserHistory(c.Request.Context(), middleware.GetUserID(c), req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBorrowRecordList(records))
}

// BookHistory 图书借阅历史
// @Summary      图书借阅历史
// @Tags         借阅
// @Produce      json
// @Param        id     path  string true  "图书ID"
// @Param        active query bool   false "只看未归还"
// @Success      200 {object} response.Response{data=[]dto.BorrowRecordResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id}/borrow-history [get]
func (h *LendingHandler) BookHistory(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	records, err := h.engine.BookHistory(c.Request.Context(), c.Param("id"), req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBorrowRecordList(records))
}

// Overdue 逾期未还列表
// @Summary      逾期未还列表
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "最多返回条数" default(100)
// @Success      200 {object} response.Response{data=[]dto.OverdueLoanResponse}
// @Router       /api/v1/loans/overdue [get]
func (h *LendingHandler) Overdue(c *gin.Context) {
	var req dto.OverdueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	loans, now, err := h.engine.ListOverdue(c.Request.Context(), req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOverdueList(loans, now))
}

// bindOptionalJSON 请求体可以为空
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
