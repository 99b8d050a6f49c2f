package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Run("整除", func(t *testing.T) {
		meta := Calculate(2, 10, 30)
		assert.Equal(t, Meta{Page: 2, Skip: 10, Limit: 10, TotalPages: 3, TotalItems: 30}, meta)
	})

	t.Run("向上取整", func(t *testing.T) {
		meta := Calculate(1, 10, 31)
		assert.Equal(t, 4, meta.TotalPages)
		assert.Equal(t, 0, meta.Skip)
	})

	t.Run("空结果", func(t *testing.T) {
		meta := Calculate(1, 10, 0)
		assert.Equal(t, 0, meta.TotalPages)
	})

	t.Run("非法参数取默认值", func(t *testing.T) {
		meta := Calculate(0, 0, 5)
		assert.Equal(t, DefaultPage, meta.Page)
		assert.Equal(t, DefaultLimit, meta.Limit)
	})

	t.Run("每页数量上限", func(t *testing.T) {
		meta := Calculate(3, 1000, 500)
		assert.Equal(t, MaxLimit, meta.Limit)
		assert.Equal(t, 200, meta.Skip)
		assert.Equal(t, 5, meta.TotalPages)
	})
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 20))
	assert.Equal(t, 40, Offset(3, 20))
	assert.Equal(t, 0, Offset(-1, 20))
}
