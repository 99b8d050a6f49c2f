package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBook(t *testing.T) {
	b, err := NewBook(" 活着 ", "余华", "978-7-5063-6543-7", 2012, "", 3)
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "活着", b.Title)
	assert.Equal(t, "9787506365437", b.ISBN)
	assert.Equal(t, 3, b.TotalQuantity)
	assert.Equal(t, 3, b.AvailableQuantity)
	assert.Zero(t, b.Borrowed())
}

func TestNewBook_Invalid(t *testing.T) {
	_, err := NewBook("", "余华", "9787506365437", 2012, "", 3)
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = NewBook("活着", " ", "9787506365437", 2012, "", 3)
	assert.ErrorIs(t, err, ErrInvalidAuthor)

	_, err = NewBook("活着", "余华", "9787506365437", 2012, "", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestBook_AdjustAvailable(t *testing.T) {
	b := &Book{TotalQuantity: 2, AvailableQuantity: 1}

	require.NoError(t, b.AdjustAvailable(-1))
	assert.Equal(t, 0, b.AvailableQuantity)

	assert.ErrorIs(t, b.AdjustAvailable(-1), ErrStockExhausted)
	assert.Equal(t, 0, b.AvailableQuantity)

	require.NoError(t, b.AdjustAvailable(2))
	assert.ErrorIs(t, b.AdjustAvailable(1), ErrStockOverflow)
	assert.Equal(t, 2, b.AvailableQuantity)
	assert.Equal(t, 2, b.TotalQuantity)
}

func TestBook_ChangeTotal(t *testing.T) {
	tests := []struct {
		name          string
		total, avail  int
		newTotal      int
		wantAvailable int
		wantErr       error
	}{
		{name: "增加总量", total: 5, avail: 3, newTotal: 8, wantAvailable: 6},
		{name: "减少总量", total: 5, avail: 3, newTotal: 2, wantAvailable: 0},
		{name: "低于借出数量", total: 5, avail: 3, newTotal: 1, wantErr: ErrStockBelowBorrowed},
		{name: "负数", total: 5, avail: 5, newTotal: -1, wantErr: ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{TotalQuantity: tt.total, AvailableQuantity: tt.avail}
			err := b.ChangeTotal(tt.newTotal)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.total, b.TotalQuantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.newTotal, b.TotalQuantity)
			assert.Equal(t, tt.wantAvailable, b.AvailableQuantity)
		})
	}
}

func TestBook_UpdateInfo(t *testing.T) {
	b := &Book{Title: "旧书名", Author: "作者"}
	title := "新书名"
	year := 2020

	require.NoError(t, b.UpdateInfo(&title, nil, nil, &year))
	assert.Equal(t, "新书名", b.Title)
	assert.Equal(t, "作者", b.Author)
	assert.Equal(t, 2020, b.PublicationYear)

	empty := " "
	assert.ErrorIs(t, b.UpdateInfo(nil, &empty, nil, nil), ErrInvalidAuthor)
}

func TestBook_SetCover(t *testing.T) {
	b := &Book{Cover: CoverImage{URL: "/files/covers/a.png", Path: "covers/a.png"}}

	old := b.SetCover(CoverImage{URL: "/files/covers/b.png", Path: "covers/b.png"})
	assert.Equal(t, "covers/a.png", old.Path)
	assert.Equal(t, "covers/b.png", b.Cover.Path)
	assert.True(t, CoverImage{}.IsEmpty())
}

func TestValidateISBN(t *testing.T) {
	valid := []string{"9787115428028", "978-0-306-40615-7", "0306406152", "080442957x"}
	for _, isbn := range valid {
		assert.NoError(t, ValidateISBN(isbn), isbn)
	}

	invalid := []string{"", "123", "9787115428029", "0306406153", "97871154280X8"}
	for _, isbn := range invalid {
		assert.ErrorIs(t, ValidateISBN(isbn), ErrInvalidISBN, isbn)
	}
}
