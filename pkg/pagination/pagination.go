// Package pagination 分页参数归一化、gorm 分页 scope 和带元数据的分页结果
package pagination

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params 页码从 1 开始
type Params struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"pageSize" json:"pageSize"`
}

// Normalize 非法页码归为 1，页大小限制在 [1, MaxPageSize]
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset 归一化后的偏移量
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// Limit 归一化后的每页条数
func (p Params) Limit() int {
	return p.Normalize().PageSize
}

// Paginate gorm scope，需配合显式 Order 保证窗口稳定
func Paginate(p Params) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit())
	}
}

// Page 分页结果
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// NewPage items 为 nil 时输出空数组
func NewPage[T any](items []T, total int64, p Params) *Page[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return &Page[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize, TotalPages: pages}
}

// HasNext 是否还有下一页
func (pg *Page[T]) HasNext() bool {
	return pg.Page < pg.TotalPages
}

// Window 对内存切片按同样规则取窗口
func Window[T any](all []T, p Params) *Page[T] {
	p = p.Normalize()
	total := int64(len(all))
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return NewPage(append([]T(nil), all[start:end]...), total, p)
}
