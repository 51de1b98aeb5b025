package repository

import "gorm.io/gorm"

const maxPageSize = 100

// applyPagination 应用分页参数，非法页码按第一页处理，单页上限 100 条。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
