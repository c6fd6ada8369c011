package common

// Meta 包含分页元数据。
type Meta struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"page_size"`
	Total    int64 `json:"total"`
}

// BaseParams 包含通用的分页参数。
type BaseParams struct {
	PageSize int64 `json:"page_size" form:"page_size" query:"page_size"`
	Page     int64 `json:"page" form:"page" query:"page"`
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize 返回修正后的页码和分页大小。
func (p BaseParams) Normalize() (page, pageSize int) {
	page = int(p.Page)
	if page <= 0 {
		page = DefaultPage
	}
	pageSize = int(p.PageSize)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset 计算分页偏移量。
func (p BaseParams) Offset() int {
	page, pageSize := p.Normalize()
	return (page - 1) * pageSize
}
