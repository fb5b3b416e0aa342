package public

import "github.com/makerplace/makerplace/internal/http/response"

func pagination(page, pageSize int, total int64) response.Pagination {
	return response.BuildPagination(page, pageSize, total)
}
