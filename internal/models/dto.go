package models

// ListParams holds the common paging parameters of list endpoints.
type ListParams struct {
	Page int `form:"page" validate:"omitempty,min=1"`
	Size int `form:"size" validate:"omitempty,min=1,max=100"`
}

// Normalize fills in defaults for missing paging values.
func (p *ListParams) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = 20
	}
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Size
}

type PaginatedResponse struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"total_elements"`
	TotalPages       int         `json:"total_pages"`
	Size             int         `json:"size"`
	Page             int         `json:"page"`
	First            bool        `json:"first"`
	Last             bool        `json:"last"`
	NumberOfElements int         `json:"number_of_elements"`
	Empty            bool        `json:"empty"`
}

// NewPaginatedResponse builds the page envelope for numberOfElements items.
func NewPaginatedResponse(content interface{}, numberOfElements int, total int64, params ListParams) PaginatedResponse {
	totalPages := 0
	if params.Size > 0 {
		totalPages = int((total + int64(params.Size) - 1) / int64(params.Size))
	}
	return PaginatedResponse{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             params.Size,
		Page:             params.Page,
		First:            params.Page <= 1,
		Last:             params.Page >= totalPages,
		NumberOfElements: numberOfElements,
		Empty:            numberOfElements == 0,
	}
}
