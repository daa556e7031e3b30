package order

import "github.com/portalback/pkg/dal"

// LineRequest 订单行，未给出单价时取产品价格
type LineRequest struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Quantity  float64  `json:"quantity" validate:"required,gt=0"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
}

// CreateRequest 创建订单请求
// 调用者属于某个客户时 client_id 被忽略
type CreateRequest struct {
	ClientID *int64        `json:"client_id" validate:"omitempty,gt=0"`
	State    string        `json:"state" validate:"max=32"`
	Tax      float64       `json:"tax" validate:"gte=0"`
	Data     dal.JSON      `json:"data"`
	Lines    []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateRequest 更新订单请求，lines 非空时整体替换订单行
type UpdateRequest struct {
	State *string       `json:"state" validate:"omitempty,max=32"`
	Tax   *float64      `json:"tax" validate:"omitempty,gte=0"`
	Data  dal.JSON      `json:"data"`
	Lines []LineRequest `json:"lines" validate:"omitempty,dive"`
}
