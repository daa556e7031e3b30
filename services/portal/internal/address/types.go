package address

// CreateRequest 创建地址请求
type CreateRequest struct {
	FirstName string `json:"first_name" validate:"required,max=128"`
	LastName  string `json:"last_name" validate:"omitempty,max=128"`
	Address1  string `json:"address_1" validate:"required,max=255"`
	Address2  string `json:"address_2" validate:"omitempty,max=255"`
	City      string `json:"city" validate:"required,max=128"`
	State     string `json:"state" validate:"omitempty,max=128"`
	Zip       string `json:"zip" validate:"omitempty,max=32"`
	Country   string `json:"country" validate:"required,max=64"`
}
