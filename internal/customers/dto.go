package customers

type CreateCustomerRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Email         string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address       string `json:"address,omitempty" validate:"omitempty,max=300"`
	AccountNumber string `json:"account_number" validate:"required,max=50"`
	MeterNumber   string `json:"meter_number" validate:"required,max=50"`
	CustomerType  string `json:"customer_type" validate:"required,oneof=residential commercial government"`
}

type UpdateCustomerRequest struct {
	FirstName     *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName      *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=300"`
	AccountNumber *string `json:"account_number,omitempty" validate:"omitempty,min=1,max=50"`
	MeterNumber   *string `json:"meter_number,omitempty" validate:"omitempty,min=1,max=50"`
	CustomerType  *string `json:"customer_type,omitempty" validate:"omitempty,oneof=residential commercial government"`
}

type ListCustomersRequest struct {
	CustomerType string `validate:"omitempty,oneof=residential commercial government"`
	Search       string
}
