package bills

type ListBillsRequest struct {
	Status     string `json:"status" validate:"omitempty,oneof=Pending Sent Unpaid Partially_Paid Paid Overdue Cancelled"`
	CustomerID int64  `json:"customer_id" validate:"omitempty,gt=0"`
	Search     string `json:"search" validate:"omitempty,max=100"`
}

type AccountLookup struct {
	AccountNumber string `json:"account_number" validate:"required,max=50"`
	MeterNumber   string `json:"meter_number" validate:"required,max=50"`
}
