package tickets

type CreateTicketRequest struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
}

type UpdateTicketRequest struct {
	Status  string `json:"status" validate:"required,oneof=open pending resolved closed"`
	Remarks string `json:"remarks" validate:"required,max=2000"`
}

type ListTicketsRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=open pending resolved closed"`
	Search string `json:"search" validate:"omitempty,max=100"`
}
