package request

type ContactRequest struct {
	ContactId int64 `json:"contactId" binding:"required,gt=0"`
}
