package company

// Config is the tenant-wide record the chatbot renders messages from and
// attributes created leads to.
type Config struct {
	ID              string `json:"id"`
	CompanyName     string `json:"company_name"`
	CompanyAddress  string `json:"company_address"`
	CompanyPhone    string `json:"company_phone"`
	ProductList     string `json:"product_list"`
	FallbackMessage string `json:"fallback_message"`
	// OwnerUserID is the system actor created leads are attributed to,
	// since chat visitors are anonymous.
	OwnerUserID string `json:"owner_user_id"`
}
