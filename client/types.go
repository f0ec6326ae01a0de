package client

// User is an account on the payment service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Installment is one scheduled payment of a plan.
type Installment struct {
	ID      string `json:"id"`
	DueDate string `json:"due_date"`
	Amount  string `json:"amount"`
	Status  string `json:"status"`
}

// Plan is a payment plan created by a merchant for a user.
type Plan struct {
	ID                   string        `json:"id"`
	Merchant             string        `json:"merchant,omitempty"`
	MerchantEmail        string        `json:"merchant_email,omitempty"`
	User                 string        `json:"user,omitempty"`
	UserEmail            string        `json:"user_email,omitempty"`
	TotalAmount          string        `json:"total_amount"`
	NumberOfInstallments int           `json:"number_of_installments"`
	StartDate            string        `json:"start_date"`
	Status               string        `json:"status,omitempty"`
	Installments         []Installment `json:"installments,omitempty"`
}

// Credentials are the sign-in form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration are the sign-up form fields.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// PlanRequest is the body of a plan creation request.
type PlanRequest struct {
	User                 string `json:"user"`
	TotalAmount          string `json:"total_amount"`
	NumberOfInstallments int    `json:"number_of_installments"`
	StartDate            string `json:"start_date"`
}

// Payment is the optional body sent when paying an installment.
type Payment map[string]any

// TokenPair is the credential pair returned by sign-in.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// registrationResponse is the created user, optionally with a token pair.
type registrationResponse struct {
	User
	TokenPair
}
