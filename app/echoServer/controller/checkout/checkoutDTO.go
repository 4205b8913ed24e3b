package checkout

type CreateCheckoutReq struct {
	PackageID     string `json:"package_id" validate:"required"`
	Day           string `json:"day" validate:"required,datetime=2006-01-02"`
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}
