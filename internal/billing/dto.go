// AngelaMos | 2026
// dto.go

package billing

type CreateCheckoutRequest struct {
	ProductID string `json:"product_id" validate:"required,max=191"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}

type ProductResponse struct {
	PriceID   string `json:"price_id"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	NameRU    string `json:"name_ru,omitempty"`
	AmountUSD string `json:"amount_usd"`
	Interval  string `json:"interval"`
}

func ToProductResponse(p Product) ProductResponse {
	return ProductResponse{
		PriceID:   p.PriceID,
		Role:      string(p.Role),
		Name:      p.Name,
		NameRU:    p.NameRU,
		AmountUSD: p.AmountUSD,
		Interval:  p.Interval,
	}
}

func ToProductResponseList(products []Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		responses = append(responses, ToProductResponse(p))
	}
	return responses
}
