package domain

// Intent is the side of the exchange the user is interested in.
type Intent string

const (
	IntentNone Intent = ""
	IntentBuy  Intent = "buy"
	IntentSell Intent = "sell"
)

// Offer is one side of the best commercial rate in a city.
type Offer struct {
	Rate        float64
	Description string
	BankID      string
}

// RateBundle is one consolidated snapshot of the reference rate, the best
// commercial offers, and the exchange quote. Produced fresh per query,
// immutable once constructed.
type RateBundle struct {
	Reference float64
	BestBuy   Offer
	BestSell  Offer
	// MarketQuote is nil when the market reported no last price.
	MarketQuote *float64
}

// Branch is a physical service location of the bank offering the best rate.
type Branch struct {
	ID        string
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
	Phone     string
}
