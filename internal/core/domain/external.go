package domain

// SupplierOffer is one line of a supplier's current stock listing.
type SupplierOffer struct {
	Supplier  string `json:"supplier"`
	Item      string `json:"item"`
	Available int    `json:"available"`
	UnitPrice int64  `json:"unit_price"`
}

// SupplierConfirmation is a placed supplier order awaiting payment.
type SupplierConfirmation struct {
	OrderID      string `json:"order_id"`
	Price        int64  `json:"price"`
	PayeeAccount string `json:"payee_account"`
}

// PickupQuote is a logistics quote for collecting finished goods.
type PickupQuote struct {
	Cost         int64  `json:"cost"`
	PayeeAccount string `json:"payee_account"`
}
