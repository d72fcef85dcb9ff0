package domain

type InventoryStatus string

const (
	UnitAvailable InventoryStatus = "available"
	UnitReserved  InventoryStatus = "reserved"
	UnitSold      InventoryStatus = "sold"
)

// InventoryUnit is one produced good. ProducedAt and SoldAt are fractional
// simulation days. Valid transitions: available -> reserved -> sold, or
// reserved -> available on release. A sold unit never changes again.
type InventoryUnit struct {
	ID         string
	Status     InventoryStatus
	ProducedAt float64
	SoldAt     *float64
}

// InventorySummary is the point-in-time view returned to callers.
type InventorySummary struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
}
