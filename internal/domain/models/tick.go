package models

// CatalystCategory classifies a news/catalyst event attached to a tick.
type CatalystCategory string

const (
	CatalystEarnings  CatalystCategory = "earnings"
	CatalystFDA       CatalystCategory = "fda"
	CatalystMNA       CatalystCategory = "mna"
	CatalystContracts CatalystCategory = "contracts"
	CatalystGuidance  CatalystCategory = "guidance"
)

// Categories that carry no scoring weight and are dropped on ingest.
const (
	CatalystRumor     CatalystCategory = "rumor"
	CatalystSympathy  CatalystCategory = "sympathy"
	CatalystSocial    CatalystCategory = "social"
	CatalystTechnical CatalystCategory = "technical"
)

// IsScorable reports whether the category participates in catalyst scoring.
func (c CatalystCategory) IsScorable() bool {
	switch c {
	case CatalystEarnings, CatalystFDA, CatalystMNA, CatalystContracts, CatalystGuidance:
		return true
	default:
		return false
	}
}

// CatalystEvent is one news event tied to a symbol.
type CatalystEvent struct {
	Category  CatalystCategory
	Headline  string
	Timestamp int64 // unix seconds
}

// Tick is one atomic market-data update for a symbol. Immutable once emitted
// by a provider.
type Tick struct {
	Symbol    string
	Timestamp int64   // unix seconds
	Price     float64 // last trade price
	Volume    float64 // volume delta since previous tick
	Catalyst  *CatalystEvent
	Source    string
}
