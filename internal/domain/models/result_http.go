package models

// Requests for scan HTTP endpoints. Defined in domain for consistency and reuse.

type TopScoresRequest struct {
	N int `query:"n" json:"n" default:"10" validate:"gte=1,lte=500"`
}

type SymbolScoreRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type ScanHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   int64  `query:"from" json:"from" validate:"gte=0"` // unix seconds, 0 means To minus 24h
	To     int64  `query:"to" json:"to" validate:"gte=0"`     // unix seconds, 0 means now
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type UniverseMutationRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=100,dive,required"`
}
