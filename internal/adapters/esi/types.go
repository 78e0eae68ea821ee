package esi

// historyResponse is one element of GET /markets/{region_id}/history/.
type historyResponse struct {
	Date       string  `json:"date"` // "2006-01-02"
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	OrderCount int64   `json:"order_count"`
	Volume     int64   `json:"volume"`
}

// orderResponse is one element of GET /markets/{region_id}/orders/.
type orderResponse struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	SystemID     int32   `json:"system_id"`
	IsBuyOrder   bool    `json:"is_buy_order"`
	Price        float64 `json:"price"`
	VolumeRemain int64   `json:"volume_remain"`
	VolumeTotal  int64   `json:"volume_total"`
	MinVolume    int64   `json:"min_volume"`
	Range        string  `json:"range"`
	Duration     int     `json:"duration"`
	Issued       string  `json:"issued"`
}
