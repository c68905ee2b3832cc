package types

// PickupWindow is the in-store collection appointment encoded into the
// confirmation redirect for pickup orders.
type PickupWindow struct {
	Date string `json:"date"`
	Time string `json:"time"`
}
