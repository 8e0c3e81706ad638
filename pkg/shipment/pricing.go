package shipment

// Rate schedule: base price plus a per-ounce rate. Unknown services fall
// back to ground.
const (
	groundBase     = 2.50
	groundPerOz    = 0.05
	priorityBase   = 5.00
	priorityPerOz  = 0.10
)

// PriceFor computes the shipping price for a service and a total weight in
// ounces. This mirrors the backend's schedule so the simulation server and
// client-side previews agree with it.
func PriceFor(service string, totalOz int) Price {
	switch service {
	case ServicePriority:
		return Price(priorityBase + float64(totalOz)*priorityPerOz)
	default:
		return Price(groundBase + float64(totalOz)*groundPerOz)
	}
}

// RecalculatePrice sets the record's price from its current service and
// weight.
func (r *ShipmentRecord) RecalculatePrice() {
	r.ShippingPrice = PriceFor(r.ShippingService, r.TotalOunces())
}

// TotalPrice sums the price of every record, treating unassigned prices as
// zero.
func TotalPrice(records []ShipmentRecord) Price {
	var total Price
	for i := range records {
		total += records[i].ShippingPrice
	}
	return total
}
