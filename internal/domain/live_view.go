package domain

// LiveEntry is one row of the live aggregation view: shipment metadata
// joined with its most recent fix, or a nil fix when the driver has not yet
// reported.
type LiveEntry struct {
	Shipment     Shipment
	SupplierName string
	DriverName   *string
	Fix          *GpsFix
}
