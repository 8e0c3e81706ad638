package shipment

// Patch is a partial field set applied to a shipment record. Nil fields are
// left untouched, so applying the same patch twice is a no-op the second
// time.
type Patch struct {
	FromFirstName *string `json:"from_first_name,omitempty"`
	FromLastName  *string `json:"from_last_name,omitempty"`
	FromAddress   *string `json:"from_address,omitempty"`
	FromAddress2  *string `json:"from_address2,omitempty"`
	FromCity      *string `json:"from_city,omitempty"`
	FromZip       *string `json:"from_zip,omitempty"`
	FromState     *string `json:"from_state,omitempty"`

	ToFirstName *string `json:"to_first_name,omitempty"`
	ToLastName  *string `json:"to_last_name,omitempty"`
	ToAddress   *string `json:"to_address,omitempty"`
	ToAddress2  *string `json:"to_address2,omitempty"`
	ToCity      *string `json:"to_city,omitempty"`
	ToZip       *string `json:"to_zip,omitempty"`
	ToState     *string `json:"to_state,omitempty"`

	WeightLbs *int     `json:"weight_lbs,omitempty"`
	WeightOz  *int     `json:"weight_oz,omitempty"`
	Length    *float64 `json:"length,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`

	PhoneNum1 *string `json:"phone_num1,omitempty"`
	PhoneNum2 *string `json:"phone_num2,omitempty"`

	OrderNo *string `json:"order_no,omitempty"`
	ItemSKU *string `json:"item_sku,omitempty"`

	ShippingService *string `json:"shipping_service,omitempty"`
	ShippingPrice   *Price  `json:"shipping_price,omitempty"`
	Status          *Status `json:"status,omitempty"`
}

// Apply merges the patch's set fields into the record.
func (p *Patch) Apply(r *ShipmentRecord) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&r.FromFirstName, p.FromFirstName)
	setString(&r.FromLastName, p.FromLastName)
	setString(&r.FromAddress, p.FromAddress)
	setString(&r.FromAddress2, p.FromAddress2)
	setString(&r.FromCity, p.FromCity)
	setString(&r.FromZip, p.FromZip)
	setString(&r.FromState, p.FromState)

	setString(&r.ToFirstName, p.ToFirstName)
	setString(&r.ToLastName, p.ToLastName)
	setString(&r.ToAddress, p.ToAddress)
	setString(&r.ToAddress2, p.ToAddress2)
	setString(&r.ToCity, p.ToCity)
	setString(&r.ToZip, p.ToZip)
	setString(&r.ToState, p.ToState)

	if p.WeightLbs != nil {
		r.WeightLbs = *p.WeightLbs
	}
	if p.WeightOz != nil {
		r.WeightOz = *p.WeightOz
	}
	if p.Length != nil {
		r.Length = *p.Length
	}
	if p.Width != nil {
		r.Width = *p.Width
	}
	if p.Height != nil {
		r.Height = *p.Height
	}

	setString(&r.PhoneNum1, p.PhoneNum1)
	setString(&r.PhoneNum2, p.PhoneNum2)
	setString(&r.OrderNo, p.OrderNo)
	setString(&r.ItemSKU, p.ItemSKU)
	setString(&r.ShippingService, p.ShippingService)

	if p.ShippingPrice != nil {
		r.ShippingPrice = *p.ShippingPrice
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

// IsEmpty reports whether the patch sets no fields.
func (p *Patch) IsEmpty() bool {
	return *p == Patch{}
}

// AddressPatch builds a patch carrying a saved address into the ship-from
// fields of a record.
func AddressPatch(a SavedAddress) Patch {
	return Patch{
		FromFirstName: &a.FirstName,
		FromLastName:  &a.LastName,
		FromAddress:   &a.AddressLine1,
		FromAddress2:  &a.AddressLine2,
		FromCity:      &a.City,
		FromState:     &a.State,
		FromZip:       &a.ZipCode,
		PhoneNum1:     &a.Phone,
	}
}

// PackagePatch builds a patch carrying a saved package into the dimension
// fields of a record.
func PackagePatch(p SavedPackage) Patch {
	return Patch{
		Length:    &p.Length,
		Width:     &p.Width,
		Height:    &p.Height,
		WeightLbs: &p.WeightLbs,
		WeightOz:  &p.WeightOz,
	}
}

// ServicePatch builds a patch assigning a shipping service and price.
func ServicePatch(service string, price Price) Patch {
	return Patch{ShippingService: &service, ShippingPrice: &price}
}

// StatusPatch builds a patch setting the lifecycle status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}
