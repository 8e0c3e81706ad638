package shipment

// Validate checks required address fields. Returns nil when the template is
// acceptable.
func (a *SavedAddress) Validate() error {
	errs := FieldErrors{}
	if a.Name == "" {
		errs["name"] = "required"
	}
	if a.FirstName == "" {
		errs["first_name"] = "required"
	}
	if a.AddressLine1 == "" {
		errs["address_line1"] = "required"
	}
	if a.City == "" {
		errs["city"] = "required"
	}
	if a.State == "" {
		errs["state"] = "required"
	} else if len(a.State) != 2 {
		errs["state"] = "must be a two-letter abbreviation"
	}
	if a.ZipCode == "" {
		errs["zip_code"] = "required"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks required package fields and that dimensions are positive.
func (p *SavedPackage) Validate() error {
	errs := FieldErrors{}
	if p.Name == "" {
		errs["name"] = "required"
	}
	if p.Length <= 0 {
		errs["length"] = "must be positive"
	}
	if p.Width <= 0 {
		errs["width"] = "must be positive"
	}
	if p.Height <= 0 {
		errs["height"] = "must be positive"
	}
	if p.WeightLbs < 0 {
		errs["weight_lbs"] = "must not be negative"
	}
	if p.WeightOz < 0 {
		errs["weight_oz"] = "must not be negative"
	}
	if p.WeightLbs == 0 && p.WeightOz == 0 {
		errs["weight_oz"] = "weight required"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks the fields a record needs before a label can be rendered
// for it: a destination and a package.
func (r *ShipmentRecord) Validate() error {
	errs := FieldErrors{}
	if r.ToFirstName == "" {
		errs["to_first_name"] = "required"
	}
	if r.ToAddress == "" {
		errs["to_address"] = "required"
	}
	if r.ToCity == "" {
		errs["to_city"] = "required"
	}
	if r.ToState == "" {
		errs["to_state"] = "required"
	}
	if r.ToZip == "" {
		errs["to_zip"] = "required"
	}
	if r.Length <= 0 || r.Width <= 0 || r.Height <= 0 {
		errs["dimensions"] = "must be positive"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
