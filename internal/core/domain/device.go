package domain

// Device is an Awair sensor unit registered to the authenticated user.
// Devices are ephemeral: they are fetched fresh on every export request and
// never cached, since the user can add or remove a device at any time.
type Device struct {
	// ID is the provider-assigned device identifier.
	ID string `json:"deviceId"`
	// Type is the hardware model identifier (e.g. "awair-element").
	// Type and ID together form the provider's addressing scheme.
	Type string `json:"deviceType"`
	// Name is the user-assigned label. May be empty.
	Name string `json:"name"`
}

// Ref returns the provider's compound address for the device,
// "deviceType/deviceId", as used in resource paths.
func (d Device) Ref() string {
	return d.Type + "/" + d.ID
}

// DisplayName returns the user-assigned name, falling back to the
// device ID when no name is set.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
