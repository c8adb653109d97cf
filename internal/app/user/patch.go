package user

// Patch is a partial update of the writable user fields.
// A nil field is absent from the update. Unknown JSON keys are ignored on decode,
// and ID and ListeningTo cannot be written through a Patch.
type Patch struct {
	Username    *string  `json:"username,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tx          *float64 `json:"tx,omitempty"`
	Ty          *float64 `json:"ty,omitempty"`
	Tz          *float64 `json:"tz,omitempty"`
	Afk         *bool    `json:"afk,omitempty"`
	Textstream  *string  `json:"textstream,omitempty"`
}

// Apply writes every present field of p that differs from u and reports whether u changed.
func (p Patch) Apply(u *User) bool {
	changed := false
	changed = setIfChanged(&u.Username, p.Username) || changed
	changed = setIfChanged(&u.Description, p.Description) || changed
	changed = setIfChanged(&u.Tx, p.Tx) || changed
	changed = setIfChanged(&u.Ty, p.Ty) || changed
	changed = setIfChanged(&u.Tz, p.Tz) || changed
	changed = setIfChanged(&u.Afk, p.Afk) || changed
	changed = setIfChanged(&u.Textstream, p.Textstream) || changed
	return changed
}

func setIfChanged[T comparable](dst *T, v *T) bool {
	if v == nil || *dst == *v {
		return false
	}
	*dst = *v
	return true
}
