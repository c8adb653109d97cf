/*
Package user contains the logical user model and the registry of live users.

A User represents one participant across any number of physical connections.
Records are volatile: they exist while their owning connection is open.
*/
package user

import "slices"

// User is the live state of one logical participant.
type User struct {
	// ID is the stable identity handed out in the welcome message.
	ID string `json:"id"`

	Username    string  `json:"username"`
	Description string  `json:"description"`
	Tx          float64 `json:"tx"`
	Ty          float64 `json:"ty"`
	Tz          float64 `json:"tz"`
	Afk         bool    `json:"afk"`
	Textstream  string  `json:"textstream"`

	// ListeningTo lists the users whose data messages this user receives.
	// It never contains ID.
	ListeningTo []string `json:"listeningTo"`
}

// New returns a user record with default field values.
func New(id, username string) *User {
	return &User{
		ID:          id,
		Username:    username,
		ListeningTo: []string{},
	}
}

// IsListeningTo reports whether u subscribes to the given user ID.
func (u *User) IsListeningTo(id string) bool {
	return slices.Contains(u.ListeningTo, id)
}

// Summary is the public view of a user carried in userupdate messages.
type Summary struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Description string  `json:"description"`
	Tx          float64 `json:"tx"`
	Ty          float64 `json:"ty"`
	Tz          float64 `json:"tz"`
	Afk         bool    `json:"afk"`
	Textstream  string  `json:"textstream"`
}

// UnnamedUsername is shown for users whose name was cleared.
const UnnamedUsername = "Unnamed"

// Summary returns the public view of u.
func (u *User) Summary() Summary {
	name := u.Username
	if name == "" {
		name = UnnamedUsername
	}

	return Summary{
		ID:          u.ID,
		Username:    name,
		Description: u.Description,
		Tx:          u.Tx,
		Ty:          u.Ty,
		Tz:          u.Tz,
		Afk:         u.Afk,
		Textstream:  u.Textstream,
	}
}
