package types

// Account is a registered identity. PasswordHash and Token are never
// serialized to clients; the persistence layer keeps them in the
// durable snapshot.
type Account struct {
	Id           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	PasswordHash string            `json:"password_hash"`
	Token        string            `json:"token,omitempty"`
	RoomId       string            `json:"room_id,omitempty"`
	SavedRooms   map[string]string `json:"saved_rooms,omitempty"`
}

// Profile is the client-visible view of an account. Sid is the id of
// the room the account is currently present in, empty if none.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Sid   string `json:"sid"`
}

func (a *Account) Profile() Profile {
	return Profile{
		Email: a.Email,
		Name:  a.Name,
		Sid:   a.RoomId,
	}
}

// Membership holds the per-account attributes a room keeps for each
// admitted member.
type Membership struct {
	IsOwner bool `json:"is_owner"`
	IsAdmin bool `json:"is_admin"`
}

type VideoMode string

const (
	VideoOff      VideoMode = "off"
	VideoNormal   VideoMode = "normal"
	VideoLayers   VideoMode = "layers"
	VideoSequence VideoMode = "sequence"
)

func (m VideoMode) Valid() bool {
	switch m {
	case VideoOff, VideoNormal, VideoLayers, VideoSequence:
		return true
	}
	return false
}

// Layer is one entry of a layered video configuration: the listed
// members start fanning their streams DelaySeconds after the previous
// layer.
type Layer struct {
	DelaySeconds float64  `json:"delay"`
	Members      []string `json:"members"`
}

// Room is a named, password-protected session. Membership is durable:
// an entry survives the member going offline and is only removed when
// the room itself is removed.
//
// In sequence mode the configured order forms a relay chain: the first
// member's local capture seeds the chain and every member forwards the
// stream it receives to the member immediately following it, so each
// participant sends to at most one peer instead of a full mesh.
type Room struct {
	Id        string                `json:"id"`
	Name      string                `json:"name"`
	Password  string                `json:"password"`
	OwnerId   string                `json:"owner_id"`
	Members   map[string]Membership `json:"members"`
	VideoMode VideoMode             `json:"video_mode"`
	Layers    []Layer               `json:"layers,omitempty"`
	Sequence  []string              `json:"sequence,omitempty"`
}

// RoomView is the public view of a room returned to accounts which
// proved knowledge of the room password (or saved it earlier), which
// is why the password is part of the view.
type RoomView struct {
	Sid      string `json:"sid"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Owner    string `json:"owner"`
}

func (r *Room) View() RoomView {
	return RoomView{
		Sid:      r.Id,
		Name:     r.Name,
		Password: r.Password,
		Owner:    r.OwnerId,
	}
}

func (r *Room) IsMember(accountId string) bool {
	_, ok := r.Members[accountId]
	return ok
}

func (r *Room) IsAdmin(accountId string) bool {
	return r.Members[accountId].IsAdmin
}

// Credentials pairs an account id with its current access token.
type Credentials struct {
	Uid   string `json:"uid"`
	Token string `json:"token"`
}
