package radiowave

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the session scoped conduct privilege of a room occupant
type Role = string

const (
	RoleModerator   Role = "moderator"
	RoleParticipant Role = "participant"
	RoleVisitor     Role = "visitor"
	RoleNone        Role = "none"
)

// Affiliation is the long lived relationship between a user and a room or channel
type Affiliation = string

const (
	AffiliationOwner     Affiliation = "owner"
	AffiliationAdmin     Affiliation = "admin"
	AffiliationMember    Affiliation = "member"
	AffiliationOutcast   Affiliation = "outcast"
	AffiliationPublisher Affiliation = "publisher"
	AffiliationNone      Affiliation = "none"
)

// MembershipState is the lifecycle of a room membership request
type MembershipState = string

const (
	StateAccepted MembershipState = "accepted"
	StatePending  MembershipState = "pending"
	StateDeclined MembershipState = "declined"
	StateNone     MembershipState = "none"
)

// SubState is the approval state of a channel subscription
type SubState = string

const (
	SubStateNone         SubState = "none"
	SubStatePending      SubState = "pending"
	SubStateUnconfigured SubState = "unconfigured"
	SubStateMember       SubState = "member"
)

// User is the identity record for a bare jid
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	JID           string     `bun:"jid,notnull,unique" json:"jid"`
	Name          string     `bun:"name" json:"name,omitempty"`
	UUID          uuid.UUID  `bun:"uuid,notnull,unique,type:uuid" json:"uuid"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserExport is the externally visible form of a User
type UserExport struct {
	JID  string    `json:"jid"`
	Name string    `json:"name,omitempty"`
	UUID uuid.UUID `json:"uuid"`
}

// Export returns the user without its internal id
func (u *User) Export() *UserExport {
	if u == nil {
		return nil
	}
	return &UserExport{
		JID:  u.JID,
		Name: u.Name,
		UUID: u.UUID,
	}
}

// Room is a named group chat
type Room struct {
	bun.BaseModel `bun:"table:rooms,alias:room"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string        `bun:"name,notnull,unique" json:"name"`
	Subject       string        `bun:"subject" json:"subject,omitempty"`
	Description   string        `bun:"description" json:"description,omitempty"`
	Members       []*RoomMember `bun:"rel:has-many,join:id=room_id" json:"members,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RoomExport is the externally visible form of a Room
type RoomExport struct {
	Name        string              `json:"name"`
	Subject     string              `json:"subject,omitempty"`
	Description string              `json:"description,omitempty"`
	Members     []*RoomMemberExport `json:"members,omitempty"`
}

// RoomMemberExport is the externally visible form of a RoomMember
type RoomMemberExport struct {
	JID         string          `json:"jid"`
	Nickname    string          `json:"nickname,omitempty"`
	Role        Role            `json:"role"`
	Affiliation Affiliation     `json:"affiliation"`
	State       MembershipState `json:"state"`
}

// Export returns the room without internal ids
func (r *Room) Export() *RoomExport {
	if r == nil {
		return nil
	}
	out := &RoomExport{
		Name:        r.Name,
		Subject:     r.Subject,
		Description: r.Description,
	}
	for _, m := range r.Members {
		if m == nil {
			continue
		}
		out.Members = append(out.Members, m.Export())
	}
	return out
}

// MemberJIDs lists the jids of the loaded members
func (r *Room) MemberJIDs() []string {
	if r == nil {
		return nil
	}
	jids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		if m != nil && m.User != nil {
			jids = append(jids, m.User.JID)
		}
	}
	return jids
}

// Member returns the loaded membership row for jid
func (r *Room) Member(jid string) *RoomMember {
	if r == nil {
		return nil
	}
	for _, m := range r.Members {
		if m != nil && m.User != nil && m.User.JID == jid {
			return m
		}
	}
	return nil
}

// RoomMember joins a user to a room. The composite key allows at
// most one row per (room, user) pair.
type RoomMember struct {
	bun.BaseModel `bun:"table:room_members,alias:rm"`
	RoomID        uuid.UUID       `bun:"room_id,pk,type:uuid" json:"room_id,omitempty"`
	UserID        uuid.UUID       `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User          *User           `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Nickname      string          `bun:"nickname" json:"nickname,omitempty"`
	Role          Role            `bun:"role,notnull" json:"role"`
	Affiliation   Affiliation     `bun:"affiliation,notnull" json:"affiliation"`
	State         MembershipState `bun:"state,notnull,default:'accepted'" json:"state"`
	CreatedAt     *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureState defaults an empty state to accepted
func (m *RoomMember) EnsureState() {
	if m != nil && m.State == "" {
		m.State = StateAccepted
	}
}

// Export returns the membership without internal ids
func (m *RoomMember) Export() *RoomMemberExport {
	if m == nil {
		return nil
	}
	out := &RoomMemberExport{
		Nickname:    m.Nickname,
		Role:        m.Role,
		Affiliation: m.Affiliation,
		State:       m.State,
	}
	if m.User != nil {
		out.JID = m.User.JID
	}
	return out
}

// Channel is a named pub/sub topic
type Channel struct {
	bun.BaseModel `bun:"table:channels,alias:chn"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string        `bun:"name,notnull,unique" json:"name"`
	Subscribers   []*ChannelSub `bun:"rel:has-many,join:id=channel_id" json:"subscribers,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ChannelExport is the externally visible form of a Channel
type ChannelExport struct {
	Name        string              `json:"name"`
	Subscribers []*ChannelSubExport `json:"subscribers,omitempty"`
}

// ChannelSubExport is the externally visible form of a ChannelSub
type ChannelSubExport struct {
	JID         string      `json:"jid"`
	Affiliation Affiliation `json:"affiliation"`
	SubState    SubState    `json:"substate"`
}

// Export returns the channel without internal ids
func (c *Channel) Export() *ChannelExport {
	if c == nil {
		return nil
	}
	out := &ChannelExport{Name: c.Name}
	for _, s := range c.Subscribers {
		if s == nil {
			continue
		}
		sub := &ChannelSubExport{Affiliation: s.Affiliation, SubState: s.SubState}
		if s.User != nil {
			sub.JID = s.User.JID
		}
		out.Subscribers = append(out.Subscribers, sub)
	}
	return out
}

// Subscriber returns the loaded subscription row for jid
func (c *Channel) Subscriber(jid string) *ChannelSub {
	if c == nil {
		return nil
	}
	for _, s := range c.Subscribers {
		if s != nil && s.User != nil && s.User.JID == jid {
			return s
		}
	}
	return nil
}

// ChannelSub joins a user to a channel
type ChannelSub struct {
	bun.BaseModel `bun:"table:channel_subs,alias:cs"`
	ChannelID     uuid.UUID   `bun:"channel_id,pk,type:uuid" json:"channel_id,omitempty"`
	UserID        uuid.UUID   `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User          *User       `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Affiliation   Affiliation `bun:"affiliation,notnull" json:"affiliation"`
	SubState      SubState    `bun:"substate,notnull,default:'member'" json:"substate"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureSubState defaults an empty substate to member
func (s *ChannelSub) EnsureSubState() {
	if s != nil && s.SubState == "" {
		s.SubState = SubStateMember
	}
}

// RoomData carries the optional fields of a room create or update.
// Nil fields are left untouched on update.
type RoomData struct {
	Name        string
	Subject     *string
	Description *string
}

// UserData carries the optional fields of a user update
type UserData struct {
	Name *string
}
