package radiowave

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoomFilter selects the affiliations GetRooms matches.
type RoomFilter = string

const (
	RoomsOwned  RoomFilter = "owner"
	RoomsMember RoomFilter = "member"
	RoomsAll    RoomFilter = "all"
)

// currentMembershipStates are the states that count as membership.
var currentMembershipStates = []MembershipState{StateAccepted, StatePending}

func roomAffiliations(filter RoomFilter) []Affiliation {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case RoomsOwned:
		return []Affiliation{AffiliationOwner}
	case RoomsMember:
		return []Affiliation{AffiliationMember}
	default:
		return []Affiliation{AffiliationOwner, AffiliationMember}
	}
}

// FindRoom returns the room called name with its members loaded.
func (s *Storage) FindRoom(ctx context.Context, name string, opts ...StorageOption) (*Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingRoom
	}
	o := resolveStorageOptions(opts...)
	return s.repos.Rooms().ByNameTx(ctx, s.idb(o), name)
}

// FindOrCreateRoom returns the room called name, creating it with owner
// as its first member when it does not exist.
func (s *Storage) FindOrCreateRoom(ctx context.Context, owner *User, name string, opts ...StorageOption) (*Room, error) {
	if owner == nil {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingRoom
	}

	room, err := s.FindRoom(ctx, name, opts...)
	if err == nil {
		return room, nil
	}

	if !errors.Is(err, ErrRoomNotFound) {
		return nil, err
	}

	return s.AddRoom(ctx, owner, RoomData{Name: name}, opts...)
}

// AddRoom creates the room and the owner membership as one unit and
// publishes room_create.
func (s *Storage) AddRoom(ctx context.Context, owner *User, data RoomData, opts ...StorageOption) (*Room, error) {
	if owner == nil {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(data.Name) == "" {
		return nil, ErrMissingRoom
	}

	o := resolveStorageOptions(opts...)

	var room *Room
	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		var err error
		owner, err = s.resolveUser(ctx, tx, owner, true)
		if err != nil {
			return err
		}

		record := &Room{Name: strings.TrimSpace(data.Name)}
		if data.Subject != nil {
			record.Subject = *data.Subject
		}
		if data.Description != nil {
			record.Description = *data.Description
		}

		if _, err = s.repos.Rooms().CreateTx(ctx, tx, record); err != nil {
			return err
		}

		_, err = s.repos.RoomMembers().CreateTx(ctx, tx, &RoomMember{
			RoomID:      record.ID,
			UserID:      owner.ID,
			Role:        RoleModerator,
			Affiliation: AffiliationOwner,
			State:       StateAccepted,
		})
		if err != nil {
			return err
		}

		room, err = s.repos.Rooms().ByNameTx(ctx, tx, record.Name)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type:  EventRoomCreate,
		Room:  room.Export(),
		Owner: owner.Export(),
	})

	return room, nil
}

// UpdateRoom writes the subject and description present in data and
// publishes room_update. Empty data writes nothing but is still published.
func (s *Storage) UpdateRoom(ctx context.Context, room *Room, data RoomData, opts ...StorageOption) (*Room, error) {
	if room == nil {
		return nil, ErrMissingRoom
	}

	o := resolveStorageOptions(opts...)
	tx := s.idb(o)

	room, err := s.resolveRoom(ctx, tx, room)
	if err != nil {
		return nil, err
	}

	if room, err = s.repos.Rooms().UpdateDetailsTx(ctx, tx, room, data); err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type: EventRoomUpdate,
		Room: room.Export(),
	})

	return room, nil
}

// DelRoom removes the membership rows and then the room, and publishes
// room_delete.
func (s *Storage) DelRoom(ctx context.Context, room *Room, opts ...StorageOption) error {
	if room == nil {
		return ErrMissingRoom
	}

	o := resolveStorageOptions(opts...)

	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		var err error
		room, err = s.resolveRoom(ctx, tx, room)
		if err != nil {
			return err
		}

		if _, err = s.repos.RoomMembers().DeleteByRoomTx(ctx, tx, room.ID); err != nil {
			return err
		}

		return s.repos.Rooms().RemoveTx(ctx, tx, room)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, Event{
		Type: EventRoomDelete,
		Room: room.Export(),
	})

	return nil
}

// GetRoom returns the room called name only if owner holds the owner
// affiliation on it.
func (s *Storage) GetRoom(ctx context.Context, owner *User, name string, opts ...StorageOption) (*Room, error) {
	if owner == nil {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingRoom
	}

	o := resolveStorageOptions(opts...)
	tx := s.idb(o)

	owner, err := s.resolveUser(ctx, tx, owner, false)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return s.repos.Rooms().OwnedByTx(ctx, tx, owner, name)
}

// GetRooms lists the rooms where user is a current owner and/or member.
// Declined memberships are never included.
func (s *Storage) GetRooms(ctx context.Context, user *User, filter RoomFilter, opts ...StorageOption) ([]*Room, error) {
	if user == nil {
		return nil, ErrMissingUser
	}

	o := resolveStorageOptions(opts...)
	tx := s.idb(o)

	user, err := s.resolveUser(ctx, tx, user, false)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return []*Room{}, nil
		}
		return nil, err
	}

	return s.repos.Rooms().ListForUserTx(ctx, tx, user, roomAffiliations(filter), currentMembershipStates)
}

// AddMember adds user to room as an accepted participant without an
// invitation step.
func (s *Storage) AddMember(ctx context.Context, room *Room, user *User, opts ...StorageOption) (*RoomMember, error) {
	if room == nil {
		return nil, ErrMissingRoom
	}
	if user == nil {
		return nil, ErrMissingUser
	}

	o := resolveStorageOptions(opts...)

	var member *RoomMember
	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		var err error
		if room, err = s.resolveRoom(ctx, tx, room); err != nil {
			return err
		}
		if user, err = s.resolveUser(ctx, tx, user, true); err != nil {
			return err
		}

		_, err = s.repos.RoomMembers().FindTx(ctx, tx, room.ID, user.ID)
		if err == nil {
			return ErrMembershipExists
		}
		if !errors.Is(err, ErrMembershipNotFound) {
			return err
		}

		member, err = s.repos.RoomMembers().CreateTx(ctx, tx, &RoomMember{
			RoomID:      room.ID,
			UserID:      user.ID,
			User:        user,
			Role:        RoleParticipant,
			Affiliation: AffiliationMember,
			State:       StateAccepted,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return member, nil
}

// InviteMember adds invitee to room on behalf of inviter and publishes
// member_invite. An existing membership is returned unchanged. The new
// row is created accepted, not pending.
func (s *Storage) InviteMember(ctx context.Context, room *Room, invitee, inviter *User, reason string, opts ...StorageOption) (*RoomMember, error) {
	if room == nil {
		return nil, ErrMissingRoom
	}
	if invitee == nil || inviter == nil {
		return nil, ErrMissingUser
	}
	if sameUser(invitee, inviter) {
		return nil, ErrSelfInvite
	}

	o := resolveStorageOptions(opts...)

	var (
		member  *RoomMember
		created bool
	)
	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		var err error
		if room, err = s.resolveRoom(ctx, tx, room); err != nil {
			return err
		}
		if invitee, err = s.resolveUser(ctx, tx, invitee, true); err != nil {
			return err
		}
		if inviter, err = s.resolveUser(ctx, tx, inviter, true); err != nil {
			return err
		}

		member, err = s.repos.RoomMembers().FindTx(ctx, tx, room.ID, invitee.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrMembershipNotFound) {
			return err
		}

		// TODO: start invitations as pending once clients can accept them.
		member, err = s.repos.RoomMembers().CreateTx(ctx, tx, &RoomMember{
			RoomID:      room.ID,
			UserID:      invitee.ID,
			User:        invitee,
			Role:        RoleParticipant,
			Affiliation: AffiliationMember,
			State:       StateAccepted,
		})
		if err != nil {
			return err
		}
		created = true

		room, err = s.repos.Rooms().ByNameTx(ctx, tx, room.Name)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, Event{
			Type:    EventMemberInvite,
			Room:    room.Export(),
			Invitee: invitee.Export(),
			Inviter: inviter.Export(),
			Reason:  reason,
		})
	}

	return member, nil
}

// DeclineMembership moves the invitee membership to declined and
// publishes member_declined. A missing user or membership is logged and
// resolves with a nil member. Other persistence failures are returned.
func (s *Storage) DeclineMembership(ctx context.Context, room *Room, invitee *User, opts ...StorageOption) (*RoomMember, error) {
	if room == nil {
		return nil, ErrMissingRoom
	}
	if invitee == nil {
		return nil, ErrMissingUser
	}

	o := resolveStorageOptions(opts...)
	roomName, jid := room.Name, invitee.JID

	var (
		member  *RoomMember
		changed bool
	)
	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		r, err := s.resolveRoom(ctx, tx, room)
		if err != nil {
			return err
		}
		u, err := s.resolveUser(ctx, tx, invitee, false)
		if err != nil {
			return err
		}
		room, invitee = r, u

		member, err = s.repos.RoomMembers().FindTx(ctx, tx, room.ID, invitee.ID)
		if err != nil {
			return err
		}

		from := member.State
		member, err = s.members.Transition(ctx, member, StateDeclined, WithTransitionTx(tx))
		if err != nil {
			return err
		}
		changed = from != StateDeclined
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			s.logger.Info("decline membership skipped",
				"room", roomName,
				"jid", jid,
				"error", err,
			)
			return nil, nil
		}
		return nil, err
	}

	if changed {
		s.publish(ctx, Event{
			Type:    EventMemberDeclined,
			Room:    room.Export(),
			Invitee: invitee.Export(),
		})
	}

	return member, nil
}

// RemoveMember deletes the membership row of user in room.
func (s *Storage) RemoveMember(ctx context.Context, room *Room, user *User, opts ...StorageOption) error {
	if room == nil {
		return ErrMissingRoom
	}
	if user == nil {
		return ErrMissingUser
	}

	o := resolveStorageOptions(opts...)

	return s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		var err error
		if room, err = s.resolveRoom(ctx, tx, room); err != nil {
			return err
		}
		if user, err = s.resolveUser(ctx, tx, user, false); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil
			}
			return err
		}
		return s.repos.RoomMembers().DeleteTx(ctx, tx, room.ID, user.ID)
	})
}

// resolveRoom loads the persistent row for room when only its name is known.
func (s *Storage) resolveRoom(ctx context.Context, tx bun.IDB, room *Room) (*Room, error) {
	if room.ID != uuid.Nil {
		return room, nil
	}
	return s.repos.Rooms().ByNameTx(ctx, tx, room.Name)
}

// resolveUser loads the persistent row for user when only its jid is
// known, creating it when create is set.
func (s *Storage) resolveUser(ctx context.Context, tx bun.IDB, user *User, create bool) (*User, error) {
	if user.ID != uuid.Nil {
		return user, nil
	}
	if create {
		return s.repos.Users().FindOrCreateByJIDTx(ctx, tx, user.JID)
	}
	return s.repos.Users().ByJIDTx(ctx, tx, user.JID)
}

func sameUser(a, b *User) bool {
	if a.ID != uuid.Nil && a.ID == b.ID {
		return true
	}
	return a.JID != "" && strings.EqualFold(a.JID, b.JID)
}
