package radiowave

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ChannelFilter selects the affiliations GetChannels matches.
type ChannelFilter = string

const (
	ChannelsOwned     ChannelFilter = "owner"
	ChannelsMember    ChannelFilter = "member"
	ChannelsPublisher ChannelFilter = "publisher"
	ChannelsAll       ChannelFilter = "all"
)

func channelAffiliations(filter ChannelFilter) []Affiliation {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case ChannelsOwned:
		return []Affiliation{AffiliationOwner}
	case ChannelsMember:
		return []Affiliation{AffiliationMember}
	case ChannelsPublisher:
		return []Affiliation{AffiliationPublisher}
	default:
		return []Affiliation{AffiliationOwner, AffiliationMember, AffiliationPublisher}
	}
}

// FindChannel returns the channel called name with its subscribers loaded.
func (s *Storage) FindChannel(ctx context.Context, name string, opts ...StorageOption) (*Channel, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingChannel
	}
	o := resolveStorageOptions(opts...)
	return s.repos.Channels().ByNameTx(ctx, s.idb(o), name)
}

// FindOrCreateChannel returns the channel called name, creating it with
// owner as its first subscriber when it does not exist.
func (s *Storage) FindOrCreateChannel(ctx context.Context, owner *User, name string, opts ...StorageOption) (*Channel, error) {
	if owner == nil {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingChannel
	}

	channel, err := s.FindChannel(ctx, name, opts...)
	if err == nil {
		return channel, nil
	}

	if !errors.Is(err, ErrChannelNotFound) {
		return nil, err
	}

	return s.AddChannel(ctx, owner, name, opts...)
}

// AddChannel creates the channel and the owner subscription as one unit.
func (s *Storage) AddChannel(ctx context.Context, owner *User, name string, opts ...StorageOption) (*Channel, error) {
	if owner == nil {
		return nil, ErrMissingUser
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingChannel
	}

	o := resolveStorageOptions(opts...)

	var channel *Channel
	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		u, err := s.resolveUser(ctx, tx, owner, true)
		if err != nil {
			return err
		}

		record := &Channel{Name: name}
		if _, err = s.repos.Channels().CreateTx(ctx, tx, record); err != nil {
			return err
		}

		_, err = s.repos.ChannelSubs().CreateTx(ctx, tx, &ChannelSub{
			ChannelID:   record.ID,
			UserID:      u.ID,
			Affiliation: AffiliationOwner,
			SubState:    SubStateMember,
		})
		if err != nil {
			return err
		}

		channel, err = s.repos.Channels().ByNameTx(ctx, tx, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("channel created", "channel", channel.Name, "owner", owner.JID)
	return channel, nil
}

// DelChannel removes the subscription rows and then the channel.
func (s *Storage) DelChannel(ctx context.Context, channel *Channel, opts ...StorageOption) error {
	if channel == nil {
		return ErrMissingChannel
	}

	o := resolveStorageOptions(opts...)

	return s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		c, err := s.resolveChannel(ctx, tx, channel)
		if err != nil {
			return err
		}

		if _, err = s.repos.ChannelSubs().DeleteByChannelTx(ctx, tx, c.ID); err != nil {
			return err
		}

		return s.repos.Channels().RemoveTx(ctx, tx, c)
	})
}

// GetChannel returns the channel called name only if owner holds the
// owner affiliation on it.
func (s *Storage) GetChannel(ctx context.Context, owner *User, name string, opts ...StorageOption) (*Channel, error) {
	if owner == nil {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingChannel
	}

	o := resolveStorageOptions(opts...)
	tx := s.idb(o)

	u, err := s.resolveUser(ctx, tx, owner, false)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}

	return s.repos.Channels().OwnedByTx(ctx, tx, u, name)
}

// GetChannels lists the channels where user holds one of the
// affiliations selected by filter.
func (s *Storage) GetChannels(ctx context.Context, user *User, filter ChannelFilter, opts ...StorageOption) ([]*Channel, error) {
	if user == nil {
		return nil, ErrMissingUser
	}

	o := resolveStorageOptions(opts...)
	tx := s.idb(o)

	u, err := s.resolveUser(ctx, tx, user, false)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return []*Channel{}, nil
		}
		return nil, err
	}

	return s.repos.Channels().ListForUserTx(ctx, tx, u, channelAffiliations(filter))
}

// Subscribe adds user to channel with the given affiliation, member when empty.
func (s *Storage) Subscribe(ctx context.Context, channel *Channel, user *User, affiliation Affiliation, opts ...StorageOption) (*ChannelSub, error) {
	if channel == nil {
		return nil, ErrMissingChannel
	}
	if user == nil {
		return nil, ErrMissingUser
	}
	if affiliation == "" {
		affiliation = AffiliationMember
	}

	o := resolveStorageOptions(opts...)

	var sub *ChannelSub
	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		c, err := s.resolveChannel(ctx, tx, channel)
		if err != nil {
			return err
		}
		u, err := s.resolveUser(ctx, tx, user, true)
		if err != nil {
			return err
		}

		_, err = s.repos.ChannelSubs().FindTx(ctx, tx, c.ID, u.ID)
		if err == nil {
			return ErrMembershipExists
		}
		if !errors.Is(err, ErrMembershipNotFound) {
			return err
		}

		sub, err = s.repos.ChannelSubs().CreateTx(ctx, tx, &ChannelSub{
			ChannelID:   c.ID,
			UserID:      u.ID,
			User:        u,
			Affiliation: affiliation,
			SubState:    SubStateMember,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Unsubscribe deletes the subscription row of user in channel.
func (s *Storage) Unsubscribe(ctx context.Context, channel *Channel, user *User, opts ...StorageOption) error {
	if channel == nil {
		return ErrMissingChannel
	}
	if user == nil {
		return ErrMissingUser
	}

	o := resolveStorageOptions(opts...)

	return s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		c, err := s.resolveChannel(ctx, tx, channel)
		if err != nil {
			return err
		}
		u, err := s.resolveUser(ctx, tx, user, false)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil
			}
			return err
		}
		return s.repos.ChannelSubs().DeleteTx(ctx, tx, c.ID, u.ID)
	})
}

// UpdateSubState changes the approval state of the user subscription.
func (s *Storage) UpdateSubState(ctx context.Context, channel *Channel, user *User, state SubState, opts ...StorageOption) (*ChannelSub, error) {
	if channel == nil {
		return nil, ErrMissingChannel
	}
	if user == nil {
		return nil, ErrMissingUser
	}
	if state == "" {
		return nil, ErrMissingData
	}

	o := resolveStorageOptions(opts...)

	var sub *ChannelSub
	err := s.atomic(ctx, o, func(ctx context.Context, tx bun.IDB) error {
		c, err := s.resolveChannel(ctx, tx, channel)
		if err != nil {
			return err
		}
		u, err := s.resolveUser(ctx, tx, user, false)
		if err != nil {
			return err
		}

		found, err := s.repos.ChannelSubs().FindTx(ctx, tx, c.ID, u.ID)
		if err != nil {
			return err
		}

		sub, err = s.repos.ChannelSubs().UpdateSubStateTx(ctx, tx, found, state)
		return err
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *Storage) resolveChannel(ctx context.Context, tx bun.IDB, channel *Channel) (*Channel, error) {
	if channel.ID != uuid.Nil {
		return channel, nil
	}
	return s.repos.Channels().ByNameTx(ctx, tx, channel.Name)
}
