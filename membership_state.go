package radiowave

import (
	"context"

	"github.com/uptrace/bun"
)

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Member *RoomMember
	From   MembershipState
	To     MembershipState
	Reason string
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

type transitionOptions struct {
	tx          bun.IDB
	reason      string
	force       bool
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

// WithTransitionTx runs the state update on the given transaction.
func WithTransitionTx(tx bun.IDB) TransitionOption {
	return func(opts *transitionOptions) {
		if tx != nil {
			opts.tx = tx
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.reason = reason
	}
}

// WithForceTransition bypasses the transition graph.
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithBeforeTransitionHook adds a hook executed before the state update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the state update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// MembershipStateMachine guards the lifecycle of room membership rows.
type MembershipStateMachine interface {
	Transition(ctx context.Context, member *RoomMember, target MembershipState, opts ...TransitionOption) (*RoomMember, error)
	CanTransition(from, to MembershipState) bool
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*membershipStateMachine)

// WithStateMachineLogger overrides the logger.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *membershipStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewMembershipStateMachine returns the default implementation persisting
// through members. db is used when a transition carries no transaction.
func NewMembershipStateMachine(db bun.IDB, members RoomMembers, opts ...StateMachineOption) MembershipStateMachine {
	sm := &membershipStateMachine{
		db:      db,
		members: members,
		transitions: map[MembershipState]map[MembershipState]struct{}{
			StateNone: {
				StatePending:  {},
				StateAccepted: {},
			},
			StatePending: {
				StateAccepted: {},
				StateDeclined: {},
			},
			StateAccepted: {
				StateDeclined: {},
			},
			StateDeclined: {
				StatePending:  {},
				StateAccepted: {},
			},
		},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type membershipStateMachine struct {
	db          bun.IDB
	members     RoomMembers
	transitions map[MembershipState]map[MembershipState]struct{}
	logger      Logger
}

func (sm *membershipStateMachine) Transition(ctx context.Context, member *RoomMember, target MembershipState, opts ...TransitionOption) (*RoomMember, error) {
	if member == nil {
		return nil, ErrMembershipNotFound
	}

	if target == "" {
		return nil, ErrInvalidTransition
	}

	member.EnsureState()
	from := member.State
	if from == target {
		return member, nil
	}

	options := &transitionOptions{tx: sm.db}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if !options.force && !sm.CanTransition(from, target) {
		sm.logger.Debug("rejected membership transition",
			"room_id", member.RoomID,
			"user_id", member.UserID,
			"from", from,
			"to", target,
		)
		return nil, ErrInvalidTransition
	}

	tc := TransitionContext{
		Member: member,
		From:   from,
		To:     target,
		Reason: options.reason,
	}

	if err := runHooks(ctx, options.beforeHooks, tc); err != nil {
		return nil, err
	}

	updated, err := sm.members.UpdateStateTx(ctx, options.tx, member, target)
	if err != nil {
		return nil, err
	}

	if err := runHooks(ctx, options.afterHooks, tc); err != nil {
		return nil, err
	}

	return updated, nil
}

func (sm *membershipStateMachine) CanTransition(from, to MembershipState) bool {
	if from == to {
		return true
	}
	targets, ok := sm.transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

func runHooks(ctx context.Context, hooks []TransitionHook, tc TransitionContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}
