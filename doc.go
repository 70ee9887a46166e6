// Package radiowave is the identity and membership core of a chat and
// pub/sub server: pluggable authentication strategies, persistent users,
// rooms and channels, and the join rows that bind them.
//
// Authentication:
//   - Strategy is the contract every authentication mechanism implements.
//     Dispatcher keeps strategies in registration order and the first one
//     whose Match accepts the method token runs. Credentials are cleared
//     from AuthOptions before any result, event or log line is produced.
//   - provider/simple and provider/oauth2 ship the PLAIN and X-OAUTH2
//     strategies.
//
// Membership:
//   - Storage composes the repositories exposed by RepositoryManager into
//     the room and channel operations. Creating a room or channel and the
//     owner join row happens in one transaction. Every call accepts
//     WithTx to join a caller managed transaction instead.
//   - RoomMember and ChannelSub are explicit join entities with a composite
//     primary key, so a user holds at most one row per room or channel.
//   - MembershipStateMachine owns the room membership state graph.
//
// Events:
//   - Storage publishes room_create, room_update, room_delete,
//     member_invite and member_declined to an EventSink. EventBus fans
//     them out to in-process subscribers without blocking the publisher.
package radiowave
