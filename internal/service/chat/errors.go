package chat

import "chat_fanout_server/pkg/errorx"

var (
	ErrChatNotFound   = errorx.New(errorx.CodeNotFound, "chat not found")
	ErrMemberNotFound = errorx.New(errorx.CodeNotFound, "member not found")
	ErrUserNotFound   = errorx.New(errorx.CodeNotFound, "user not found")
	ErrNotAdmin       = errorx.New(errorx.CodeForbidden, "requester is not an admin of the chat")
	ErrNotMember      = errorx.New(errorx.CodeForbidden, "user is not a member of the chat")
	ErrNotGroup       = errorx.New(errorx.CodeInvariantViolation, "operation only allowed on group chats")
	ErrP2PLeave       = errorx.New(errorx.CodeInvariantViolation, "cannot leave a p2p chat, delete it instead")
	ErrLastAdmin      = errorx.New(errorx.CodeInvariantViolation, "cannot leave, assign another admin first")
)
