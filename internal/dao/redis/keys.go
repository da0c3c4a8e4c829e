package redis

import "strconv"

// Key 缓存键，只能通过下面的构造函数生成，保证读写两侧键形一致
type Key string

func (k Key) String() string { return string(k) }

// ActiveMembersKey chat:{chatId}:activeMembers
func ActiveMembersKey(chatID int64) Key {
	return Key("chat:" + strconv.FormatInt(chatID, 10) + ":activeMembers")
}

// MemberKey chatMember:{userId}:{chatId}
func MemberKey(userID, chatID int64) Key {
	return Key("chatMember:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(chatID, 10))
}

// ChatKey chat:{chatId}
func ChatKey(chatID int64) Key {
	return Key("chat:" + strconv.FormatInt(chatID, 10))
}

// ChatKeys 聊天实体、名册以及给定成员的全部键，用于整体失效
func ChatKeys(chatID int64, userIDs ...int64) []Key {
	keys := make([]Key, 0, len(userIDs)+2)
	keys = append(keys, ChatKey(chatID), ActiveMembersKey(chatID))
	for _, uid := range userIDs {
		keys = append(keys, MemberKey(uid, chatID))
	}
	return keys
}
