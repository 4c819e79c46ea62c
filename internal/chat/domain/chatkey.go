package domain

import (
	"strings"

	"learning_chat_service/pkg/apperr"
)

// KeySeparator 不允許出現在 user id 中，否則 key 無法保證唯一
const KeySeparator = "_"

// ResolveConversationKey 由兩個參與者 id 導出唯一的 conversation key。
// 結果與參數順序無關：排序後以 KeySeparator 連接。
func ResolveConversationKey(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", apperr.InvalidArg("participant id must not be empty")
	}
	if a == b {
		return "", apperr.InvalidArg("self conversation is not supported")
	}
	if strings.Contains(a, KeySeparator) || strings.Contains(b, KeySeparator) {
		return "", apperr.InvalidArg("participant id must not contain " + KeySeparator)
	}

	if a > b {
		a, b = b, a
	}
	return a + KeySeparator + b, nil
}
