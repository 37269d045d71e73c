package redis

import (
	"fmt"
	"strings"
)

const (
	// KeyPrefix namespaces every key written by tonton
	KeyPrefix = "tonton:"
	// DefaultBookmarkKey holds the serialized bookmark collection
	DefaultBookmarkKey = "tonton:bookmarks"
	// KeyPrefixEvents is the prefix for pub/sub change channels
	KeyPrefixEvents = "tonton:events:"
)

// BlobKey namespaces a caller key unless it already carries the prefix.
func BlobKey(key string) string {
	if strings.HasPrefix(key, KeyPrefix) {
		return key
	}
	return KeyPrefix + key
}

// EventsChannel returns the pub/sub channel for changes to key
func EventsChannel(key string) string {
	return KeyPrefixEvents + BlobKey(key)
}

// ExtractKey extracts the blob key from an events channel name
func ExtractKey(channel string) (string, error) {
	if len(channel) <= len(KeyPrefixEvents) || !strings.HasPrefix(channel, KeyPrefixEvents) {
		return "", fmt.Errorf("invalid events channel: %s", channel)
	}
	return channel[len(KeyPrefixEvents):], nil
}
