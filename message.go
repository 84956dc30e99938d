package clustercache

import "strconv"

// Message is the invalidation broadcast on the topic.
//
//	{CacheName: nil}          every local instance on every node is dropped
//	{CacheName: n, Key: nil}  the local tier of cache n is cleared
//	{CacheName: n, Key: k}    entry k is removed from the local tier of cache n
//
// A nil field and an empty string are different messages; every shipped
// codec keeps the distinction.
type Message struct {
	CacheName *string `json:"cacheName" msgpack:"cacheName" cbor:"cacheName"`
	Key       *string `json:"key" msgpack:"key" cbor:"key"`
}

func KeyMessage(cache, key string) Message {
	return Message{CacheName: &cache, Key: &key}
}

func NamespaceMessage(cache string) Message {
	return Message{CacheName: &cache}
}

func GlobalMessage() Message { return Message{} }

func (m Message) IsGlobal() bool { return m.CacheName == nil }

func (m Message) IsNamespace() bool { return m.CacheName != nil && m.Key == nil }

func (m Message) String() string {
	switch {
	case m.IsGlobal():
		return "*"
	case m.IsNamespace():
		return *m.CacheName + ":*"
	default:
		return *m.CacheName + ":" + strconv.Quote(*m.Key)
	}
}
