package messaging

import "time"

type MessageBuilder struct {
	message *Message
}

// NewMessage starts a message of the given category. A nil or typed-nil
// target is normalized to nil, making the message broadcast-eligible.
func NewMessage(source, target Subscriber, category Category) *MessageBuilder {
	if IsNilSubscriber(target) {
		target = nil
	}
	return &MessageBuilder{
		message: &Message{
			ID:        generateID(),
			Source:    source,
			Target:    target,
			Category:  category,
			Timestamp: time.Now(),
		},
	}
}

func NewGeneric(source, target Subscriber) *MessageBuilder {
	return NewMessage(source, target, CategoryGeneric)
}

func NewNotification(source, target Subscriber, text string) *MessageBuilder {
	mb := NewMessage(source, target, CategoryNotification)
	mb.message.Text = text
	return mb
}

func NewRequest(source, target Subscriber, meta any) *MessageBuilder {
	mb := NewMessage(source, target, CategoryRequest)
	mb.message.Meta = meta
	return mb
}

func NewData(source, target Subscriber, meta, data any) *MessageBuilder {
	mb := NewMessage(source, target, CategoryData)
	mb.message.Meta = meta
	mb.message.Data = data
	return mb
}

// NewTerminate builds the message that begins orderly shutdown of a bus.
func NewTerminate(source Subscriber) *MessageBuilder {
	return NewMessage(source, nil, CategoryTerminate)
}

func (mb *MessageBuilder) Headers(headers map[string]string) *MessageBuilder {
	mb.message.Headers = headers
	return mb
}

func (mb *MessageBuilder) Build() *Message {
	return mb.message
}
