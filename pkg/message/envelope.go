package message

import "github.com/google/uuid"

// MethodSend is the default delivery method.
const MethodSend = "send"

// Title is the heading of an attachment, optionally linked.
type Title struct {
	Text string `json:"text,omitempty"`
	Link string `json:"link,omitempty"`
}

// QuickReply is an interactive element rendered as a button by platforms
// that support it.
type QuickReply struct {
	Text    string `json:"text"`
	Payload string `json:"payload,omitempty"`
}

// Attachment is a rich-message payload. Rendering depends on the platform;
// plain-text channels display Fallback.
type Attachment struct {
	Color        string       `json:"color,omitempty"`
	Title        *Title       `json:"title,omitempty"`
	Image        string       `json:"image,omitempty"`
	Fallback     string       `json:"fallback,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
}

// Envelope composes a response before dispatch. It is owned by the dispatch
// cycle until delivery; User and Room may be redirected before then.
type Envelope struct {
	ID          string       `json:"id"`
	Channel     string       `json:"channel"`
	User        User         `json:"user"`
	Room        Room         `json:"room"`
	Method      string       `json:"method,omitempty"`
	Strings     []string     `json:"strings,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// NewEnvelope creates an envelope addressed to the sender and room of msg.
func NewEnvelope(msg Message) *Envelope {
	return &Envelope{
		ID:      uuid.NewString(),
		Channel: msg.Channel,
		User:    msg.User,
		Room:    msg.Room,
	}
}

// Write appends text strings to the envelope.
func (e *Envelope) Write(texts ...string) *Envelope {
	e.Strings = append(e.Strings, texts...)
	return e
}

// Attach appends attachments to the envelope.
func (e *Envelope) Attach(attachments ...Attachment) *Envelope {
	e.Attachments = append(e.Attachments, attachments...)
	return e
}

// Payload returns a builder for interactive elements. Quick replies land on
// the last attachment, which is created when the envelope has none.
func (e *Envelope) Payload() *Payload {
	return &Payload{envelope: e}
}

// Via sets the custom delivery method (e.g. "react").
func (e *Envelope) Via(method string) *Envelope {
	e.Method = method
	return e
}

// DeliveryMethod returns the envelope method, defaulting to MethodSend.
func (e *Envelope) DeliveryMethod() string {
	if e.Method == "" {
		return MethodSend
	}
	return e.Method
}

// IsEmpty reports whether the envelope carries no content.
func (e *Envelope) IsEmpty() bool {
	return len(e.Strings) == 0 && len(e.Attachments) == 0
}

// Text returns the plain-text rendering of the envelope: its strings, then
// the fallback of each attachment, one per line.
func (e *Envelope) Text() string {
	var result string
	add := func(s string) {
		if s == "" {
			return
		}
		if result != "" {
			result += "\n"
		}
		result += s
	}
	for _, s := range e.Strings {
		add(s)
	}
	for _, a := range e.Attachments {
		add(a.Fallback)
	}
	return result
}

// Clone returns a deep copy of the envelope.
func (e *Envelope) Clone() *Envelope {
	cp := *e
	cp.Strings = append([]string(nil), e.Strings...)
	cp.Attachments = make([]Attachment, len(e.Attachments))
	for i, a := range e.Attachments {
		if a.Title != nil {
			t := *a.Title
			a.Title = &t
		}
		a.QuickReplies = append([]QuickReply(nil), a.QuickReplies...)
		cp.Attachments[i] = a
	}
	if len(e.Attachments) == 0 {
		cp.Attachments = nil
	}
	return &cp
}

// Payload adds interactive elements to an envelope.
type Payload struct {
	envelope *Envelope
}

// QuickReply appends a quick reply and returns the builder for chaining.
func (p *Payload) QuickReply(qr QuickReply) *Payload {
	if len(p.envelope.Attachments) == 0 {
		p.envelope.Attachments = append(p.envelope.Attachments, Attachment{})
	}
	last := &p.envelope.Attachments[len(p.envelope.Attachments)-1]
	last.QuickReplies = append(last.QuickReplies, qr)
	return p
}
