package message

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one chat message in a ticket room.
// Body is stored opaquely; clients may send an already-encrypted payload.
type Message struct {
	ID         string    `json:"id,omitempty"`
	TicketID   string    `json:"ticketId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageDocument represents the MongoDB document structure for chat messages
type MessageDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	TicketID   string             `bson:"ticket_id"`
	SenderID   string             `bson:"sender_id"`
	SenderName string             `bson:"sender_name"`
	Body       string             `bson:"message"`
	Timestamp  time.Time          `bson:"timestamp"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// ToMessage converts MessageDocument to Message
func (doc *MessageDocument) ToMessage() *Message {
	return &Message{
		ID:         doc.ID.Hex(),
		TicketID:   doc.TicketID,
		SenderID:   doc.SenderID,
		SenderName: doc.SenderName,
		Body:       doc.Body,
		Timestamp:  doc.Timestamp,
	}
}

// FromMessage converts Message to MessageDocument
func (doc *MessageDocument) FromMessage(msg *Message) {
	doc.TicketID = msg.TicketID
	doc.SenderID = msg.SenderID
	doc.SenderName = msg.SenderName
	doc.Body = msg.Body
	doc.Timestamp = msg.Timestamp
	doc.CreatedAt = time.Now()

	if msg.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(msg.ID); err == nil {
			doc.ID = oid
		}
	}
}
