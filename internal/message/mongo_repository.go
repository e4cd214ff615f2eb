package message

import (
	"context"
	"fmt"

	"petbuddy-realtime/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository interface using MongoDB
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository creates a new MongoDB message repository
func NewMongoRepository(db *database.MongoDB) *MongoRepository {
	return &MongoRepository{
		collection: db.GetCollection(database.ChatMessagesCollection),
	}
}

// SaveMessage saves a message to MongoDB
func (r *MongoRepository) SaveMessage(ctx context.Context, msg *Message) error {
	if msg == nil || msg.TicketID == "" || msg.Body == "" {
		return ErrInvalidMessage
	}

	var doc MessageDocument
	doc.FromMessage(msg)

	result, err := r.collection.InsertOne(ctx, &doc)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	// Update message with MongoDB ID
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid.Hex()
	}
	return nil
}

// GetHistory retrieves message history for a ticket
func (r *MongoRepository) GetHistory(ctx context.Context, ticketID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	// ดึงข้อความล่าสุดก่อน แล้วค่อยกลับลำดับ
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"ticket_id": ticketID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve message history: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]*Message, 0, limit)
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, doc.ToMessage())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message history: %w", err)
	}

	// Reverse the slice to get chronological order (oldest first)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
