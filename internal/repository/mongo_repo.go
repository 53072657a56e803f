package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"unsent/internal/domain"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	petProfilesCollection   = "pet_profiles"
)

type conversationDoc struct {
	ID               string    `bson:"_id"`
	UserID           string    `bson:"user_id"`
	RecipientName    string    `bson:"recipient_name"`
	RecipientType    string    `bson:"recipient_type"`
	RecipientContext string    `bson:"recipient_context"`
	EmotionalScore   int       `bson:"emotional_score"`
	CurrentStage     string    `bson:"current_stage"`
	MessageCount     int       `bson:"message_count"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func toConversationDoc(c domain.Conversation) conversationDoc {
	return conversationDoc{
		ID:               c.ID,
		UserID:           c.UserID,
		RecipientName:    c.RecipientName,
		RecipientType:    c.RecipientType,
		RecipientContext: c.RecipientContext,
		EmotionalScore:   c.EmotionalScore,
		CurrentStage:     string(c.CurrentStage),
		MessageCount:     c.MessageCount,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (d conversationDoc) toDomain() domain.Conversation {
	return domain.Conversation{
		ID:               d.ID,
		UserID:           d.UserID,
		RecipientName:    d.RecipientName,
		RecipientType:    d.RecipientType,
		RecipientContext: d.RecipientContext,
		EmotionalScore:   d.EmotionalScore,
		CurrentStage:     domain.EmotionStage(d.CurrentStage),
		MessageCount:     d.MessageCount,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

type MongoConversationRepository struct {
	collection *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{collection: db.Collection(conversationsCollection)}
}

func (r *MongoConversationRepository) Create(ctx context.Context, c domain.Conversation) error {
	_, err := r.collection.InsertOne(ctx, toConversationDoc(c))
	return err
}

func (r *MongoConversationRepository) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	var doc conversationDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Conversation{}, ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	return doc.toDomain(), nil
}

func (r *MongoConversationRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []conversationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoConversationRepository) Update(ctx context.Context, c domain.Conversation, prevMessageCount int) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": c.ID, "message_count": prevMessageCount}, toConversationDoc(c))
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": c.ID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

type messageDoc struct {
	ID               string                           `bson:"_id"`
	ConversationID   string                           `bson:"conversation_id"`
	UserID           string                           `bson:"user_id"`
	Content          string                           `bson:"content"`
	Role             string                           `bson:"role"`
	TimeSpentSeconds float64                          `bson:"time_spent_seconds"`
	Analysis         *domain.MessageEmotionalAnalysis `bson:"analysis,omitempty"`
	CreatedAt        time.Time                        `bson:"created_at"`
}

type MongoMessageRepository struct {
	collection *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection(messagesCollection)}
}

func (r *MongoMessageRepository) Create(ctx context.Context, m domain.Message) error {
	_, err := r.collection.InsertOne(ctx, messageDoc{
		ID:               m.ID,
		ConversationID:   m.ConversationID,
		UserID:           m.UserID,
		Content:          m.Content,
		Role:             m.Role,
		TimeSpentSeconds: m.TimeSpentSeconds,
		Analysis:         m.Analysis,
		CreatedAt:        m.CreatedAt,
	})
	return err
}

func (r *MongoMessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Message{
			ID:               d.ID,
			ConversationID:   d.ConversationID,
			UserID:           d.UserID,
			Content:          d.Content,
			Role:             d.Role,
			TimeSpentSeconds: d.TimeSpentSeconds,
			Analysis:         d.Analysis,
			CreatedAt:        d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

type petDoc struct {
	UserID    string    `bson:"_id"`
	Name      string    `bson:"name"`
	Species   string    `bson:"species"`
	Breed     string    `bson:"breed"`
	AgeYears  float64   `bson:"age_years"`
	Notes     string    `bson:"notes"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoPetRepository struct {
	collection *mongo.Collection
}

func NewMongoPetRepository(db *mongo.Database) *MongoPetRepository {
	return &MongoPetRepository{collection: db.Collection(petProfilesCollection)}
}

func (r *MongoPetRepository) Upsert(ctx context.Context, pet domain.PetProfile) error {
	doc := petDoc{
		UserID:    pet.UserID,
		Name:      pet.Name,
		Species:   pet.Species,
		Breed:     pet.Breed,
		AgeYears:  pet.AgeYears,
		Notes:     pet.Notes,
		UpdatedAt: pet.UpdatedAt,
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": pet.UserID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoPetRepository) GetByUserID(ctx context.Context, userID string) (domain.PetProfile, error) {
	var doc petDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.PetProfile{}, ErrNotFound
	}
	if err != nil {
		return domain.PetProfile{}, err
	}
	return domain.PetProfile{
		UserID:    doc.UserID,
		Name:      doc.Name,
		Species:   doc.Species,
		Breed:     doc.Breed,
		AgeYears:  doc.AgeYears,
		Notes:     doc.Notes,
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}

// EnsureMongoIndexes crea los indices de consulta por usuario y por conversacion.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(conversationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}
