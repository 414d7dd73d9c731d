package mongoimpl

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"PulseProject/service/chat"
	"PulseProject/tools/errs"
)

const (
	collMessages = "messages"
	collMembers  = "channel_members"
)

// messageDoc is the persisted message shape. The provisional id assigned at
// fan-out time is kept as-is; clients never learn a second id.
type messageDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ProvisionalID string             `bson:"provisional_id"`
	ChannelID     string             `bson:"channel_id"`
	SenderID      string             `bson:"sender_id"`
	Text          string             `bson:"text"`
	CreatedAtMS   int64              `bson:"created_at_ms"`
	StoredAt      time.Time          `bson:"stored_at"`
}

type memberDoc struct {
	ChannelID string `bson:"channel_id"`
	UserID    string `bson:"user_id"`
}

// MongoDurable implements chat.DurableStore on top of the messages and
// channel_members collections.
type MongoDurable struct {
	db *mongo.Database
}

func NewMongoDurable(db *mongo.Database) *MongoDurable {
	return &MongoDurable{db: db}
}

// EnsureIndexes creates the lookup indexes. Idempotent; call at startup.
func (s *MongoDurable) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collMessages).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "created_at_ms", Value: 1}}},
		{Keys: bson.D{{Key: "provisional_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return errs.WrapMsg(err, "create message indexes")
	}
	_, err = s.db.Collection(collMembers).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true)},
	})
	return errs.WrapMsg(err, "create member indexes")
}

// IsChannelNewlyActive is true while the channel has no persisted message,
// i.e. the message currently in flight is its first.
func (s *MongoDurable) IsChannelNewlyActive(ctx context.Context, channelID string) (bool, error) {
	n, err := s.db.Collection(collMessages).CountDocuments(ctx,
		bson.M{"channel_id": channelID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, errs.WrapMsg(err, "count channel messages")
	}
	return n == 0, nil
}

func (s *MongoDurable) Persist(ctx context.Context, m *chat.Message) error {
	doc := messageDoc{
		ProvisionalID: m.ProvisionalID,
		ChannelID:     m.ChannelID,
		SenderID:      m.SenderID,
		Text:          m.Text,
		CreatedAtMS:   m.CreatedAtMS,
		StoredAt:      time.Now(),
	}
	_, err := s.db.Collection(collMessages).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		// same provisional id persisted twice: first write already won
		return nil
	}
	return errs.WrapMsg(err, "insert message")
}

func (s *MongoDurable) DurableMembersOf(ctx context.Context, channelID string) ([]string, error) {
	cur, err := s.db.Collection(collMembers).Find(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return nil, errs.WrapMsg(err, "find channel members")
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var d memberDoc
		if err := cur.Decode(&d); err != nil {
			return nil, errs.WrapMsg(err, "decode member")
		}
		out = append(out, d.UserID)
	}
	return out, errs.Wrap(cur.Err())
}

// AddMember enrolls a user in a channel's durable membership. Duplicate
// enrollment is a no-op.
func (s *MongoDurable) AddMember(ctx context.Context, channelID, userID string) error {
	_, err := s.db.Collection(collMembers).UpdateOne(ctx,
		bson.M{"channel_id": channelID, "user_id": userID},
		bson.M{"$setOnInsert": memberDoc{ChannelID: channelID, UserID: userID}},
		options.Update().SetUpsert(true))
	return errs.WrapMsg(err, "add member")
}
