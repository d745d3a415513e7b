// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/models"
)

const (
	pollCollection      = "polls"
	ballotCollection    = "ballots"
	challengeCollection = "challenges"

	// UpdatePoll retries this many times when a vote lands mid-edit
	maxUpdateAttempts = 5
)

type pollDocument struct {
	ID        string           `bson:"_id"`
	Question  string           `bson:"question"`
	Options   []optionDocument `bson:"options"`
	Version   int64            `bson:"version"`
	CreatedAt time.Time        `bson:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

type optionDocument struct {
	ID    string `bson:"_id"`
	Label string `bson:"option"`
	Votes int64  `bson:"votes"`
}

type ballotDocument struct {
	ID       string    `bson:"_id"`
	PollID   string    `bson:"poll_id"`
	OptionID string    `bson:"option_id"`
	VoterID  string    `bson:"voter_id"`
	CastAt   time.Time `bson:"cast_at"`
}

type challengeDocument struct {
	ID          string     `bson:"_id"`
	PollID      string     `bson:"poll_id"`
	Method      string     `bson:"method"`
	Destination string     `bson:"destination"`
	CodeHash    string     `bson:"code_hash"`
	Attempts    int        `bson:"attempts"`
	ExpiresAt   time.Time  `bson:"expires_at"`
	ConsumedAt  *time.Time `bson:"consumed_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
}

func (d *pollDocument) toModel() *models.Poll {
	p := &models.Poll{
		ID:        d.ID,
		Question:  d.Question,
		Options:   make([]models.Option, len(d.Options)),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for i, o := range d.Options {
		p.Options[i] = models.Option{ID: o.ID, Label: o.Label, Votes: o.Votes}
	}
	return p
}

func optionDocuments(opts []models.Option) []optionDocument {
	docs := make([]optionDocument, len(opts))
	for i, o := range opts {
		docs[i] = optionDocument{ID: o.ID, Label: o.Label, Votes: o.Votes}
	}
	return docs
}

func (d *challengeDocument) toModel() *models.Challenge {
	c := &models.Challenge{
		ID:          d.ID,
		PollID:      d.PollID,
		Method:      d.Method,
		Destination: d.Destination,
		CodeHash:    d.CodeHash,
		Attempts:    d.Attempts,
		ExpiresAt:   d.ExpiresAt.UTC(),
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if d.ConsumedAt != nil {
		t := d.ConsumedAt.UTC()
		c.ConsumedAt = &t
	}
	return c
}

// MongoStore implements Store on MongoDB. Options are embedded in the poll
// document; ballots live in their own collection with a unique
// (poll_id, voter_id) index.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore ensures indexes exist and returns the store.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	_, err := db.Collection(pollCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poll indexes: %w", err)
	}

	_, err = db.Collection(ballotCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "poll_id", Value: 1}, {Key: "voter_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "option_id", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ballot indexes: %w", err)
	}

	_, err = db.Collection(challengeCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "poll_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge indexes: %w", err)
	}

	return &MongoStore{db: db}, nil
}

func (s *MongoStore) CreatePoll(ctx context.Context, question string, labels []string) (*models.Poll, error) {
	pollID, err := auth.GenerateID(16)
	if err != nil {
		return nil, err
	}

	plan, err := PlanOptions(nil, labelsToInputs(labels))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := pollDocument{
		ID:        pollID,
		Question:  question,
		Options:   optionDocuments(plan.Options),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.db.Collection(pollCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert poll: %w", err)
	}

	return doc.toModel(), nil
}

func (s *MongoStore) ListPolls(ctx context.Context) ([]models.Poll, error) {
	cursor, err := s.db.Collection(pollCollection).Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}

	var docs []pollDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode polls: %w", err)
	}

	polls := make([]models.Poll, len(docs))
	for i := range docs {
		polls[i] = *docs[i].toModel()
	}

	return polls, nil
}

func (s *MongoStore) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	doc, err := s.findPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) findPoll(ctx context.Context, id string) (*pollDocument, error) {
	var doc pollDocument
	err := s.db.Collection(pollCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}
	return &doc, nil
}

// UpdatePoll replaces the option array guarded by the document version so a
// vote counted between read and write is never overwritten.
func (s *MongoStore) UpdatePoll(ctx context.Context, id, question string, inputs []models.OptionInput) (*models.Poll, error) {
	for range maxUpdateAttempts {
		current, err := s.findPoll(ctx, id)
		if err != nil {
			return nil, err
		}

		next := *current
		if question != "" {
			next.Question = question
		}

		var removed []string
		if inputs != nil {
			plan, err := PlanOptions(current.toModel().Options, inputs)
			if err != nil {
				return nil, err
			}
			next.Options = optionDocuments(plan.Options)
			removed = plan.Removed
		}
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now().UTC()

		res, err := s.db.Collection(pollCollection).UpdateOne(
			ctx,
			bson.M{"_id": id, "version": current.Version},
			bson.M{"$set": bson.M{
				"question":   next.Question,
				"options":    next.Options,
				"version":    next.Version,
				"updated_at": next.UpdatedAt,
			}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update poll: %w", err)
		}
		if res.MatchedCount == 0 {
			continue
		}

		if len(removed) > 0 {
			_, err = s.db.Collection(ballotCollection).DeleteMany(ctx, bson.M{
				"poll_id":   id,
				"option_id": bson.M{"$in": removed},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to delete ballots: %w", err)
			}
		}

		return next.toModel(), nil
	}

	return nil, ErrConflict
}

func (s *MongoStore) DeletePoll(ctx context.Context, id string) error {
	res, err := s.db.Collection(pollCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrPollNotFound
	}

	if _, err := s.db.Collection(ballotCollection).DeleteMany(ctx, bson.M{"poll_id": id}); err != nil {
		return fmt.Errorf("failed to delete ballots: %w", err)
	}
	if _, err := s.db.Collection(challengeCollection).DeleteMany(ctx, bson.M{"poll_id": id}); err != nil {
		return fmt.Errorf("failed to delete challenges: %w", err)
	}

	return nil
}

func (s *MongoStore) CastVote(ctx context.Context, pollID, optionID, voterID string) (*models.Ballot, error) {
	poll, err := s.findPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if _, ok := poll.toModel().Option(optionID); !ok {
		return nil, ErrOptionNotFound
	}

	ballot := ballotDocument{
		ID:       uuid.NewString(),
		PollID:   pollID,
		OptionID: optionID,
		VoterID:  voterID,
		CastAt:   time.Now().UTC(),
	}

	// The unique index claims the voter's slot before the count moves
	if _, err := s.db.Collection(ballotCollection).InsertOne(ctx, ballot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateVote
		}
		return nil, fmt.Errorf("failed to insert ballot: %w", err)
	}

	res, err := s.db.Collection(pollCollection).UpdateOne(
		ctx,
		bson.M{"_id": pollID, "options._id": optionID},
		bson.M{
			"$inc": bson.M{"options.$.votes": 1, "version": 1},
			"$set": bson.M{"updated_at": ballot.CastAt},
		},
	)
	if err != nil || res.MatchedCount == 0 {
		// Release the slot; the option vanished or the write failed
		if _, delErr := s.db.Collection(ballotCollection).DeleteOne(ctx, bson.M{"_id": ballot.ID}); delErr != nil {
			return nil, errors.Join(err, delErr)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to increment votes: %w", err)
		}
		return nil, ErrOptionNotFound
	}

	return &models.Ballot{
		ID:       ballot.ID,
		PollID:   ballot.PollID,
		OptionID: ballot.OptionID,
		VoterID:  ballot.VoterID,
		CastAt:   ballot.CastAt,
	}, nil
}

func (s *MongoStore) CreateChallenge(ctx context.Context, c *models.Challenge) (*models.Challenge, error) {
	doc := challengeDocument{
		ID:          uuid.NewString(),
		PollID:      c.PollID,
		Method:      c.Method,
		Destination: c.Destination,
		CodeHash:    c.CodeHash,
		ExpiresAt:   c.ExpiresAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := s.db.Collection(challengeCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert challenge: %w", err)
	}

	return doc.toModel(), nil
}

func (s *MongoStore) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var doc challengeDocument
	err := s.db.Collection(challengeCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ClaimChallengeAttempt(ctx context.Context, id string, maxAttempts int) (int, error) {
	var doc challengeDocument
	err := s.db.Collection(challengeCollection).FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":         id,
			"consumed_at": bson.M{"$exists": false},
			"attempts":    bson.M{"$lt": maxAttempts},
		},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c, err := s.GetChallenge(ctx, id)
		if err != nil {
			return 0, err
		}
		if c.ConsumedAt != nil {
			return 0, ErrChallengeConsumed
		}
		return 0, ErrAttemptsExhausted
	}
	if err != nil {
		return 0, fmt.Errorf("failed to claim attempt: %w", err)
	}
	return doc.Attempts, nil
}

func (s *MongoStore) ConsumeChallenge(ctx context.Context, id string) error {
	res, err := s.db.Collection(challengeCollection).UpdateOne(
		ctx,
		bson.M{"_id": id, "consumed_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"consumed_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}

	if res.MatchedCount == 0 {
		if _, err := s.GetChallenge(ctx, id); err != nil {
			return err
		}
		return ErrChallengeConsumed
	}

	return nil
}

func (s *MongoStore) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.Collection(challengeCollection).DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": now.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	return res.DeletedCount, nil
}
