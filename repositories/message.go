package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"moonchat/domain/chat"
)

type IMessageRepository interface {
	Append(ctx context.Context, authorID, body string) (chat.Message, error)
	LoadRecent(room chat.RoomID, limit int) ([]chat.Message, error)
}

type MessageRepository struct {
	db   *badger.DB
	log  *slog.Logger
	room chat.RoomID
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, room: chat.DefaultRoom}
}

// diskMessage is the stored row layout. Rows are immutable once written.
type diskMessage struct {
	ID        string    `json:"id"`
	Room      int       `json:"room"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Append persists a message in BadgerDB, assigning its id and timestamp
// server-side so clients cannot spoof ordering.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m *MessageRepository) Append(_ context.Context, authorID, body string) (chat.Message, error) {
	message := chat.Message{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		Room:      m.room,
	}

	key := fmt.Sprintf("msg:%d:%019d:%s",
		message.Room,
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(toDiskMessage(message))
	if err != nil {
		return chat.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("append message: %w", err)
	}
	return message, nil
}

// LoadRecent retrieves up to limit messages for the room, oldest first,
// using a prefix scan. Thanks to the padded timestamp in the key,
// messages are naturally sorted by time.
func (m *MessageRepository) LoadRecent(room chat.RoomID, limit int) ([]chat.Message, error) {
	var rows [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%d:", room))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(rows) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				rows = append(rows, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		var dm diskMessage
		if err = json.Unmarshal(row, &dm); err != nil {
			return nil, err
		}
		message, err := fromDiskMessage(dm)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// AuthorIDs returns the distinct author ids of the given messages,
// used for the bulk profile fetch on initial page population.
func AuthorIDs(messages []chat.Message) []string {
	return lo.Uniq(lo.Map(messages, func(item chat.Message, _ int) string {
		return item.AuthorID
	}))
}

func toDiskMessage(message chat.Message) diskMessage {
	return diskMessage{
		ID:        message.ID.String(),
		Room:      int(message.Room),
		AuthorID:  message.AuthorID,
		Body:      message.Body,
		CreatedAt: message.CreatedAt,
	}
}

func fromDiskMessage(dm diskMessage) (chat.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:        parsedID,
		AuthorID:  dm.AuthorID,
		Body:      dm.Body,
		CreatedAt: dm.CreatedAt.UTC(),
		Room:      chat.RoomID(dm.Room),
	}, nil
}
