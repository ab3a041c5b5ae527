package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"moonchat/domain/chat"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := Open(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func storedMessage(author, body string) chat.Message {
	return chat.Message{
		ID:        uuid.New(),
		AuthorID:  author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		Room:      chat.DefaultRoom,
	}
}

func TestIndex_SearchFindsBodyTerms(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	message := storedMessage("alice", "the moon is bright tonight")
	req.NoError(index.IndexMessage(message))
	req.NoError(index.IndexMessage(storedMessage("bob", "completely unrelated chatter")))

	hits, err := index.Search(context.Background(), "moon", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(message.ID.String(), hits[0].ID)
	req.Equal("alice", hits[0].AuthorID)
	req.Equal("the moon is bright tonight", hits[0].Body)
}

func TestIndex_DuplicateIndexingIsIdempotent(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	message := storedMessage("alice", "hello moon")
	req.NoError(index.IndexMessage(message))
	req.NoError(index.IndexMessage(message))

	hits, err := index.Search(context.Background(), "moon", 10)
	req.NoError(err)
	req.Len(hits, 1)
}

func TestIndex_NoMatches(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.IndexMessage(storedMessage("alice", "good evening")))

	hits, err := index.Search(context.Background(), "spaceship", 10)
	req.NoError(err)
	req.Empty(hits)
}
