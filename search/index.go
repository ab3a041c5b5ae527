// Package search maintains a full-text index of stored messages and
// serves match queries over their bodies.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"moonchat/domain/chat"
)

type Hit struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Body     string `json:"body"`
}

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Open creates or reopens the message index at path.
func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage upserts one stored message. Indexing is idempotent by
// message id, so duplicate fan-out deliveries are harmless.
func (i *Index) IndexMessage(message chat.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("body", message.Body).StoreValue()).
		AddField(bluge.NewKeywordField("author_id", message.AuthorID).StoreValue()).
		AddField(bluge.NewDateTimeField("created_at", message.CreatedAt))
	return i.writer.Update(doc.ID(), doc)
}

// Search runs a match query against message bodies, best score first.
func (i *Index) Search(ctx context.Context, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewMatchQuery(terms).SetField("body")
	request := bluge.NewTopNSearch(limit, query).WithStandardAggregations()

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "body":
				hit.Body = string(value)
			case "author_id":
				hit.AuthorID = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
