package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"moonchat/domain/chat"
)

type IProfileRepository interface {
	GetProfile(id string) (chat.Profile, bool, error)
	GetProfiles(ids []string) (map[string]chat.Profile, error)
	UpsertProfile(profile chat.Profile) error
}

// ProfileRepository plays the identity store role: a keyed lookup from
// user id to display identity. Profiles are read-only for the chat core;
// only the session bootstrap writes here, mirroring token claims.
type ProfileRepository struct {
	db *badger.DB
}

func NewProfileRepository(db *badger.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type diskProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

func profileKey(id string) []byte {
	return []byte("profile:" + id)
}

func (p *ProfileRepository) UpsertProfile(profile chat.Profile) error {
	data, err := json.Marshal(diskProfile{
		ID:        profile.ID,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(profile.ID), data)
	})
}

// GetProfile returns the stored profile, with found=false on a miss.
// A miss is not an error: callers degrade to a default identity.
func (p *ProfileRepository) GetProfile(id string) (chat.Profile, bool, error) {
	var dp diskProfile
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dp)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Profile{}, false, nil
	}
	if err != nil {
		return chat.Profile{}, false, err
	}
	return chat.Profile{ID: dp.ID, Username: dp.Username, AvatarURL: dp.AvatarURL}, true, nil
}

// GetProfiles is the bulk lookup used for initial page population.
// Missing ids are simply absent from the result map.
func (p *ProfileRepository) GetProfiles(ids []string) (map[string]chat.Profile, error) {
	result := make(map[string]chat.Profile, len(ids))
	err := p.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(profileKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var dp diskProfile
			if err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dp)
			}); err != nil {
				return err
			}
			result[id] = chat.Profile{ID: dp.ID, Username: dp.Username, AvatarURL: dp.AvatarURL}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
