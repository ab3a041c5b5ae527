package server

import (
	"time"

	"moonchat/composer"
	"moonchat/domain/chat"
)

// Wire frames exchanged with a connected client. Inbound frames are
// validated before dispatch; outbound frames mirror the composer and
// fanout states the UI needs.

type InboundFrame struct {
	Type string `json:"type" validate:"required,oneof=draft send"`
	Text string `json:"text" validate:"max=4096"`
}

type DraftStateFrame struct {
	Type    string `json:"type"`
	State   string `json:"state"`
	CanSend bool   `json:"can_send"`
	Reason  string `json:"reason,omitempty"`
}

type SendResultFrame struct {
	Type      string `json:"type"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// RoadblockFrame is the persistent, non-dismissable blocking state:
// either the viewer is not signed in, or send-time moderation is
// unreachable and sending is disabled.
type RoadblockFrame struct {
	Type  string `json:"type"`
	Mode  string `json:"mode"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

type ProfileBody struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type MessageFrame struct {
	Type      string      `json:"type"`
	ID        string      `json:"id"`
	AuthorID  string      `json:"author_id"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
	Profile   ProfileBody `json:"profile"`
}

const (
	frameDraftState = "draft_state"
	frameSendResult = "send_result"
	frameRoadblock  = "roadblock"
	frameMessage    = "message"

	roadblockNotSignedIn = "not-signed-in"
	roadblockModeration  = "moderation-unavailable"
)

func newDraftStateFrame(update composer.DraftUpdate) DraftStateFrame {
	return DraftStateFrame{
		Type:    frameDraftState,
		State:   string(update.State),
		CanSend: update.CanSend,
		Reason:  update.Reason,
	}
}

func newMessageFrame(message chat.Message, profile chat.Profile) MessageFrame {
	return MessageFrame{
		Type:      frameMessage,
		ID:        message.ID.String(),
		AuthorID:  message.AuthorID,
		Body:      message.Body,
		CreatedAt: message.CreatedAt,
		Profile: ProfileBody{
			Username:  profile.Username,
			AvatarURL: profile.AvatarURL,
		},
	}
}

func newModerationRoadblock() RoadblockFrame {
	return RoadblockFrame{
		Type:  frameRoadblock,
		Mode:  roadblockModeration,
		Line1: "We couldn't connect to our profanity checker.",
		Line2: "You are unable to send messages right now.",
	}
}

func newSignInRoadblock() RoadblockFrame {
	return RoadblockFrame{
		Type:  frameRoadblock,
		Mode:  roadblockNotSignedIn,
		Line1: "You must be signed in to use Moon Chat.",
		Line2: "Sign in from the app to continue.",
	}
}
