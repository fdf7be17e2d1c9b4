// Package events decodes the radio station's websocket channel.
//
// Every frame is an Envelope {event, data}. chatStation frames are a tagged union keyed by
// "type"; Decode turns them into one of the ChatEvent variants so consumers can switch
// over a closed set.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names on the station channel
const (
	EventChatStation  = "chatStation"
	EventStationInfo  = "stationInfo"
	EventCurrentTrack = "currentTrack"
	EventLoadChat     = "loadChat"
	EventJoinChat     = "joinChat"
	EventJoinStation  = "joinStation"
)

var (
	ErrUnknownEvent    = errors.New("unknown station event")
	ErrUnknownChatType = errors.New("unknown chat event type")
)

// Envelope is one websocket frame
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Artist is the artist of a track. Its ID is the tip target.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is the currently playing track
type Track struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Artist *Artist `json:"artist,omitempty"`
}

// ChatUser is the author of a chat message
type ChatUser struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	IsVerified bool   `json:"is_verified,omitempty"`
}

// ChatMessage is one line of the station chat
type ChatMessage struct {
	ID        string   `json:"id"`
	User      ChatUser `json:"user"`
	Content   string   `json:"content"`
	Timestamp int64    `json:"timestamp"`
	InReplyTo string   `json:"in_reply_to,omitempty"`
}

// Event is a decoded station frame: StationInfo or one of the chat variants
type Event interface {
	stationEvent()
}

// StationInfo carries the playing track for stationInfo and currentTrack frames
type StationInfo struct {
	CurrentTrack *Track `json:"currentTrack"`
}

// ChatEvent is the closed set of chatStation payloads
type ChatEvent interface {
	Event
	chatEvent()
}

// LoadChat replaces the chat history
type LoadChat struct {
	ChatHistory []ChatMessage `json:"chatHistory"`
}

// Chat appends one message
type Chat struct {
	ChatMessage ChatMessage `json:"chatMessage"`
}

// UserProfile is the signed-in listener's chat profile
type UserProfile struct {
	UserInfo ChatUser `json:"userInfo"`
}

// OnlineUsers lists who is in the chat
type OnlineUsers struct {
	Users []ChatUser `json:"users"`
}

// Notice is an error, system or invalidResponse message.
// BlockTime, when set, is the unix millis until which the listener may not post.
type Notice struct {
	Kind      string `json:"type"`
	Message   string `json:"message"`
	BlockTime int64  `json:"blockTime,omitempty"`
}

func (StationInfo) stationEvent() {}
func (LoadChat) stationEvent()    {}
func (Chat) stationEvent()        {}
func (UserProfile) stationEvent() {}
func (OnlineUsers) stationEvent() {}
func (Notice) stationEvent()      {}

func (LoadChat) chatEvent()    {}
func (Chat) chatEvent()        {}
func (UserProfile) chatEvent() {}
func (OnlineUsers) chatEvent() {}
func (Notice) chatEvent()      {}

// Decode turns an envelope into its typed event
func Decode(env Envelope) (Event, error) {
	switch env.Event {
	case EventStationInfo, EventCurrentTrack:
		var info StationInfo
		if err := unmarshal(env.Data, &info); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", env.Event, err)
		}
		return info, nil
	case EventChatStation:
		return decodeChat(env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func decodeChat(data json.RawMessage) (ChatEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode chatStation: %w", err)
	}

	var ev ChatEvent
	switch head.Type {
	case "loadChat":
		var v LoadChat
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		ev = v
	case "chat":
		var v Chat
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		ev = v
	case "userProfile":
		var v UserProfile
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		ev = v
	case "onlineUsers":
		var v OnlineUsers
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		ev = v
	case "error", "system", "invalidResponse":
		var v Notice
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		ev = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChatType, head.Type)
	}
	return ev, nil
}

func unmarshal(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return errors.New("empty data")
	}
	return json.Unmarshal(data, out)
}

// TipTarget returns the artist id of the playing track, or "" when unknown
func (s StationInfo) TipTarget() string {
	if s.CurrentTrack == nil || s.CurrentTrack.Artist == nil {
		return ""
	}
	return s.CurrentTrack.Artist.ID
}
