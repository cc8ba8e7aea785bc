// Package protocol defines the obs-websocket 4.x JSON messages.
package protocol

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Request types used by the OBS service.
const (
	GetAuthRequired     = "GetAuthRequired"
	Authenticate        = "Authenticate"
	GetSceneList        = "GetSceneList"
	GetCurrentScene     = "GetCurrentScene"
	SetCurrentScene     = "SetCurrentScene"
	GetStreamingStatus  = "GetStreamingStatus"
	StartStreaming      = "StartStreaming"
	StopStreaming       = "StopStreaming"
	StartStopStreaming  = "StartStopStreaming"
	StartRecording      = "StartRecording"
	StopRecording       = "StopRecording"
	StartStopRecording  = "StartStopRecording"
	GetSourcesList      = "GetSourcesList"
	GetMediaSourcesList = "GetMediaSourcesList"
	GetMediaState       = "GetMediaState"
	GetMediaTime        = "GetMediaTime"
	GetMediaDuration    = "GetMediaDuration"
	PlayPauseMedia      = "PlayPauseMedia"
	StopMedia           = "StopMedia"
	SetMediaTime        = "SetMediaTime"
	NextMedia           = "NextMedia"
	PreviousMedia       = "PreviousMedia"
)

// Event types forwarded to the event feed.
const (
	EventSwitchScenes     = "SwitchScenes"
	EventStreamStarted    = "StreamStarted"
	EventStreamStopped    = "StreamStopped"
	EventRecordingStarted = "RecordingStarted"
	EventRecordingStopped = "RecordingStopped"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Fields holds request arguments or response/event payload fields.
type Fields map[string]any

// Request is sent by the client. Fields are flattened next to the
// request-type and message-id keys.
type Request struct {
	Type   string
	ID     string
	Fields Fields
}

// MarshalJSON flattens the request into one JSON object.
func (r Request) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["request-type"] = r.Type
	out["message-id"] = r.ID
	return json.Marshal(out)
}

// Envelope is the common header of every incoming message. A message
// with UpdateType set is an event; otherwise it answers MessageID.
type Envelope struct {
	MessageID  string `json:"message-id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	UpdateType string `json:"update-type"`
}

// IsEvent reports whether the message is an unsolicited event.
func (e Envelope) IsEvent() bool { return e.UpdateType != "" }

// Response is a decoded reply, with the raw message kept for typed decoding.
type Response struct {
	Envelope
	Raw json.RawMessage
}

// Decode unmarshals the full response into v.
func (r Response) Decode(v any) error {
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Event is an unsolicited update from the server.
type Event struct {
	Type   string
	Fields Fields
}

// ParseMessage splits an incoming frame into its envelope and raw body.
func ParseMessage(data []byte) (Response, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Response{}, fmt.Errorf("invalid message: %w", err)
	}
	return Response{Envelope: env, Raw: json.RawMessage(data)}, nil
}

// ParseEvent decodes an event frame.
func ParseEvent(r Response) (Event, error) {
	var fields Fields
	if err := r.Decode(&fields); err != nil {
		return Event{}, err
	}
	delete(fields, "update-type")
	return Event{Type: r.UpdateType, Fields: fields}, nil
}

// AuthInfo is the GetAuthRequired response.
type AuthInfo struct {
	AuthRequired bool   `json:"authRequired"`
	Challenge    string `json:"challenge"`
	Salt         string `json:"salt"`
}

// AuthResponse computes the Authenticate "auth" field:
// base64(sha256(base64(sha256(password+salt)) + challenge)).
func AuthResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

// Scene is one entry of GetSceneList.
type Scene struct {
	Name string `json:"name"`
}

// SceneList is the GetSceneList response.
type SceneList struct {
	CurrentScene string  `json:"current-scene"`
	Scenes       []Scene `json:"scenes"`
}

// CurrentScene is the GetCurrentScene response.
type CurrentScene struct {
	Name string `json:"name"`
}

// StreamingStatus is the GetStreamingStatus response.
type StreamingStatus struct {
	Streaming       bool   `json:"streaming"`
	Recording       bool   `json:"recording"`
	RecordingPaused bool   `json:"recording-paused"`
	PreviewOnly     bool   `json:"preview-only"`
	StreamTimecode  string `json:"stream-timecode,omitempty"`
	RecTimecode     string `json:"rec-timecode,omitempty"`
}

// Source is one entry of GetSourcesList.
type Source struct {
	Name   string `json:"name"`
	TypeID string `json:"typeId"`
	Type   string `json:"type"`
}

// SourcesList is the GetSourcesList response.
type SourcesList struct {
	Sources []Source `json:"sources"`
}

// MediaSource is one entry of GetMediaSourcesList.
type MediaSource struct {
	SourceName string `json:"sourceName"`
	SourceKind string `json:"sourceKind"`
	MediaState string `json:"mediaState"`
}

// MediaSourcesList is the GetMediaSourcesList response.
type MediaSourcesList struct {
	MediaSources []MediaSource `json:"mediaSources"`
}

// MediaState is the GetMediaState response.
type MediaState struct {
	MediaState string `json:"mediaState"`
}

// MediaTime is the GetMediaTime response, in milliseconds.
type MediaTime struct {
	Timestamp int64 `json:"timestamp"`
}

// MediaDuration is the GetMediaDuration response, in milliseconds.
type MediaDuration struct {
	MediaDuration int64 `json:"mediaDuration"`
}
