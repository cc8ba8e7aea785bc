package obs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hlemont/stream-automate/internal/alias"
	"github.com/hlemont/stream-automate/internal/apperr"
	"github.com/hlemont/stream-automate/internal/logging"
	"github.com/hlemont/stream-automate/internal/protocol"
)

// Caller sends one control-channel request. *Guard implements it.
type Caller interface {
	Call(ctx context.Context, requestType string, fields protocol.Fields) (protocol.Response, error)
}

// knownConditions maps upstream error texts to taxonomy errors.
var knownConditions = map[string]func(msg string) error{
	"requested scene does not exist": func(msg string) error { return apperr.NotFound("%s", msg) },
}

// Action is a start/stop/toggle request for streaming or recording.
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionToggle Action = "toggle"
)

var streamRequests = map[Action]string{
	ActionStart:  protocol.StartStreaming,
	ActionStop:   protocol.StopStreaming,
	ActionToggle: protocol.StartStopStreaming,
}

var recordRequests = map[Action]string{
	ActionStart:  protocol.StartRecording,
	ActionStop:   protocol.StopRecording,
	ActionToggle: protocol.StartStopRecording,
}

// MediaAction controls a media source.
type MediaAction string

const (
	MediaPlay   MediaAction = "play"
	MediaPause  MediaAction = "pause"
	MediaToggle MediaAction = "toggle"
	MediaStop   MediaAction = "stop"
	MediaSeek   MediaAction = "seek"
	MediaNext   MediaAction = "next"
	MediaPrev   MediaAction = "prev"
)

var mediaRequests = map[MediaAction]string{
	MediaPlay:   protocol.PlayPauseMedia,
	MediaPause:  protocol.PlayPauseMedia,
	MediaToggle: protocol.PlayPauseMedia,
	MediaStop:   protocol.StopMedia,
	MediaSeek:   protocol.SetMediaTime,
	MediaNext:   protocol.NextMedia,
	MediaPrev:   protocol.PreviousMedia,
}

// RecordingStatus is the recording part of the streaming status.
type RecordingStatus struct {
	Recording bool   `json:"recording"`
	Paused    bool   `json:"paused"`
	Timecode  string `json:"timecode,omitempty"`
}

// MediaStatus describes one media source.
type MediaStatus struct {
	State    string `json:"state"`
	Time     int64  `json:"time"`
	Duration int64  `json:"duration"`
}

// Service maps OBS operations onto control-channel requests.
type Service struct {
	caller  Caller
	aliases *alias.Table
	timeout time.Duration
	notify  func(string)
	logger  *slog.Logger
}

// NewService creates an OBS service. timeout bounds each request.
func NewService(caller Caller, aliases *alias.Table, timeout time.Duration, notify func(string), logger *slog.Logger) *Service {
	if notify == nil {
		notify = func(string) {}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		caller:  caller,
		aliases: aliases,
		timeout: timeout,
		notify:  notify,
		logger:  logger.With("component", "obs"),
	}
}

func (s *Service) call(ctx context.Context, requestType string, fields protocol.Fields) (protocol.Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.caller.Call(ctx, requestType, fields)
	if err != nil {
		s.logger.Warn("request failed", "request", requestType, "error", err)
		return resp, upstreamError(err)
	}
	return resp, nil
}

func (s *Service) decode(ctx context.Context, requestType string, fields protocol.Fields, v any) error {
	resp, err := s.call(ctx, requestType, fields)
	if err != nil {
		return err
	}
	if err := resp.Decode(v); err != nil {
		return apperr.Upstream(err)
	}
	return nil
}

func upstreamError(err error) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if mapped, ok := knownConditions[reqErr.Message]; ok {
			return mapped(reqErr.Message)
		}
	}
	return apperr.Upstream(err)
}

// Scenes lists scene names with aliases applied.
func (s *Service) Scenes(ctx context.Context) ([]string, error) {
	var list protocol.SceneList
	if err := s.decode(ctx, protocol.GetSceneList, nil, &list); err != nil {
		return nil, err
	}
	names := make([]string, len(list.Scenes))
	for i, scene := range list.Scenes {
		names[i] = s.aliases.Reverse(scene.Name)
	}
	s.logger.Debug("scene list", "count", len(names))
	return names, nil
}

// CurrentScene returns the aliased name of the program scene.
func (s *Service) CurrentScene(ctx context.Context) (string, error) {
	var cur protocol.CurrentScene
	if err := s.decode(ctx, protocol.GetCurrentScene, nil, &cur); err != nil {
		return "", err
	}
	return s.aliases.Reverse(cur.Name), nil
}

// SetCurrentScene switches to the scene named or aliased by name.
func (s *Service) SetCurrentScene(ctx context.Context, name string) error {
	scene := s.aliases.Apply(name)
	if _, err := s.call(ctx, protocol.SetCurrentScene, protocol.Fields{"scene-name": scene}); err != nil {
		return err
	}
	s.notify("Current scene successfully set to: " + scene)
	return nil
}

// StreamingStatus returns the streaming and recording flags.
func (s *Service) StreamingStatus(ctx context.Context) (protocol.StreamingStatus, error) {
	var status protocol.StreamingStatus
	err := s.decode(ctx, protocol.GetStreamingStatus, nil, &status)
	return status, err
}

// RecordingStatus returns the recording part of the streaming status.
func (s *Service) RecordingStatus(ctx context.Context) (RecordingStatus, error) {
	status, err := s.StreamingStatus(ctx)
	if err != nil {
		return RecordingStatus{}, err
	}
	return RecordingStatus{
		Recording: status.Recording,
		Paused:    status.RecordingPaused,
		Timecode:  status.RecTimecode,
	}, nil
}

// Stream starts, stops or toggles streaming.
func (s *Service) Stream(ctx context.Context, action Action) error {
	return s.output(ctx, "Stream", streamRequests, action)
}

// Record starts, stops or toggles recording.
func (s *Service) Record(ctx context.Context, action Action) error {
	return s.output(ctx, "Record", recordRequests, action)
}

func (s *Service) output(ctx context.Context, label string, requests map[Action]string, action Action) error {
	requestType, ok := requests[action]
	if !ok {
		return apperr.Malformed(apperr.ContextBodyContent, "unknown action: '%s'", action)
	}
	if _, err := s.call(ctx, requestType, nil); err != nil {
		return err
	}
	s.notify(fmt.Sprintf("%s %s", label, action))
	return nil
}

// Sources lists all sources, filtered by type when typ is not empty.
func (s *Service) Sources(ctx context.Context, typ string) ([]protocol.Source, error) {
	var list protocol.SourcesList
	if err := s.decode(ctx, protocol.GetSourcesList, nil, &list); err != nil {
		return nil, err
	}
	sources := make([]protocol.Source, 0, len(list.Sources))
	for _, src := range list.Sources {
		if typ == "" || src.Type == typ {
			sources = append(sources, src)
		}
	}
	return sources, nil
}

// MediaSources lists media sources.
func (s *Service) MediaSources(ctx context.Context) ([]protocol.MediaSource, error) {
	var list protocol.MediaSourcesList
	if err := s.decode(ctx, protocol.GetMediaSourcesList, nil, &list); err != nil {
		return nil, err
	}
	if list.MediaSources == nil {
		list.MediaSources = []protocol.MediaSource{}
	}
	return list.MediaSources, nil
}

// Media returns the state, cursor and duration of a media source.
func (s *Service) Media(ctx context.Context, source string) (MediaStatus, error) {
	fields := protocol.Fields{"sourceName": source}

	var state protocol.MediaState
	if err := s.decode(ctx, protocol.GetMediaState, fields, &state); err != nil {
		return MediaStatus{}, err
	}
	var cursor protocol.MediaTime
	if err := s.decode(ctx, protocol.GetMediaTime, fields, &cursor); err != nil {
		return MediaStatus{}, err
	}
	var duration protocol.MediaDuration
	if err := s.decode(ctx, protocol.GetMediaDuration, fields, &duration); err != nil {
		return MediaStatus{}, err
	}
	return MediaStatus{
		State:    state.MediaState,
		Time:     cursor.Timestamp,
		Duration: duration.MediaDuration,
	}, nil
}

// ControlMedia applies action to a media source. seek requires a
// timestamp in milliseconds.
func (s *Service) ControlMedia(ctx context.Context, source string, action MediaAction, timestamp *int64) error {
	requestType, ok := mediaRequests[action]
	if !ok {
		return apperr.Malformed(apperr.ContextBodyContent, "unknown action: '%s'", action)
	}
	fields := protocol.Fields{"sourceName": source}
	switch action {
	case MediaSeek:
		if timestamp == nil {
			return apperr.Malformed(apperr.ContextBodyFormat, "missing request parameters: 'timestamp'")
		}
		fields["timestamp"] = *timestamp
	case MediaPlay:
		fields["playPause"] = false
	case MediaPause:
		fields["playPause"] = true
	}
	if _, err := s.call(ctx, requestType, fields); err != nil {
		return err
	}
	s.notify(fmt.Sprintf("Media %s: %s", action, source))
	return nil
}

// TranslateEvent turns an upstream event into a notice, with scene
// names aliased. It returns false for events that are not forwarded.
func (s *Service) TranslateEvent(ev protocol.Event) (string, bool) {
	switch ev.Type {
	case protocol.EventSwitchScenes:
		name, _ := ev.Fields["scene-name"].(string)
		return "Scene switched to: " + s.aliases.Reverse(name), true
	case protocol.EventStreamStarted:
		return "Stream started", true
	case protocol.EventStreamStopped:
		return "Stream stopped", true
	case protocol.EventRecordingStarted:
		return "Recording started", true
	case protocol.EventRecordingStopped:
		return "Recording stopped", true
	default:
		return "", false
	}
}
