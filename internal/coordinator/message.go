package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/backend"
	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// Actions understood by Handle.
const (
	ActionGetCorrections = "getCorrections"
	ActionUpdateSettings = "updateSettings"
	ActionGetSettings    = "getSettings"
	ActionResetSettings  = "resetSettings"
	ActionTestConnection = "testConnection"
	ActionGetStats       = "getStats"
	ActionResetStats     = "resetStats"
	ActionRecordDecision = "recordDecision"
)

var errNoStats = errors.New("stats are not available")

// Request is one inbound message.
type Request struct {
	// ID is echoed in the response when set.
	ID       json.RawMessage      `json:"id,omitempty"`
	Action   string               `json:"action"`
	Text     string               `json:"text,omitempty"`
	Settings *model.SettingsPatch `json:"settings,omitempty"`
	Decision *DecisionRequest     `json:"decision,omitempty"`
}

// DecisionRequest reports an accept or ignore made by a remote presenter.
type DecisionRequest struct {
	Original   string       `json:"original"`
	Suggestion string       `json:"suggestion"`
	Kind       model.Kind   `json:"type"`
	Confidence float64      `json:"confidence"`
	Action     model.Action `json:"action"`
}

// Response is the single reply to a Request.
type Response struct {
	ID          json.RawMessage    `json:"id,omitempty"`
	Success     bool               `json:"success"`
	Error       string             `json:"error,omitempty"`
	ErrorKind   backend.ErrorKind  `json:"errorKind,omitempty"`
	Corrections []model.Correction `json:"corrections,omitzero"`
	Settings    *model.Settings    `json:"settings,omitempty"`
	Stats       *model.Stats       `json:"stats,omitempty"`
}

// Handle serves one request. Failures are reported in the response, never
// returned.
func (s *Session) Handle(ctx context.Context, req Request) Response {
	resp := s.dispatch(ctx, req)
	resp.ID = req.ID
	return resp
}

func (s *Session) dispatch(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionGetCorrections:
		r := s.GetCorrections(ctx, req.Text)
		if r.Err != nil {
			return s.failure(req.Action, r.Err)
		}
		corrections := r.Corrections
		if corrections == nil {
			corrections = []model.Correction{}
		}
		return Response{Success: true, Corrections: corrections}

	case ActionUpdateSettings:
		if req.Settings == nil {
			return Response{Error: "missing settings"}
		}
		if _, err := s.UpdateSettings(ctx, *req.Settings); err != nil {
			return s.failure(req.Action, err)
		}
		return Response{Success: true}

	case ActionGetSettings:
		if err := s.Init(ctx); err != nil {
			return s.failure(req.Action, err)
		}
		current := s.Settings()
		return Response{Success: true, Settings: &current}

	case ActionResetSettings:
		reset, err := s.ResetSettings(ctx)
		if err != nil {
			return s.failure(req.Action, err)
		}
		return Response{Success: true, Settings: &reset}

	case ActionTestConnection:
		var patch model.SettingsPatch
		if req.Settings != nil {
			patch = *req.Settings
		}
		if err := s.TestConnection(ctx, patch); err != nil {
			return s.failure(req.Action, err)
		}
		return Response{Success: true}

	case ActionGetStats:
		if s.stats == nil {
			return s.failure(req.Action, errNoStats)
		}
		stats, err := s.stats.Stats(ctx)
		if err != nil {
			return s.failure(req.Action, err)
		}
		return Response{Success: true, Stats: &stats}

	case ActionResetStats:
		if s.stats == nil {
			return s.failure(req.Action, errNoStats)
		}
		if err := s.stats.ResetStats(ctx); err != nil {
			return s.failure(req.Action, err)
		}
		return Response{Success: true, Stats: &model.Stats{}}

	case ActionRecordDecision:
		if s.stats == nil {
			return s.failure(req.Action, errNoStats)
		}
		if req.Decision == nil {
			return Response{Error: "missing decision"}
		}
		d := req.Decision
		_, err := s.stats.RecordDecision(ctx, model.Decision{
			Original:   d.Original,
			Suggestion: d.Suggestion,
			Kind:       d.Kind,
			Confidence: d.Confidence,
			Action:     d.Action,
			DecidedAt:  time.Now(),
		})
		if err != nil {
			return s.failure(req.Action, err)
		}
		return Response{Success: true}

	default:
		return Response{Error: "unknown action"}
	}
}

func (s *Session) failure(action string, err error) Response {
	kind := backend.KindOf(err)
	if kind == "" {
		s.logger.Warn("request failed", "action", action, "err", err)
	} else {
		s.logger.Debug("request failed", "action", action, "kind", kind, "err", err)
	}
	return Response{Error: errorMessage(err), ErrorKind: kind}
}

func errorMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
