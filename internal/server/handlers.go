package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"vocalfx/internal/scale"
	"vocalfx/internal/vocoder"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 10

type healthResponse struct {
	Status   string  `json:"status"`
	Uptime   string  `json:"uptime"`
	Frames   uint64  `json:"frames"`
	Dropped  uint64  `json:"dropped"`
	Bypassed bool    `json:"bypassed"`
	Latency  float64 `json:"latency_ms"`
}

type configResponse struct {
	Mode                    string  `json:"mode"`
	FFTSize                 int     `json:"fft_size"`
	HopSize                 int     `json:"hop_size"`
	SampleRate              float64 `json:"sample_rate"`
	LatencySamples          int     `json:"latency_samples"`
	PitchCorrectionStrength float64 `json:"pitch_correction_strength"`
	TransitionSpeed         float64 `json:"transition_speed"`
	MinFrequency            float64 `json:"min_frequency"`
	MaxFrequency            float64 `json:"max_frequency"`
	Window                  string  `json:"window"`
}

type keyInfo struct {
	Index int      `json:"index"`
	Label string   `json:"label"`
	Notes []string `json:"notes"`
}

type bypassBody struct {
	Enabled bool `json:"enabled"`
}

// settingsPatch carries optional fields for PATCH /api/settings.
type settingsPatch struct {
	Key     *json.RawMessage `json:"key"`
	Note    *int             `json:"note"`
	Octave  *int             `json:"octave"`
	Formant *int             `json:"formant"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats().Snapshot()
	cfg := s.engine.Config()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Frames:   stats.Frames,
		Dropped:  stats.Dropped(),
		Bypassed: s.engine.Bypassed(),
		Latency:  float64(s.engine.Latency()) / cfg.SampleRate * 1000,
	})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	keys := make([]keyInfo, scale.Keys)
	for k := range keys {
		notes := make([]string, scale.Degrees)
		for d := range notes {
			notes[d] = scale.NoteName(k, d+1)
		}
		keys[k] = keyInfo{Index: k, Label: scale.Label(k), Notes: notes}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	writeJSON(w, http.StatusOK, configResponse{
		Mode:                    cfg.Mode.String(),
		FFTSize:                 cfg.FFTSize,
		HopSize:                 cfg.HopSize,
		SampleRate:              cfg.SampleRate,
		LatencySamples:          s.engine.Latency(),
		PitchCorrectionStrength: cfg.PitchCorrectionStrength,
		TransitionSpeed:         cfg.TransitionSpeed,
		MinFrequency:            cfg.MinFrequency,
		MaxFrequency:            cfg.MaxFrequency,
		Window:                  cfg.Window.String(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var next vocoder.Settings
	if err := decodeBody(r, &next); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.applySettings(w, next)
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPatch
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	next := s.engine.Settings()
	if p.Key != nil {
		key, err := parseKey(*p.Key)
		if err != nil {
			writeError(w, http.StatusBadRequest, &vocoder.ConfigError{Field: "key", Value: string(*p.Key), Reason: err.Error()})
			return
		}
		next.Key = key
	}
	if p.Note != nil {
		next.Note = *p.Note
	}
	if p.Octave != nil {
		next.Octave = *p.Octave
	}
	if p.Formant != nil {
		next.Formant = *p.Formant
	}
	s.applySettings(w, next)
}

func (s *Server) applySettings(w http.ResponseWriter, next vocoder.Settings) {
	if err := s.engine.SetSettings(next); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.log.Infof("settings: %s, note %d, octave %d, formant %d",
		scale.Label(next.Key), next.Note, next.Octave, next.Formant)
	writeJSON(w, http.StatusOK, s.engine.Settings())
}

// parseKey accepts a key index or a label such as "A minor".
func parseKey(raw json.RawMessage) (int, error) {
	var idx int
	if err := json.Unmarshal(raw, &idx); err == nil {
		if idx < 0 || idx >= scale.Keys {
			return 0, fmt.Errorf("key index %d out of range", idx)
		}
		return idx, nil
	}
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return 0, errors.New("key must be an index or a label")
	}
	return scale.ParseKey(label)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats().Snapshot())
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	spectrum, _ := strconv.ParseBool(r.URL.Query().Get("spectrum"))
	writeJSON(w, http.StatusOK, s.engine.Telemetry(spectrum))
}

func (s *Server) handleGetBypass(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bypassBody{Enabled: s.engine.Bypassed()})
}

func (s *Server) handlePutBypass(w http.ResponseWriter, r *http.Request) {
	var b bypassBody
	if err := decodeBody(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.engine.SetBypass(b.Enabled)
	s.log.Infof("bypass %v", b.Enabled)
	writeJSON(w, http.StatusOK, b)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var ce *vocoder.ConfigError
	if errors.As(err, &ce) {
		resp.Field = ce.Field
	}
	writeJSON(w, status, resp)
}
