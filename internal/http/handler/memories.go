package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"relay/internal/memory"
	"relay/internal/session"
)

// MemoryHandler serves one of the two memory mirrors of the caller's session: the
// caller's own memories or the public timeline.
type MemoryHandler struct {
	Sessions
	Timeline bool
}

func (h *MemoryHandler) store(s *session.Session) *memory.Store {
	if h.Timeline {
		return s.Timeline
	}
	return s.Memories
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func parseOptionalDate(v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	t, err := parseDate(*v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	st := h.store(s)
	q := r.URL.Query()

	if q.Get("refresh") == "true" {
		if err := st.Refresh(r.Context()); err != nil {
			writeError(w, h.logger(), err)
			return
		}
	}

	out := st.Memories()
	if q.Get("status") == string(memory.StatusScheduled) {
		var day *time.Time
		if v := strings.TrimSpace(q.Get("day")); v != "" {
			d, err := time.Parse(time.DateOnly, v)
			if err != nil {
				http.Error(w, "invalid day (YYYY-MM-DD)", http.StatusBadRequest)
				return
			}
			day = &d
		}
		out = st.Scheduled(day)
	}
	if out == nil {
		out = []memory.Memory{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":   out,
		"loading": st.Loading(),
	})
}

func (h *MemoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, h.store(s).Stats())
}

type memoryReq struct {
	Recipient     *string  `json:"recipient"`
	Message       *string  `json:"message"`
	Date          *string  `json:"date"`
	ScheduledDate *string  `json:"scheduled_date"`
	ImageURL      *string  `json:"image_url"`
	TemplateID    *string  `json:"template_id"`
	ValueTags     []string `json:"value_tags"`
	IsPublic      *bool    `json:"is_public"`
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memoryReq
	if !decode(w, r, &req) {
		return
	}

	d := memory.Draft{
		ImageURL:   req.ImageURL,
		TemplateID: req.TemplateID,
		ValueTags:  req.ValueTags,
	}
	if req.Recipient != nil {
		d.Recipient = strings.TrimSpace(*req.Recipient)
	}
	if req.Message != nil {
		d.Message = *req.Message
	}
	if req.IsPublic != nil {
		d.IsPublic = *req.IsPublic
	}
	if req.Date != nil {
		t, err := parseDate(*req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		d.Date = t
	}
	sched, err := parseOptionalDate(req.ScheduledDate)
	if err != nil {
		http.Error(w, "invalid scheduled_date", http.StatusBadRequest)
		return
	}
	d.ScheduledDate = sched

	s := h.load(w, r)
	if s == nil {
		return
	}
	m, err := h.store(s).Create(r.Context(), d)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MemoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	var req memoryReq
	var fields map[string]json.RawMessage
	if json.Unmarshal(body, &req) != nil || json.Unmarshal(body, &fields) != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	// an explicit null clears the column, an absent key leaves it alone
	isNull := func(key string) bool {
		v, ok := fields[key]
		return ok && string(v) == "null"
	}

	p := memory.Patch{
		Recipient: req.Recipient,
		Message:   req.Message,
		ImageURL:  req.ImageURL,
		ValueTags: req.ValueTags,
		IsPublic:  req.IsPublic,

		ClearScheduledDate: isNull("scheduled_date"),
		ClearImageURL:      isNull("image_url"),
	}
	if p.Date, err = parseOptionalDate(req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	if p.ScheduledDate, err = parseOptionalDate(req.ScheduledDate); err != nil {
		http.Error(w, "invalid scheduled_date", http.StatusBadRequest)
		return
	}

	s := h.load(w, r)
	if s == nil {
		return
	}
	m, err := h.store(s).Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	if err := h.store(s).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemoryHandler) Like(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	id := chi.URLParam(r, "id")
	st := h.store(s)

	liked, err := st.ToggleLike(r.Context(), id)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	resp := map[string]any{"liked": liked}
	if m, ok := st.Get(id); ok {
		resp["likes_count"] = m.LikesCount
	}
	writeJSON(w, http.StatusOK, resp)
}

type commentReq struct {
	Content string `json:"content"`
}

func (h *MemoryHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req commentReq
	if !decode(w, r, &req) {
		return
	}
	s := h.load(w, r)
	if s == nil {
		return
	}
	c, err := h.store(s).AddComment(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type stampReq struct {
	StampID string `json:"stamp_id"`
}

func (h *MemoryHandler) Stamp(w http.ResponseWriter, r *http.Request) {
	var req stampReq
	if !decode(w, r, &req) {
		return
	}
	s := h.load(w, r)
	if s == nil {
		return
	}
	st, err := h.store(s).AddStamp(r.Context(), chi.URLParam(r, "id"), req.StampID)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// Catalog lists the stamps a memory can receive.
func Catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, memory.Catalog)
}
