package wptest

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "rest_upload_no_data", "No data supplied.")
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusInternalServerError, "rest_upload_unknown_error", err.Error())
		return
	}

	s.mu.Lock()
	m := wpapi.Media{
		ID:        s.id(),
		SourceURL: fmt.Sprintf("%s/wp-content/uploads/%s", s.URL, header.Filename),
		MimeType:  header.Header.Get("Content-Type"),
	}
	s.media = append(s.media, m)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, m)
}

// Price history

func (s *Server) productExists(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.products[id]
	return ok
}

func (s *Server) listPrices(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if !s.productExists(id) {
		notFound(w, "product")
		return
	}
	entries := s.PriceHistory(id)
	if entries == nil {
		entries = []wpapi.PriceEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) addPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var e wpapi.PriceEntry
	if !decode(w, r, &e) {
		return
	}
	if !s.productExists(id) {
		notFound(w, "product")
		return
	}
	s.mu.Lock()
	e.ID = s.id()
	s.prices[id] = append(s.prices[id], e)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	entryID, ok := urlID(w, r, "entry")
	if !ok {
		return
	}
	var e wpapi.PriceEntry
	if !decode(w, r, &e) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.prices[id] {
		if existing.ID == entryID {
			e.ID = entryID
			s.prices[id][i] = e
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	notFound(w, "price_entry")
}

func (s *Server) deletePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	entryID, ok := urlID(w, r, "entry")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.prices[id]
	for i, existing := range entries {
		if existing.ID == entryID {
			s.prices[id] = append(entries[:i:i], entries[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
			return
		}
	}
	notFound(w, "price_entry")
}

func (s *Server) clearPrices(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	n := len(s.prices[id])
	delete(s.prices, id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// Activity log

func (s *Server) eventsNewestFirst() []wpapi.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wpapi.Event, len(s.events))
	for i, e := range s.events {
		out[len(s.events)-1-i] = e
	}
	return out
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	var out []wpapi.Event
	for _, e := range s.eventsNewestFirst() {
		if matches(r.URL.Query().Get("search"), e.Message, e.Logger) {
			out = append(out, e)
		}
	}
	paginate(w, r, out)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	for _, e := range s.eventsNewestFirst() {
		if e.ID == id {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	notFound(w, "event")
}

func (s *Server) newEvents(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.Atoi(r.URL.Query().Get("since_id"))
	count := 0
	for _, e := range s.eventsNewestFirst() {
		if e.ID > since {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"new_events_count": count})
}

func (s *Server) eventSummary(w http.ResponseWriter, _ *http.Request) {
	byLevel := map[string]int{}
	events := s.eventsNewestFirst()
	for _, e := range events {
		byLevel[e.Level]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(events),
		"by_level": byLevel,
	})
}
