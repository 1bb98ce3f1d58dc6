package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
)

type checkPayload struct {
	URL            string `json:"url" validate:"required,url"`
	Frequency      int    `json:"frequency" validate:"required,gt=0"`
	ExpectedStatus int    `json:"expectedStatus" validate:"required,gte=100,lte=599"`
	ExpectedString string `json:"expectedString"`
	EmailAddresses []struct {
		EmailAddress string `json:"emailAddress" validate:"required"`
	} `json:"emailAddresses" validate:"dive"`
}

func (p checkPayload) definition() domain.CheckDefinition {
	c := domain.CheckDefinition{
		URL:            normalizeHTTPURL(p.URL),
		Frequency:      p.Frequency,
		ExpectedStatus: p.ExpectedStatus,
		ExpectedString: p.ExpectedString,
	}
	for _, a := range p.EmailAddresses {
		c.EmailAddresses = append(c.EmailAddresses, domain.NotificationAddress{EmailAddress: a.EmailAddress})
	}
	return c
}

type addressPayload struct {
	CheckID      int64  `json:"checkId" validate:"required,gt=0"`
	EmailAddress string `json:"emailAddress" validate:"required"`
}

// ---- checkdefinitions ----

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := s.Store.ListChecks(r.Context(), q)
	if err != nil {
		s.storeError(w, r, "list_checks", err)
		return
	}
	writeList(w, items, total)
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := s.Store.GetCheck(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "get_check", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCheck(w http.ResponseWriter, r *http.Request) {
	var p checkPayload
	if !s.decode(w, r, &p) {
		return
	}
	if !isValidHTTPURL(p.URL) {
		writeError(w, http.StatusBadRequest, "url must be an http or https URL")
		return
	}
	c := p.definition()
	if err := s.Store.CreateCheck(r.Context(), &c); err != nil {
		s.storeError(w, r, "create_check", err)
		return
	}
	s.Jobs.Schedule(c)
	s.Logger.Info("check_created", zap.Int64("check_id", c.ID), zap.String("url", c.URL))
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p checkPayload
	if !s.decode(w, r, &p) {
		return
	}
	if !isValidHTTPURL(p.URL) {
		writeError(w, http.StatusBadRequest, "url must be an http or https URL")
		return
	}
	c := p.definition()
	c.ID = id
	if err := s.Store.UpdateCheck(r.Context(), &c); err != nil {
		s.storeError(w, r, "update_check", err)
		return
	}
	s.Jobs.Schedule(c)
	s.Logger.Info("check_updated", zap.Int64("check_id", c.ID), zap.String("url", c.URL))
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	// stop the job first so it cannot write a result for a deleted check
	s.Jobs.Unschedule(id)
	if err := s.Store.DeleteCheck(r.Context(), id); err != nil {
		s.storeError(w, r, "delete_check", err)
		return
	}
	s.Logger.Info("check_deleted", zap.Int64("check_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// ---- notificationaddresses ----

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := s.Store.ListAddresses(r.Context(), q)
	if err != nil {
		s.storeError(w, r, "list_addresses", err)
		return
	}
	writeList(w, items, total)
}

func (s *Server) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := s.Store.GetAddress(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "get_address", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var p addressPayload
	if !s.decode(w, r, &p) {
		return
	}
	a := domain.NotificationAddress{CheckID: p.CheckID, EmailAddress: p.EmailAddress}
	if err := s.Store.CreateAddress(r.Context(), &a); err != nil {
		s.storeError(w, r, "create_address", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p addressPayload
	if !s.decode(w, r, &p) {
		return
	}
	a := domain.NotificationAddress{ID: id, CheckID: p.CheckID, EmailAddress: p.EmailAddress}
	if err := s.Store.UpdateAddress(r.Context(), &a); err != nil {
		s.storeError(w, r, "update_address", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.Store.DeleteAddress(r.Context(), id); err != nil {
		s.storeError(w, r, "delete_address", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- checkresults / latestresults (read-only) ----

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := s.Store.ListResults(r.Context(), q)
	if err != nil {
		s.storeError(w, r, "list_results", err)
		return
	}
	writeList(w, items, total)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.Store.GetResult(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "get_result", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListLatest(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := s.Store.ListLatest(r.Context(), q)
	if err != nil {
		s.storeError(w, r, "list_latest", err)
		return
	}
	writeList(w, items, total)
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lr, err := s.Store.GetLatest(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "get_latest", err)
		return
	}
	writeJSON(w, http.StatusOK, lr)
}
