package fakeapi

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/gin-gonic/gin"
)

// AddForm stores a main form owned by ownerID and returns its id.
func (s *Server) AddForm(ownerID int64, in models.FormInput, status models.FormStatus) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertForm(ownerID, "mainform", in, status).ID
}

// SetForm applies fn to the stored form. It reports false for unknown ids.
func (s *Server) SetForm(id int64, fn func(*models.Form)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, found := s.forms[id]
	if found {
		fn(f)
	}
	return found
}

// Form returns a copy of the stored form.
func (s *Server) Form(id int64) (models.Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, found := s.forms[id]
	if !found {
		return models.Form{}, false
	}
	return *f, true
}

func (s *Server) insertForm(ownerID int64, kind string, in models.FormInput, status models.FormStatus) *models.Form {
	f := &models.Form{
		ID:           s.newID(),
		Type:         kind,
		Title:        in.Title,
		Message:      in.Message,
		Functions:    in.Functions,
		Performance:  in.Performance,
		Budget:       in.Budget,
		ExpectedTime: in.ExpectedTime,
		Status:       status,
		UserID:       ownerID,
		CreatedAt:    now(),
	}
	if u := s.users[ownerID]; u != nil {
		f.CreatedByName = u.DisplayName
	}
	f.Progress = progressFor(status)
	s.forms[f.ID] = f
	return f
}

// progressFor is the backend-computed progress of a status.
func progressFor(status models.FormStatus) *int {
	var p int
	switch status {
	case models.FormStatusPreview, models.FormStatusAvailable:
		p = 0
	case models.FormStatusProcessing:
		p = 50
	case models.FormStatusRewrite:
		p = 40
	case models.FormStatusEnd:
		p = 100
	default:
		return nil
	}
	return &p
}

func canView(f *models.Form, u *user) bool {
	switch u.Role {
	case models.RoleClient:
		return f.UserID == u.ID
	case models.RoleDeveloper:
		if f.DeveloperID != nil {
			return *f.DeveloperID == u.ID
		}
		return f.Status == models.FormStatusAvailable
	}
	return false
}

func isParty(f *models.Form, u *user) bool {
	if u.Role == models.RoleClient {
		return f.UserID == u.ID
	}
	return f.DeveloperID != nil && *f.DeveloperID == u.ID
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// lookupForm loads a form visible to the caller; it writes the error answer
// and returns nil otherwise. s.mu must be held.
func (s *Server) lookupForm(c *gin.Context, id int64) *models.Form {
	f, found := s.forms[id]
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "Form not found")
		return nil
	}
	if !canView(f, currentUser(c)) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return nil
	}
	return f
}

func (s *Server) listForms(c *gin.Context) {
	u := currentUser(c)
	page := queryInt(c, "page", 1)
	size := queryInt(c, "page_size", 20)

	s.mu.Lock()
	var visible []models.Form
	for _, f := range s.forms {
		if f.Type == "mainform" && canView(f, u) {
			visible = append(visible, *f)
		}
	}
	s.mu.Unlock()

	sort.Slice(visible, func(i, j int) bool { return visible[i].ID < visible[j].ID })
	out := []models.Form{}
	if start := (page - 1) * size; start < len(visible) {
		end := min(start+size, len(visible))
		out = visible[start:end]
	}
	ok(c, gin.H{"forms": out, "page": page, "page_size": size, "total": len(visible)}, "")
}

func (s *Server) getForm(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.lookupForm(c, id); f != nil {
		ok(c, *f, "")
	}
}

func (s *Server) createForm(c *gin.Context) {
	u := currentUser(c)
	if u.Role != models.RoleClient {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Only clients can create forms")
		return
	}
	var in models.FormInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Title == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "title required")
		return
	}

	s.mu.Lock()
	f := s.insertForm(u.ID, "mainform", in, models.FormStatusPreview)
	s.mu.Unlock()
	ok(c, gin.H{"form_id": f.ID}, "Form created")
}

func (s *Server) updateForm(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	var changes models.FormUpdate
	if err := c.ShouldBindJSON(&changes); err != nil || changes.Empty() {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "No valid fields to update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.lookupForm(c, id)
	if f == nil {
		return
	}
	if f.UserID != currentUser(c).ID {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return
	}
	if changes.Title != nil {
		f.Title = *changes.Title
	}
	if changes.Message != nil {
		f.Message = *changes.Message
	}
	if changes.Budget != nil {
		f.Budget = *changes.Budget
	}
	if changes.ExpectedTime != nil {
		f.ExpectedTime = *changes.ExpectedTime
	}
	ts := now()
	f.UpdatedAt = &ts
	ok(c, nil, "Form updated")
}

func (s *Server) deleteForm(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.lookupForm(c, id)
	if f == nil {
		return
	}
	if f.UserID != currentUser(c).ID {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return
	}
	delete(s.forms, id)
	if f.SubformID != nil {
		delete(s.forms, *f.SubformID)
	}
	for fid, fn := range s.functions {
		if fn.FormID == id {
			delete(s.functions, fid)
		}
	}
	for nid, nf := range s.nonfunctions {
		if nf.FormID == id {
			delete(s.nonfunctions, nid)
		}
	}
	ok(c, nil, "Form deleted")
}

func (s *Server) createSubform(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	var in models.FormInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Title == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "title required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	mainForm := s.lookupForm(c, id)
	if mainForm == nil {
		return
	}
	u := currentUser(c)
	if !isParty(mainForm, u) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return
	}
	if mainForm.Type != "mainform" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid mainform")
		return
	}
	if mainForm.SubformID != nil {
		fail(c, http.StatusConflict, "CONFLICT", "Subform already exists")
		return
	}
	sub := s.insertForm(u.ID, "subform", in, mainForm.Status)
	mainForm.SubformID = &sub.ID
	ok(c, gin.H{"subform_id": sub.ID}, "Subform created")
}

func (s *Server) mergeSubform(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mainForm := s.lookupForm(c, id)
	if mainForm == nil {
		return
	}
	if mainForm.Type != "mainform" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid mainform")
		return
	}
	if mainForm.SubformID == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "No subform to merge")
		return
	}
	if !isParty(mainForm, currentUser(c)) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return
	}
	if sub := s.forms[*mainForm.SubformID]; sub != nil {
		mainForm.Title, mainForm.Message, mainForm.Budget, mainForm.ExpectedTime = sub.Title, sub.Message, sub.Budget, sub.ExpectedTime
		delete(s.forms, sub.ID)
	}
	mainForm.SubformID = nil
	ok(c, nil, "Subform merged")
}

func (s *Server) updateStatus(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	var body struct {
		Status models.FormStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Status == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "status required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.lookupForm(c, id)
	if f == nil {
		return
	}
	u := currentUser(c)
	from, to := f.Status, body.Status

	switch u.Role {
	case models.RoleClient:
		allowed := (from == models.FormStatusPreview && to == models.FormStatusAvailable) ||
			(to == models.FormStatusError && (from == models.FormStatusProcessing || from == models.FormStatusRewrite))
		if !allowed {
			fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
			return
		}
	case models.RoleDeveloper:
		if from == models.FormStatusAvailable && to == models.FormStatusProcessing {
			dev := u.ID
			f.DeveloperID = &dev
			break
		}
		if !isParty(f, u) {
			fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
			return
		}
		if !developerTransition(from, to) {
			fail(c, http.StatusConflict, "CONFLICT", "Invalid status transition")
			return
		}
	}

	// Finishing needs both parties: the developer's request only records a vote.
	if to == models.FormStatusEnd && u.Role == models.RoleDeveloper {
		f.ApprovalFlags |= 2
		ok(c, gin.H{"status": f.Status, "approval_flags": f.ApprovalFlags}, "Completion requested")
		return
	}

	f.Status = to
	f.Progress = progressFor(to)
	ts := now()
	f.UpdatedAt = &ts
	ok(c, gin.H{"status": f.Status, "approval_flags": f.ApprovalFlags}, "Status updated")
}

func developerTransition(from, to models.FormStatus) bool {
	switch from {
	case models.FormStatusProcessing:
		return to == models.FormStatusRewrite || to == models.FormStatusEnd || to == models.FormStatusError
	case models.FormStatusRewrite:
		return to == models.FormStatusProcessing || to == models.FormStatusEnd || to == models.FormStatusError
	}
	return false
}

func (s *Server) completeForm(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.lookupForm(c, id)
	if f == nil {
		return
	}
	if f.Status != models.FormStatusProcessing {
		fail(c, http.StatusConflict, "CONFLICT", "Can only complete forms in processing")
		return
	}
	u := currentUser(c)
	if u.Role != models.RoleClient || f.UserID != u.ID {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Only form owner can mark complete")
		return
	}
	if f.DeveloperID == nil {
		fail(c, http.StatusConflict, "CONFLICT", "No developer assigned")
		return
	}
	f.Status = models.FormStatusEnd
	f.Progress = progressFor(f.Status)
	f.ApprovalFlags |= 1
	ok(c, nil, "Form marked as completed")
}

func (s *Server) acceptNegotiation(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.lookupForm(c, id)
	if f == nil {
		return
	}
	if f.Status != models.FormStatusRewrite {
		fail(c, http.StatusConflict, "CONFLICT", "Form not in rewrite state")
		return
	}
	if !isParty(f, currentUser(c)) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return
	}
	if f.SubformID != nil {
		fail(c, http.StatusConflict, "CONFLICT", "Subform must be merged before accepting")
		return
	}
	f.Status = models.FormStatusProcessing
	f.Progress = progressFor(f.Status)
	ok(c, nil, "Negotiation accepted, returning to processing")
}
