package fakeapi

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/gin-gonic/gin"
)

// AddFunction stores a function record under formID.
func (s *Server) AddFunction(formID int64, name, choice string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.functions[id] = &models.Function{ID: id, FormID: formID, Name: name, Choice: choice, Status: "pending"}
	return id
}

// AddNonfunction stores a nonfunction record under formID.
func (s *Server) AddNonfunction(formID int64, name, level string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.nonfunctions[id] = &models.Nonfunction{ID: id, FormID: formID, Name: name, Level: level, Status: "pending"}
	return id
}

// childForm resolves the form_id query or body field and checks the caller
// may view it. s.mu must be held.
func (s *Server) childForm(c *gin.Context, formID int64) *models.Form {
	if formID <= 0 {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "form_id required")
		return nil
	}
	return s.lookupForm(c, formID)
}

func queryID(c *gin.Context, name string) int64 {
	id, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return id
}

func (s *Server) listFunctions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	formID := queryID(c, "form_id")
	if s.childForm(c, formID) == nil {
		return
	}
	out := []models.Function{}
	for _, fn := range s.functions {
		if fn.FormID == formID {
			out = append(out, *fn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	ok(c, gin.H{"functions": out}, "")
}

func (s *Server) createFunction(c *gin.Context) {
	var in models.FunctionInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Name == "" {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.childForm(c, in.FormID)
	if f == nil {
		return
	}
	if !isParty(f, currentUser(c)) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return
	}
	id := s.newID()
	status := in.Status
	if status == "" {
		status = "pending"
	}
	s.functions[id] = &models.Function{ID: id, FormID: in.FormID, Name: in.Name, Choice: in.Choice, Description: in.Description, Status: status}
	ok(c, gin.H{"id": id}, "Function created")
}

func (s *Server) updateFunction(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	var upd models.FunctionUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn, found := s.functions[id]
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "Function not found")
		return
	}
	if f := s.childForm(c, fn.FormID); f == nil {
		return
	}
	setIf(&fn.Name, upd.Name)
	setIf(&fn.Choice, upd.Choice)
	setIf(&fn.Description, upd.Description)
	setIf(&fn.Status, upd.Status)
	if upd.IsChanged != nil {
		fn.IsChanged = *upd.IsChanged
	} else {
		fn.IsChanged = true
	}
	ok(c, nil, "Function updated")
}

func (s *Server) deleteFunction(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn, found := s.functions[id]
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "Function not found")
		return
	}
	if f := s.childForm(c, fn.FormID); f == nil {
		return
	}
	delete(s.functions, id)
	ok(c, nil, "Function deleted")
}

func (s *Server) listNonfunctions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	formID := queryID(c, "form_id")
	if s.childForm(c, formID) == nil {
		return
	}
	out := []models.Nonfunction{}
	for _, nf := range s.nonfunctions {
		if nf.FormID == formID {
			out = append(out, *nf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	ok(c, gin.H{"nonfunctions": out}, "")
}

func (s *Server) createNonfunction(c *gin.Context) {
	var in models.NonfunctionInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Name == "" {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.childForm(c, in.FormID)
	if f == nil {
		return
	}
	if !isParty(f, currentUser(c)) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return
	}
	id := s.newID()
	status := in.Status
	if status == "" {
		status = "pending"
	}
	s.nonfunctions[id] = &models.Nonfunction{ID: id, FormID: in.FormID, Name: in.Name, Level: in.Level, Description: in.Description, Status: status}
	ok(c, gin.H{"id": id}, "NonFunction created")
}

func (s *Server) updateNonfunction(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	var upd models.NonfunctionUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	nf, found := s.nonfunctions[id]
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "NonFunction not found")
		return
	}
	if f := s.childForm(c, nf.FormID); f == nil {
		return
	}
	setIf(&nf.Name, upd.Name)
	setIf(&nf.Level, upd.Level)
	setIf(&nf.Description, upd.Description)
	setIf(&nf.Status, upd.Status)
	if upd.IsChanged != nil {
		nf.IsChanged = *upd.IsChanged
	} else {
		nf.IsChanged = true
	}
	ok(c, nil, "NonFunction updated")
}

func (s *Server) deleteNonfunction(c *gin.Context) {
	id, valid := paramID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	nf, found := s.nonfunctions[id]
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "NonFunction not found")
		return
	}
	if f := s.childForm(c, nf.FormID); f == nil {
		return
	}
	delete(s.nonfunctions, id)
	ok(c, nil, "NonFunction deleted")
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
