package services

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/syncbridge/internal/client/api"
	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/dmitrijs2005/syncbridge/internal/logging"
)

// ErrNoFormSelected is returned by child operations when no form is selected.
var ErrNoFormSelected = errors.New("no form selected")

type FormAPI interface {
	ListForms(ctx context.Context, token string, page, pageSize int) (models.FormPage, error)
	GetForm(ctx context.Context, token string, id int64) (models.Form, error)
	CreateForm(ctx context.Context, token string, in models.FormInput) (int64, error)
	UpdateForm(ctx context.Context, token string, id int64, upd models.FormUpdate) error
	DeleteForm(ctx context.Context, token string, id int64) error
	UpdateFormStatus(ctx context.Context, token string, id int64, status models.FormStatus) (models.StatusResult, error)
	CreateSubform(ctx context.Context, token string, mainID int64, in models.FormInput) (int64, error)
	MergeSubform(ctx context.Context, token string, mainID int64) error
	CompleteForm(ctx context.Context, token string, id int64) error
	AcceptNegotiation(ctx context.Context, token string, id int64) error
}

type FunctionAPI interface {
	ListFunctions(ctx context.Context, token string, formID int64) ([]models.Function, error)
	CreateFunction(ctx context.Context, token string, in models.FunctionInput) (int64, error)
	UpdateFunction(ctx context.Context, token string, id int64, upd models.FunctionUpdate) error
	DeleteFunction(ctx context.Context, token string, id int64) error
}

type NonfunctionAPI interface {
	ListNonfunctions(ctx context.Context, token string, formID int64) ([]models.Nonfunction, error)
	CreateNonfunction(ctx context.Context, token string, in models.NonfunctionInput) (int64, error)
	UpdateNonfunction(ctx context.Context, token string, id int64, upd models.NonfunctionUpdate) error
	DeleteNonfunction(ctx context.Context, token string, id int64) error
}

// FormsState is a point-in-time copy of what FormsController holds.
type FormsState struct {
	Page      models.FormPage
	Selected  *models.FormDetail
	Busy      bool
	LastError error
}

// FormsController owns the form list page and the selected form detail.
//
// A list refresh clears a selection missing from the new page unless that
// selection started after the refresh did. Remove of the selected form always
// clears it.
type FormsController struct {
	*tracker

	forms        FormAPI
	functions    FunctionAPI
	nonfunctions NonfunctionAPI

	mu       sync.Mutex
	page     models.FormPage
	pageNo   int
	pageSize int
	selected *models.FormDetail
	// selSeq numbers selection fetches; only the newest one may commit.
	selSeq uint64
}

func NewFormsController(forms FormAPI, functions FunctionAPI, nonfunctions NonfunctionAPI, guard AuthGuard, logger logging.Logger) *FormsController {
	return &FormsController{
		tracker:      newTracker(guard, logger),
		forms:        forms,
		functions:    functions,
		nonfunctions: nonfunctions,
		pageNo:       api.DefaultPage,
		pageSize:     api.DefaultPageSize,
	}
}

// Snapshot returns a deep copy of the controller state.
func (c *FormsController) Snapshot() FormsState {
	c.mu.Lock()
	st := FormsState{Page: c.page, Selected: c.selected.Clone()}
	c.mu.Unlock()
	st.Page.Forms = append([]models.Form(nil), st.Page.Forms...)
	st.Busy = c.Busy()
	st.LastError = c.LastError()
	return st
}

// Selected returns a copy of the selected form detail, nil if none.
func (c *FormsController) Selected() *models.FormDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected.Clone()
}

func (c *FormsController) selectedID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return 0, false
	}
	return c.selected.Form.ID, true
}

// RefreshList loads a page of forms. Zero page or pageSize reuse the last
// requested values. On failure the previous list is kept.
func (c *FormsController) RefreshList(ctx context.Context, page, pageSize int) error {
	return c.run(ctx, "refresh forms", func(ctx context.Context, token string) error {
		return c.fetchList(ctx, token, page, pageSize)
	})
}

func (c *FormsController) fetchList(ctx context.Context, token string, page, pageSize int) error {
	c.mu.Lock()
	if page <= 0 {
		page = c.pageNo
	}
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	seq := c.selSeq
	c.mu.Unlock()

	res, err := c.forms.ListForms(ctx, token, page, pageSize)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = res
	c.pageNo = page
	c.pageSize = pageSize
	if c.selected != nil && seq == c.selSeq && !res.Contains(c.selected.Form.ID) {
		c.logger.Debug(ctx, "selected form left the list", "form_id", c.selected.Form.ID)
		c.selected = nil
		c.selSeq++
	}
	return nil
}

// SelectByID loads a form with its functions and nonfunctions. The selection
// changes only when all three loads succeed and no newer selection started
// in the meantime.
func (c *FormsController) SelectByID(ctx context.Context, id int64) error {
	return c.run(ctx, "select form", func(ctx context.Context, token string) error {
		return c.fetchDetail(ctx, token, id)
	})
}

func (c *FormsController) fetchDetail(ctx context.Context, token string, id int64) error {
	c.mu.Lock()
	c.selSeq++
	seq := c.selSeq
	c.mu.Unlock()

	form, functions, nonfunctions, err := c.loadDetail(ctx, token, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.selSeq && !client.IsAuthError(err) {
		c.logger.Debug(ctx, "stale form detail discarded", "form_id", id, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	c.selected = &models.FormDetail{Form: form, Functions: functions, Nonfunctions: nonfunctions}
	return nil
}

func (c *FormsController) loadDetail(ctx context.Context, token string, id int64) (models.Form, []models.Function, []models.Nonfunction, error) {
	form, err := c.forms.GetForm(ctx, token, id)
	if err != nil {
		return models.Form{}, nil, nil, err
	}
	functions, err := c.functions.ListFunctions(ctx, token, id)
	if err != nil {
		return models.Form{}, nil, nil, err
	}
	nonfunctions, err := c.nonfunctions.ListNonfunctions(ctx, token, id)
	if err != nil {
		return models.Form{}, nil, nil, err
	}
	return form, functions, nonfunctions, nil
}

// Create submits a new form, reloads the list and selects the new form.
func (c *FormsController) Create(ctx context.Context, in models.FormInput) (int64, error) {
	var id int64
	err := c.run(ctx, "create form", func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) (err error) {
				id, err = c.forms.CreateForm(ctx, token, in)
				return err
			},
			func(ctx context.Context) error {
				if err := c.fetchList(ctx, token, 0, 0); err != nil {
					return err
				}
				if id == 0 {
					return nil
				}
				return c.fetchDetail(ctx, token, id)
			})
	})
	return id, err
}

// Update changes form fields and reloads that form's detail.
func (c *FormsController) Update(ctx context.Context, id int64, upd models.FormUpdate) error {
	return c.run(ctx, "update form", func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) error { return c.forms.UpdateForm(ctx, token, id, upd) },
			func(ctx context.Context) error { return c.fetchDetail(ctx, token, id) })
	})
}

// Remove deletes a form, clears it if selected and reloads the list.
func (c *FormsController) Remove(ctx context.Context, id int64) error {
	return c.run(ctx, "delete form", func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) error {
				if err := c.forms.DeleteForm(ctx, token, id); err != nil {
					return err
				}
				c.mu.Lock()
				if c.selected != nil && c.selected.Form.ID == id {
					c.selected = nil
					c.selSeq++
				}
				c.mu.Unlock()
				return nil
			},
			func(ctx context.Context) error { return c.fetchList(ctx, token, 0, 0) })
	})
}

// ChangeStatus asks the backend to move a form to status. The backend
// decides; the result is informational and the held detail is reloaded.
func (c *FormsController) ChangeStatus(ctx context.Context, id int64, status models.FormStatus) (models.StatusResult, error) {
	var res models.StatusResult
	err := c.run(ctx, "change form status", func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) (err error) {
				res, err = c.forms.UpdateFormStatus(ctx, token, id, status)
				return err
			},
			func(ctx context.Context) error { return c.fetchDetail(ctx, token, id) })
	})
	return res, err
}

// CreateSubform proposes changes to a main form as a subform.
func (c *FormsController) CreateSubform(ctx context.Context, mainID int64, in models.FormInput) (int64, error) {
	var id int64
	err := c.run(ctx, "create subform", func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) (err error) {
				id, err = c.forms.CreateSubform(ctx, token, mainID, in)
				return err
			},
			func(ctx context.Context) error { return c.fetchDetail(ctx, token, mainID) })
	})
	return id, err
}

func (c *FormsController) MergeSubform(ctx context.Context, mainID int64) error {
	return c.mainFormOp(ctx, "merge subform", mainID, c.forms.MergeSubform)
}

func (c *FormsController) Complete(ctx context.Context, id int64) error {
	return c.mainFormOp(ctx, "complete form", id, c.forms.CompleteForm)
}

func (c *FormsController) AcceptNegotiation(ctx context.Context, id int64) error {
	return c.mainFormOp(ctx, "accept negotiation", id, c.forms.AcceptNegotiation)
}

func (c *FormsController) mainFormOp(ctx context.Context, op string, id int64, call func(context.Context, string, int64) error) error {
	return c.run(ctx, op, func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) error { return call(ctx, token, id) },
			func(ctx context.Context) error { return c.fetchDetail(ctx, token, id) })
	})
}

// childOp runs a mutation on the selected form's children and reloads them
// with reload.
func (c *FormsController) childOp(ctx context.Context, op string, mutate func(ctx context.Context, token string, formID int64) error, reload func(ctx context.Context, token string, formID int64) error) error {
	formID, ok := c.selectedID()
	if !ok {
		return c.fail(ErrNoFormSelected)
	}
	return c.run(ctx, op, func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) error { return mutate(ctx, token, formID) },
			func(ctx context.Context) error { return reload(ctx, token, formID) })
	})
}

func (c *FormsController) reloadFunctions(ctx context.Context, token string, formID int64) error {
	list, err := c.functions.ListFunctions(ctx, token, formID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.selected != nil && c.selected.Form.ID == formID {
		c.selected.Functions = list
	}
	c.mu.Unlock()
	return nil
}

func (c *FormsController) reloadNonfunctions(ctx context.Context, token string, formID int64) error {
	list, err := c.nonfunctions.ListNonfunctions(ctx, token, formID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.selected != nil && c.selected.Form.ID == formID {
		c.selected.Nonfunctions = list
	}
	c.mu.Unlock()
	return nil
}

func noMutation(context.Context, string, int64) error { return nil }

// LoadFunctions reloads the functions of the selected form.
func (c *FormsController) LoadFunctions(ctx context.Context) error {
	return c.childOp(ctx, "load functions", noMutation, c.reloadFunctions)
}

// LoadNonfunctions reloads the nonfunctions of the selected form.
func (c *FormsController) LoadNonfunctions(ctx context.Context) error {
	return c.childOp(ctx, "load nonfunctions", noMutation, c.reloadNonfunctions)
}

// AddFunction attaches a function to the selected form.
func (c *FormsController) AddFunction(ctx context.Context, in models.FunctionInput) (int64, error) {
	var id int64
	err := c.childOp(ctx, "add function",
		func(ctx context.Context, token string, formID int64) (err error) {
			in.FormID = formID
			id, err = c.functions.CreateFunction(ctx, token, in)
			return err
		}, c.reloadFunctions)
	return id, err
}

func (c *FormsController) ModifyFunction(ctx context.Context, id int64, upd models.FunctionUpdate) error {
	return c.childOp(ctx, "update function",
		func(ctx context.Context, token string, _ int64) error {
			return c.functions.UpdateFunction(ctx, token, id, upd)
		}, c.reloadFunctions)
}

func (c *FormsController) RemoveFunction(ctx context.Context, id int64) error {
	return c.childOp(ctx, "delete function",
		func(ctx context.Context, token string, _ int64) error {
			return c.functions.DeleteFunction(ctx, token, id)
		}, c.reloadFunctions)
}

// AddNonfunction attaches a nonfunction to the selected form.
func (c *FormsController) AddNonfunction(ctx context.Context, in models.NonfunctionInput) (int64, error) {
	var id int64
	err := c.childOp(ctx, "add nonfunction",
		func(ctx context.Context, token string, formID int64) (err error) {
			in.FormID = formID
			id, err = c.nonfunctions.CreateNonfunction(ctx, token, in)
			return err
		}, c.reloadNonfunctions)
	return id, err
}

func (c *FormsController) ModifyNonfunction(ctx context.Context, id int64, upd models.NonfunctionUpdate) error {
	return c.childOp(ctx, "update nonfunction",
		func(ctx context.Context, token string, _ int64) error {
			return c.nonfunctions.UpdateNonfunction(ctx, token, id, upd)
		}, c.reloadNonfunctions)
}

func (c *FormsController) RemoveNonfunction(ctx context.Context, id int64) error {
	return c.childOp(ctx, "delete nonfunction",
		func(ctx context.Context, token string, _ int64) error {
			return c.nonfunctions.DeleteNonfunction(ctx, token, id)
		}, c.reloadNonfunctions)
}
