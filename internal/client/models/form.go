package models

// FormStatus is a backend lifecycle state. The client never validates
// transitions; the constants only name the values the backend knows about.
type FormStatus string

const (
	FormStatusPreview    FormStatus = "preview"
	FormStatusAvailable  FormStatus = "available"
	FormStatusProcessing FormStatus = "processing"
	FormStatusRewrite    FormStatus = "rewrite"
	FormStatusEnd        FormStatus = "end"
	FormStatusError      FormStatus = "error"
)

// Form is a requirement record. List responses only fill a subset of fields.
type Form struct {
	ID            int64      `json:"id"`
	Type          string     `json:"type,omitempty"`
	Title         string     `json:"title"`
	Message       string     `json:"message,omitempty"`
	Description   string     `json:"description,omitempty"`
	Functions     string     `json:"functions,omitempty"`
	Performance   string     `json:"performance,omitempty"`
	Budget        string     `json:"budget,omitempty"`
	ExpectedTime  string     `json:"expected_time,omitempty"`
	Status        FormStatus `json:"status"`
	Progress      *int       `json:"progress,omitempty"`
	ApprovalFlags int        `json:"approval_flags"`
	UserID        int64      `json:"user_id,omitempty"`
	DeveloperID   *int64     `json:"developer_id,omitempty"`
	SubformID     *int64     `json:"subform_id,omitempty"`
	CreatedByName string     `json:"created_by_name,omitempty"`
	CreatedAt     string     `json:"created_at,omitempty"`
	UpdatedAt     *string    `json:"updated_at,omitempty"`
}

// Summary returns the description to display, preferring the backend's
// message field.
func (f Form) Summary() string {
	if f.Message != "" {
		return f.Message
	}
	return f.Description
}

// FormInput is the body used to create a main form or a subform.
type FormInput struct {
	Title        string `json:"title"`
	Message      string `json:"message"`
	Budget       string `json:"budget"`
	ExpectedTime string `json:"expected_time"`
	Functions    string `json:"functions,omitempty"`
	Performance  string `json:"performance,omitempty"`
}

// FormUpdate carries the fields to change; nil fields are left untouched.
type FormUpdate struct {
	Title        *string `json:"title,omitempty"`
	Message      *string `json:"message,omitempty"`
	Budget       *string `json:"budget,omitempty"`
	ExpectedTime *string `json:"expected_time,omitempty"`
}

// Empty reports whether no field is set.
func (u FormUpdate) Empty() bool {
	return u.Title == nil && u.Message == nil && u.Budget == nil && u.ExpectedTime == nil
}

// FormPage is one page of the form collection.
type FormPage struct {
	Forms    []Form `json:"forms"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Total    int    `json:"total"`
}

// Contains reports whether the page lists a form with the given id.
func (p FormPage) Contains(id int64) bool {
	for _, f := range p.Forms {
		if f.ID == id {
			return true
		}
	}
	return false
}

// StatusResult is the backend's answer to a status change request. For
// transitions that need both parties, Status may still be the old value
// while ApprovalFlags records the vote.
type StatusResult struct {
	Status        FormStatus `json:"status"`
	ApprovalFlags int        `json:"approval_flags"`
	Message       string     `json:"-"`
}

// FormDetail is a selected form together with its child records.
type FormDetail struct {
	Form         Form
	Functions    []Function
	Nonfunctions []Nonfunction
}

// Clone returns a deep copy of d.
func (d *FormDetail) Clone() *FormDetail {
	if d == nil {
		return nil
	}
	out := &FormDetail{Form: d.Form}
	out.Functions = append([]Function(nil), d.Functions...)
	out.Nonfunctions = append([]Nonfunction(nil), d.Nonfunctions...)
	return out
}
