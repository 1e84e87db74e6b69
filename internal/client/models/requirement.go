package models

// Function is a functional requirement attached to a form.
type Function struct {
	ID          int64  `json:"id"`
	FormID      int64  `json:"form_id"`
	Name        string `json:"name"`
	Choice      string `json:"choice"`
	Description string `json:"description"`
	Status      string `json:"status"`
	IsChanged   bool   `json:"is_changed"`
}

// FunctionInput creates a Function.
type FunctionInput struct {
	FormID      int64  `json:"form_id"`
	Name        string `json:"name"`
	Choice      string `json:"choice"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
}

// FunctionUpdate changes selected Function fields.
type FunctionUpdate struct {
	Name        *string `json:"name,omitempty"`
	Choice      *string `json:"choice,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	IsChanged   *bool   `json:"is_changed,omitempty"`
}

// Nonfunction is a non-functional requirement attached to a form.
type Nonfunction struct {
	ID          int64  `json:"id"`
	FormID      int64  `json:"form_id"`
	Name        string `json:"name"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Status      string `json:"status"`
	IsChanged   bool   `json:"is_changed"`
}

// NonfunctionInput creates a Nonfunction.
type NonfunctionInput struct {
	FormID      int64  `json:"form_id"`
	Name        string `json:"name"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
}

// NonfunctionUpdate changes selected Nonfunction fields.
type NonfunctionUpdate struct {
	Name        *string `json:"name,omitempty"`
	Level       *string `json:"level,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	IsChanged   *bool   `json:"is_changed,omitempty"`
}
