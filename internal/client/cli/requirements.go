package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

// AddFunction prompts for a functional requirement and attaches it to the
// selected form.
func (a *App) AddFunction(ctx context.Context) error {
	var in models.FunctionInput
	var err error
	if in.Name, err = GetRequiredText(a.in, "Name:", a.out); err != nil {
		return err
	}
	if in.Choice, err = GetSimpleText(a.in, "Choice:", a.out); err != nil {
		return err
	}
	if in.Description, err = GetSimpleText(a.in, "Description:", a.out); err != nil {
		return err
	}
	id, err := a.forms.AddFunction(ctx, in)
	if err != nil {
		return err
	}
	a.println(renderOK(fmt.Sprintf("Added function %d.", id)))
	a.println(renderFormDetail(a.forms.Selected()))
	return nil
}

// AddNonfunction prompts for a non-functional requirement and attaches it
// to the selected form.
func (a *App) AddNonfunction(ctx context.Context) error {
	var in models.NonfunctionInput
	var err error
	if in.Name, err = GetRequiredText(a.in, "Name:", a.out); err != nil {
		return err
	}
	if in.Level, err = GetSimpleText(a.in, "Level:", a.out); err != nil {
		return err
	}
	if in.Description, err = GetSimpleText(a.in, "Description:", a.out); err != nil {
		return err
	}
	id, err := a.forms.AddNonfunction(ctx, in)
	if err != nil {
		return err
	}
	a.println(renderOK(fmt.Sprintf("Added nonfunction %d.", id)))
	a.println(renderFormDetail(a.forms.Selected()))
	return nil
}

func (a *App) RemoveFunction(ctx context.Context, id int64) error {
	if err := a.forms.RemoveFunction(ctx, id); err != nil {
		return err
	}
	a.println(renderFormDetail(a.forms.Selected()))
	return nil
}

func (a *App) RemoveNonfunction(ctx context.Context, id int64) error {
	if err := a.forms.RemoveNonfunction(ctx, id); err != nil {
		return err
	}
	a.println(renderFormDetail(a.forms.Selected()))
	return nil
}

// FormAction runs one of the main-form workflow calls by name.
func (a *App) FormAction(ctx context.Context, action string, id int64) error {
	var err error
	switch action {
	case "complete":
		err = a.forms.Complete(ctx, id)
	case "accept":
		err = a.forms.AcceptNegotiation(ctx, id)
	case "merge":
		err = a.forms.MergeSubform(ctx, id)
	default:
		return fmt.Errorf("unknown form action %q", action)
	}
	if err != nil {
		return err
	}
	a.println(renderOK("Done."))
	a.println(renderFormDetail(a.forms.Selected()))
	return nil
}
