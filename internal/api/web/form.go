// form.go serves the application create and edit forms and processes their
// posts. Successful posts redirect to the list page; validation failures
// re-render the form with inline errors and the submitted values preserved.
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
	"github.com/application-catalog/application-catalog/internal/slug"
	"github.com/application-catalog/application-catalog/internal/tree"
)

// choice is one option of a select or multi-select form control
type choice struct {
	ID       string
	Label    string
	Selected bool
}

// applicationForm carries the submitted (or pre-filled) field values plus any
// per-field validation errors back into the form template.
type applicationForm struct {
	ID              string
	Name            string
	Description     string
	Slug            string
	ParentID        string
	AttributeIDs    map[string]bool
	OrganisationIDs map[string]bool
	Errors          map[string]string
}

// parseApplicationForm reads the posted fields and runs the validations the
// form can check without touching the database.
func parseApplicationForm(c *gin.Context) *applicationForm {
	form := &applicationForm{
		Name:            strings.TrimSpace(c.PostForm("name")),
		Description:     strings.TrimSpace(c.PostForm("description")),
		Slug:            strings.TrimSpace(c.PostForm("slug")),
		ParentID:        c.PostForm("parent_id"),
		AttributeIDs:    make(map[string]bool),
		OrganisationIDs: make(map[string]bool),
		Errors:          make(map[string]string),
	}
	for _, id := range c.PostFormArray("attribute_ids") {
		form.AttributeIDs[id] = true
	}
	for _, id := range c.PostFormArray("organisation_ids") {
		form.OrganisationIDs[id] = true
	}

	if form.Name == "" {
		form.Errors["Name"] = "This field is required."
	} else if len(form.Name) > 255 {
		form.Errors["Name"] = "Ensure this value has at most 255 characters."
	}
	if form.Slug != "" && !slug.IsValid(form.Slug) {
		form.Errors["Slug"] = "Enter a valid slug: lowercase letters, numbers, and hyphens."
	}
	return form
}

// selectedIDs converts the checked entries of a multi-select back to UUIDs.
// Entries that fail to parse were not produced by the rendered form and are
// dropped silently.
func selectedIDs(checked map[string]bool) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(checked))
	for raw := range checked {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// formChoices loads the select options for the form: every application as a
// parent candidate (minus self on edit) and the active attributes and
// organisations, all in tree order with indented labels.
func (h *Handlers) formChoices(ctx context.Context, form *applicationForm) (parents, attrs, orgs []choice, err error) {
	apps, err := h.appRepo.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, app := range apps {
		id := app.ID.String()
		if id == form.ID {
			continue
		}
		parents = append(parents, choice{
			ID:       id,
			Label:    app.IndentedName(),
			Selected: id == form.ParentID,
		})
	}

	attributes, err := h.attrRepo.List(ctx, true)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, attr := range attributes {
		attrs = append(attrs, choice{
			ID:       attr.ID.String(),
			Label:    attr.IndentedName(),
			Selected: form.AttributeIDs[attr.ID.String()],
		})
	}

	organisations, err := h.orgRepo.List(ctx, true)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, org := range organisations {
		orgs = append(orgs, choice{
			ID:       org.ID.String(),
			Label:    org.IndentedName(),
			Selected: form.OrganisationIDs[org.ID.String()],
		})
	}

	return parents, attrs, orgs, nil
}

// renderForm renders the create or edit form. status is 200 both for a fresh
// form and for a validation failure re-render.
func (h *Handlers) renderForm(c *gin.Context, form *applicationForm, title, action string) {
	parents, attrs, orgs, err := h.formChoices(c.Request.Context(), form)
	if err != nil {
		h.renderServerError(c, err)
		return
	}

	h.render(c, http.StatusOK, "application_form", gin.H{
		"Title":         title,
		"Action":        action,
		"Form":          form,
		"Parents":       parents,
		"Attributes":    attrs,
		"Organisations": orgs,
	})
}

// resolveParent validates the submitted parent choice, recording a field
// error when it is malformed or refers to a missing application.
func (h *Handlers) resolveParent(ctx context.Context, form *applicationForm) (*uuid.UUID, error) {
	if form.ParentID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(form.ParentID)
	if err != nil {
		form.Errors["Parent"] = "Select a valid choice."
		return nil, nil
	}
	parent, err := h.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		form.Errors["Parent"] = "Select a valid choice."
		return nil, nil
	}
	return &id, nil
}

// NewFormHandler serves the blank create form
// GET /application/new/
func (h *Handlers) NewFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		form := &applicationForm{
			AttributeIDs:    make(map[string]bool),
			OrganisationIDs: make(map[string]bool),
			Errors:          make(map[string]string),
		}
		h.renderForm(c, form, "New Application", "/application/new/")
	}
}

// CreateHandler validates the posted form and creates the application with
// its links, then redirects to the list
// POST /application/new/
func (h *Handlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		form := parseApplicationForm(c)

		parentID, err := h.resolveParent(ctx, form)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		if len(form.Errors) > 0 {
			h.renderForm(c, form, "New Application", "/application/new/")
			return
		}

		app := &models.Application{
			Name:        form.Name,
			Slug:        form.Slug,
			Description: form.Description,
			ParentID:    parentID,
		}
		if err := h.appRepo.Create(ctx, app); err != nil {
			if errors.Is(err, repositories.ErrDuplicateSlug) {
				form.Errors["Slug"] = "Application with this Slug already exists."
				h.renderForm(c, form, "New Application", "/application/new/")
				return
			}
			h.renderServerError(c, err)
			return
		}

		if err := h.saveLinks(ctx, app.ID, form); err != nil {
			h.renderServerError(c, err)
			return
		}

		h.invalidateListCache(ctx)
		c.Redirect(http.StatusFound, "/application/")
	}
}

// EditFormHandler serves the edit form pre-filled with the current values
// GET /application/:id/edit/
func (h *Handlers) EditFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.renderNotFound(c)
			return
		}
		detail, err := h.appRepo.GetDetail(ctx, id)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		if detail == nil {
			h.renderNotFound(c)
			return
		}

		form := &applicationForm{
			ID:              detail.ID.String(),
			Name:            detail.Name,
			Description:     detail.Description,
			Slug:            detail.Slug,
			AttributeIDs:    make(map[string]bool),
			OrganisationIDs: make(map[string]bool),
			Errors:          make(map[string]string),
		}
		if detail.ParentID != nil {
			form.ParentID = detail.ParentID.String()
		}
		for _, attr := range detail.Attributes {
			form.AttributeIDs[attr.ID.String()] = true
		}
		for _, org := range detail.Organisations {
			form.OrganisationIDs[org.ID.String()] = true
		}

		h.renderForm(c, form, "Edit "+detail.Name, "/application/"+form.ID+"/edit/")
	}
}

// UpdateHandler validates the posted form and updates the application and its
// links, then redirects to the list
// POST /application/:id/edit/
func (h *Handlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.renderNotFound(c)
			return
		}
		app, err := h.appRepo.GetByID(ctx, id)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		if app == nil {
			h.renderNotFound(c)
			return
		}

		form := parseApplicationForm(c)
		form.ID = id.String()
		action := "/application/" + form.ID + "/edit/"
		title := "Edit " + app.Name

		parentID, err := h.resolveParent(ctx, form)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		if len(form.Errors) > 0 {
			h.renderForm(c, form, title, action)
			return
		}

		app.Name = form.Name
		app.Slug = form.Slug
		app.Description = form.Description
		app.ParentID = parentID

		if err := h.appRepo.Update(ctx, app); err != nil {
			switch {
			case errors.Is(err, repositories.ErrDuplicateSlug):
				form.Errors["Slug"] = "Application with this Slug already exists."
			case errors.Is(err, tree.ErrCycle):
				form.Errors["Parent"] = "An application cannot be moved under its own descendant."
			default:
				h.renderServerError(c, err)
				return
			}
			h.renderForm(c, form, title, action)
			return
		}

		if err := h.saveLinks(ctx, app.ID, form); err != nil {
			h.renderServerError(c, err)
			return
		}

		h.invalidateListCache(ctx)
		c.Redirect(http.StatusFound, "/application/")
	}
}

// saveLinks replaces the application's attribute and organisation links with
// the form's selections.
func (h *Handlers) saveLinks(ctx context.Context, appID uuid.UUID, form *applicationForm) error {
	if err := h.appRepo.ReplaceAttributes(ctx, appID, selectedIDs(form.AttributeIDs)); err != nil {
		return err
	}
	return h.appRepo.ReplaceOrganisations(ctx, appID, selectedIDs(form.OrganisationIDs))
}
