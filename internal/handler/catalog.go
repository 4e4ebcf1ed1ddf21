// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/olegiv/quizzer/internal/apiclient"
	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/catalog"
	"github.com/olegiv/quizzer/internal/middleware"
	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/render"
	"github.com/olegiv/quizzer/internal/service"
	"github.com/olegiv/quizzer/internal/util"
)

// CatalogAPI is the part of the quiz API the catalog screens use.
type CatalogAPI interface {
	Fields() *apiclient.Resource[model.Field]
	Topics() *apiclient.Resource[model.Topic]
	Questions() *apiclient.Resource[model.Question]
	SaveChoices(ctx context.Context, token string, choice model.Choice) error
}

// CatalogHandler serves the fields, topics and questions screens.
type CatalogHandler struct {
	sessionDeps
	api          CatalogAPI
	eventService *service.EventService
}

// NewCatalogHandler creates a new CatalogHandler. Mirrors are kept in c for mirrorTTL.
func NewCatalogHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, c cache.Cacher, mirrorTTL time.Duration, api CatalogAPI) *CatalogHandler {
	return &CatalogHandler{
		sessionDeps:  sessionDeps{renderer: renderer, sm: sm, cache: c, mirrorTTL: mirrorTTL},
		api:          api,
		eventService: service.NewEventService(db),
	}
}

// CRUD is the set of routes of one catalog screen.
type CRUD interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Edit(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	ConfirmDelete(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

// RegisterCRUD mounts a catalog screen on r.
func RegisterCRUD(r chi.Router, c CRUD) {
	r.Get(RouteRoot, c.List)
	r.Post(RouteRoot, c.Create)
	r.Get(RouteIDEdit, c.Edit)
	r.Post(RouteParamID, c.Update)
	r.Get(RouteIDDelete, c.ConfirmDelete)
	r.Post(RouteIDDelete, c.Delete)
}

// catalogView is the Data of the list and edit pages.
type catalogView struct {
	Path          string
	ID            int64
	Items         any
	LoadError     string
	Fields        []model.Field
	Topics        []model.Topic
	FieldNames    map[int64]string
	TopicNames    map[int64]string
	TopicFilter   int64
	QuestionTypes []model.QuestionType
}

// RefreshQuery is the query string that reloads the list, keeping the
// active topic filter.
func (v catalogView) RefreshQuery() string {
	if v.TopicFilter > 0 {
		return "?refresh=1&topic=" + strconv.FormatInt(v.TopicFilter, 10)
	}
	return "?refresh=1"
}

type confirmView struct {
	Singular string
	Name     string
	Cascade  string
	Path     string
	ID       int64
}

var questionTypes = []model.QuestionType{model.QuestionChoose, model.QuestionTrueFalse}

// catalogRequest carries the per-request state of a catalog screen.
type catalogRequest struct {
	r        *http.Request
	token    string
	ws       *catalog.Workspace
	view     *catalogView
	warnings []string
}

// lookup records a failed load of a supporting list. Only an unauthorized
// error is returned; anything else becomes a warning on the page.
func (rq *catalogRequest) lookup(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return err
	}
	slog.Warn("failed to load "+what, "error", err)
	rq.warnings = append(rq.warnings, "Could not load "+what+": "+apiclient.Message(err))
	return nil
}

// mountScreen opens the stored mirror of def.Kind and fetches it when it is
// missing, expired or force is set.
func mountScreen[T catalog.Entity, In any](rq *catalogRequest, def catalog.Definition[T, In], res catalog.Resource[T], force bool) (*catalog.Screen[T, In], error) {
	ctx := rq.r.Context()
	s := catalog.NewScreen(def, res, catalog.OpenMirror[T](ctx, rq.ws, def.Kind))
	if s.Mirror().Loaded() && !force {
		return s, nil
	}
	if err := s.Load(ctx, rq.token); err != nil {
		return s, err
	}
	if err := catalog.SaveMirror(ctx, rq.ws, def.Kind, s.Mirror()); err != nil {
		slog.Warn("failed to store mirror", "kind", def.Kind, "error", err)
	}
	return s, nil
}

func nameIndex[T catalog.Entity](items []T) map[int64]string {
	names := make(map[int64]string, len(items))
	for _, it := range items {
		names[it.EntityID()] = it.DisplayName()
	}
	return names
}

// crud serves one catalog screen.
type crud[T catalog.Entity, In any] struct {
	*CatalogHandler
	kind     string
	singular string
	path     string
	nav      string
	title    string
	listPage string
	editPage string
	cascade  string

	// open loads the screen and whatever its pages need besides it.
	open   func(rq *catalogRequest, force bool) (*catalog.Screen[T, In], error)
	parse  func(r *http.Request) (In, map[string]string)
	formOf func(item T) map[string]string
	filter func(rq *catalogRequest, items []T) []T
}

// Fields returns the fields screen.
func (h *CatalogHandler) Fields() CRUD {
	return &crud[model.Field, catalog.FieldInput]{
		CatalogHandler: h,
		kind:           catalog.KindFields,
		singular:       "field",
		path:           redirectAdminFields,
		nav:            "fields",
		title:          "Fields",
		listPage:       "admin/fields.html",
		editPage:       "admin/field_edit.html",
		cascade:        "Its topics and their questions are deleted by the quiz service as well.",
		open: func(rq *catalogRequest, force bool) (*catalog.Screen[model.Field, catalog.FieldInput], error) {
			return mountScreen(rq, catalog.FieldDefinition(), h.api.Fields(), force)
		},
		parse: func(r *http.Request) (catalog.FieldInput, map[string]string) {
			name := strings.TrimSpace(r.PostFormValue("name"))
			return catalog.FieldInput{Name: name}, map[string]string{"name": name}
		},
		formOf: func(f model.Field) map[string]string {
			return map[string]string{"name": f.Name}
		},
	}
}

// Topics returns the topics screen.
func (h *CatalogHandler) Topics() CRUD {
	return &crud[model.Topic, catalog.TopicInput]{
		CatalogHandler: h,
		kind:           catalog.KindTopics,
		singular:       "topic",
		path:           redirectAdminTopics,
		nav:            "topics",
		title:          "Topics",
		listPage:       "admin/topics.html",
		editPage:       "admin/topic_edit.html",
		cascade:        "Its questions are deleted by the quiz service as well.",
		open: func(rq *catalogRequest, force bool) (*catalog.Screen[model.Topic, catalog.TopicInput], error) {
			fields, err := mountScreen(rq, catalog.FieldDefinition(), h.api.Fields(), false)
			if err := rq.lookup(err, "fields"); err != nil {
				return nil, err
			}
			rq.view.Fields = fields.Mirror().Items()
			rq.view.FieldNames = nameIndex(rq.view.Fields)
			return mountScreen(rq, catalog.TopicDefinition(fields.Mirror()), h.api.Topics(), force)
		},
		parse: func(r *http.Request) (catalog.TopicInput, map[string]string) {
			form := map[string]string{
				"name":     strings.TrimSpace(r.PostFormValue("name")),
				"field_id": strings.TrimSpace(r.PostFormValue("field_id")),
			}
			return catalog.TopicInput{Name: form["name"], FieldID: formID(form["field_id"])}, form
		},
		formOf: func(t model.Topic) map[string]string {
			return map[string]string{"name": t.Name, "field_id": strconv.FormatInt(t.FieldID, 10)}
		},
	}
}

// Questions returns the questions screen.
func (h *CatalogHandler) Questions() CRUD {
	return &crud[model.Question, catalog.QuestionInput]{
		CatalogHandler: h,
		kind:           catalog.KindQuestions,
		singular:       "question",
		path:           redirectAdminQuestions,
		nav:            "questions",
		title:          "Questions",
		listPage:       "admin/questions.html",
		editPage:       "admin/question_edit.html",
		open: func(rq *catalogRequest, force bool) (*catalog.Screen[model.Question, catalog.QuestionInput], error) {
			topics, err := mountScreen(rq, catalog.TopicDefinition(nil), h.api.Topics(), false)
			if err := rq.lookup(err, "topics"); err != nil {
				return nil, err
			}
			rq.view.Topics = topics.Mirror().Items()
			rq.view.TopicNames = nameIndex(rq.view.Topics)
			return mountScreen(rq, catalog.QuestionDefinition(topics.Mirror(), h.api), h.api.Questions(), force)
		},
		parse:  parseQuestionForm,
		formOf: questionForm,
		filter: func(rq *catalogRequest, items []model.Question) []model.Question {
			topic := formID(rq.r.URL.Query().Get("topic"))
			rq.view.TopicFilter = topic
			if topic <= 0 {
				return items
			}
			out := items[:0]
			for _, q := range items {
				if q.TopicID == topic {
					out = append(out, q)
				}
			}
			return out
		},
	}
}

func parseQuestionForm(r *http.Request) (catalog.QuestionInput, map[string]string) {
	form := make(map[string]string, 8)
	for _, key := range []string{"topic_id", "type", "question", "answer", "answer_a", "answer_b", "answer_c", "answer_d"} {
		form[key] = strings.TrimSpace(r.PostFormValue(key))
	}
	return catalog.QuestionInput{
		TopicID: formID(form["topic_id"]),
		Type:    model.QuestionType(form["type"]),
		Text:    form["question"],
		Answer:  form["answer"],
		Choices: [4]string{form["answer_a"], form["answer_b"], form["answer_c"], form["answer_d"]},
	}, form
}

// questionForm prefills the edit form. Choices are not returned by the
// quiz API, so only the fixed true-or-false options can be shown.
func questionForm(q model.Question) map[string]string {
	form := map[string]string{
		"topic_id": strconv.FormatInt(q.TopicID, 10),
		"type":     string(q.Type),
		"question": q.Text,
		"answer":   q.Answer,
	}
	if q.Type == model.QuestionTrueFalse {
		form["answer_a"] = model.TrueFalseChoices[0]
		form["answer_b"] = model.TrueFalseChoices[1]
	}
	return form
}

// formID parses a positive id from a form or query value, or returns 0.
func formID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func capitalize(s string) string {
	return cases.Title(language.English).String(s)
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// begin starts a catalog request. Without a token the browser is sent to
// the login page and false is returned.
func (c *crud[T, In]) begin(w http.ResponseWriter, r *http.Request) (*catalogRequest, bool) {
	var token string
	if ac := middleware.GetAuth(r); ac != nil {
		token = ac.Token()
	}
	if token == "" {
		http.Redirect(w, r, redirectLogin, http.StatusSeeOther)
		return nil, false
	}
	return &catalogRequest{
		r:     r,
		token: token,
		ws:    c.openWorkspace(r),
		view:  &catalogView{Path: c.path, QuestionTypes: questionTypes},
	}, true
}

// unauthorized tears the session down when err says the token is no longer valid.
func (c *crud[T, In]) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	c.expireSession(w, r)
	return true
}

func (c *crud[T, In]) saveMirror(rq *catalogRequest, s *catalog.Screen[T, In]) {
	if err := catalog.SaveMirror(rq.r.Context(), rq.ws, c.kind, s.Mirror()); err != nil {
		slog.Warn("failed to store mirror", "kind", c.kind, "error", err)
	}
}

func (c *crud[T, In]) logEvent(r *http.Request, verb string, id int64) {
	_ = c.eventService.LogCatalogEvent(r.Context(), capitalize(c.singular)+" "+verb, middleware.GetUserIDPtr(r), util.ClientIP(r), c.kind, id)
}

// renderForm renders the list page when id is 0 and the edit page otherwise.
func (c *crud[T, In]) renderForm(w http.ResponseWriter, rq *catalogRequest, s *catalog.Screen[T, In], id int64, status int, form, errs map[string]string, flash string) {
	name := c.listPage
	title := c.title
	if id > 0 {
		name = c.editPage
		title = "Edit " + c.singular
		rq.view.ID = id
	} else {
		items := s.Mirror().Items()
		if c.filter != nil {
			items = c.filter(rq, items)
		}
		rq.view.Items = items
		if rq.view.TopicFilter > 0 && form["topic_id"] == "" {
			form["topic_id"] = strconv.FormatInt(rq.view.TopicFilter, 10)
		}
	}

	data := render.TemplateData{
		Title:  title,
		Nav:    c.nav,
		User:   middleware.GetUser(rq.r),
		Data:   rq.view,
		Form:   form,
		Errors: errs,
	}
	switch {
	case flash != "":
		data.Flash, data.FlashType = flash, flashTypeError
	case len(rq.warnings) > 0:
		data.Flash, data.FlashType = strings.Join(rq.warnings, " "), flashTypeWarning
	}
	renderPage(w, rq.r, c.renderer, status, name, data)
}

// List renders the collection. ?refresh=1 refetches it from the API.
func (c *crud[T, In]) List(w http.ResponseWriter, r *http.Request) {
	rq, ok := c.begin(w, r)
	if !ok {
		return
	}

	s, err := c.open(rq, r.URL.Query().Get("refresh") != "")
	if err != nil {
		if c.unauthorized(w, r, err) {
			return
		}
		slog.Warn("failed to load "+c.kind, "error", err)
		rq.view.LoadError = apiclient.Message(err)
	}

	c.renderForm(w, rq, s, 0, http.StatusOK, map[string]string{}, nil, "")
}

// Create handles the add form on the list page.
func (c *crud[T, In]) Create(w http.ResponseWriter, r *http.Request) {
	rq, ok := c.begin(w, r)
	if !ok {
		return
	}
	if !parseFormOrRedirect(w, r, c.renderer, c.path) {
		return
	}
	in, form := c.parse(r)

	s, err := c.open(rq, false)
	if err != nil {
		if c.unauthorized(w, r, err) {
			return
		}
		rq.view.LoadError = apiclient.Message(err)
	}

	saved, err := s.Create(r.Context(), rq.token, in)
	c.finishSave(w, rq, s, saved, err, form, 0)
}

// Edit renders the edit form of one item.
func (c *crud[T, In]) Edit(w http.ResponseWriter, r *http.Request) {
	item, rq, s, ok := c.find(w, r)
	if !ok {
		return
	}
	c.renderForm(w, rq, s, item.EntityID(), http.StatusOK, c.formOf(item), nil, "")
}

// Update handles the edit form.
func (c *crud[T, In]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	rq, ok := c.begin(w, r)
	if !ok {
		return
	}
	if !parseFormOrRedirect(w, r, c.renderer, c.path) {
		return
	}
	in, form := c.parse(r)

	s, err := c.open(rq, false)
	if err != nil && c.unauthorized(w, r, err) {
		return
	}

	saved, err := s.Update(r.Context(), rq.token, id, in)
	c.finishSave(w, rq, s, saved, err, form, id)
}

// finishSave turns the outcome of a create (id 0) or update into a response.
func (c *crud[T, In]) finishSave(w http.ResponseWriter, rq *catalogRequest, s *catalog.Screen[T, In], saved T, err error, form map[string]string, id int64) {
	r := rq.r

	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		c.renderForm(w, rq, s, id, http.StatusUnprocessableEntity, form, ve.Messages(), "")
		return
	case c.unauthorized(w, r, err):
		return
	case err != nil && !errors.Is(err, catalog.ErrChoicesFailed):
		slog.Warn("failed to save "+c.singular, "id", id, "error", err)
		c.renderForm(w, rq, s, id, http.StatusBadGateway, form, nil, apiclient.Message(err))
		return
	}

	// The item exists server-side from here on.
	c.saveMirror(rq, s)

	verb := "created"
	if id > 0 {
		verb = "updated"
	}
	c.logEvent(r, verb, saved.EntityID())

	if errors.Is(err, catalog.ErrChoicesFailed) {
		slog.Warn("choices not saved", "question_id", saved.EntityID(), "error", err)
		flashAndRedirect(w, r, c.renderer, c.path,
			fmt.Sprintf("%s %s, but its choices could not be saved: %s", capitalize(c.singular), verb, apiclient.Message(err)),
			flashTypeWarning)
		return
	}
	flashSuccess(w, r, c.renderer, c.path, capitalize(c.singular)+" "+verb+".")
}

// find loads the screen and looks up the {id} item. On failure the response
// has been written and ok is false.
func (c *crud[T, In]) find(w http.ResponseWriter, r *http.Request) (item T, rq *catalogRequest, s *catalog.Screen[T, In], ok bool) {
	id, ok := parseIDParam(r)
	if !ok {
		http.NotFound(w, r)
		return item, nil, nil, false
	}
	rq, ok = c.begin(w, r)
	if !ok {
		return item, nil, nil, false
	}

	s, err := c.open(rq, false)
	if err != nil {
		if !c.unauthorized(w, r, err) {
			flashError(w, r, c.renderer, c.path, apiclient.Message(err))
		}
		return item, nil, nil, false
	}

	item, found := s.Mirror().Find(id)
	if !found {
		flashError(w, r, c.renderer, c.path, capitalize(c.singular)+" not found. Refresh the list and try again.")
		return item, nil, nil, false
	}
	return item, rq, s, true
}

// ConfirmDelete renders the delete confirmation page.
func (c *crud[T, In]) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	item, rq, _, ok := c.find(w, r)
	if !ok {
		return
	}
	renderPage(w, r, c.renderer, http.StatusOK, "admin/confirm_delete.html", render.TemplateData{
		Title: "Delete " + c.singular,
		Nav:   c.nav,
		User:  middleware.GetUser(r),
		Data: confirmView{
			Singular: c.singular,
			Name:     shorten(c.renderer.PlainText(item.DisplayName()), 80),
			Cascade:  c.cascade,
			Path:     rq.view.Path,
			ID:       item.EntityID(),
		},
	})
}

// Delete removes an item once the confirmation form was submitted.
// Dependent mirrors are dropped because the server cascades the delete.
func (c *crud[T, In]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	rq, ok := c.begin(w, r)
	if !ok {
		return
	}
	if !parseFormOrRedirect(w, r, c.renderer, c.path) {
		return
	}
	confirmed := r.PostFormValue("confirm") == "yes"

	s, err := c.open(rq, false)
	if err != nil && c.unauthorized(w, r, err) {
		return
	}

	if err := s.Delete(r.Context(), rq.token, id, confirmed); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotConfirmed):
			http.Redirect(w, r, fmt.Sprintf("%s/%d%s", c.path, id, RouteSuffixDelete), http.StatusSeeOther)
		case c.unauthorized(w, r, err):
		default:
			slog.Warn("failed to delete "+c.singular, "id", id, "error", err)
			flashError(w, r, c.renderer, c.path, apiclient.Message(err))
		}
		return
	}

	c.saveMirror(rq, s)
	if deps := s.Definition().Dependents; len(deps) > 0 {
		if err := rq.ws.Invalidate(r.Context(), deps...); err != nil {
			slog.Warn("failed to invalidate dependent mirrors", "kinds", deps, "error", err)
		}
	}

	c.logEvent(r, "deleted", id)
	flashSuccess(w, r, c.renderer, c.path, capitalize(c.singular)+" deleted.")
}
