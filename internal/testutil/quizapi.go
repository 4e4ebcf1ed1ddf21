// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/quizzer/internal/model"
)

type apiUser struct {
	model.User
	password string
}

// QuizAPI is an in-memory quiz REST API served over httptest. Deletes
// cascade the way the real service does.
type QuizAPI struct {
	Server *httptest.Server

	mu        sync.Mutex
	users     []apiUser
	tokens    map[string]int64
	fields    []model.Field
	topics    []model.Topic
	questions []model.Question
	choices   []model.Choice
	nextID    int64
	nextToken int
	requests  []string
	failPath  map[string]int
}

// NewQuizAPI starts a fake API that is closed when the test ends.
func NewQuizAPI(t *testing.T) *QuizAPI {
	t.Helper()

	api := &QuizAPI{
		tokens:   make(map[string]int64),
		failPath: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(api.record)
	r.Head("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/user/login", api.login)
	r.Post("/user", api.register)
	r.With(api.authorize).Get("/user/{id}", api.getUser)

	r.Group(func(r chi.Router) {
		r.Use(api.authorize)
		r.Get("/fields", api.listFields)
		r.Post("/fields", api.createField)
		r.Patch("/fields/{id}", api.updateField)
		r.Delete("/fields/{id}", api.deleteField)

		r.Get("/topics", api.listTopics)
		r.Post("/topics", api.createTopic)
		r.Patch("/topics/{id}", api.updateTopic)
		r.Delete("/topics/{id}", api.deleteTopic)

		r.Get("/question", api.listQuestions)
		r.Post("/question", api.createQuestion)
		r.Patch("/question/{id}", api.updateQuestion)
		r.Delete("/question/{id}", api.deleteQuestion)

		r.Post("/choice", api.saveChoice)
	})

	api.Server = httptest.NewServer(r)
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the base URL of the fake API.
func (a *QuizAPI) URL() string {
	return a.Server.URL
}

// AddUser registers an account and returns its record.
func (a *QuizAPI) AddUser(email, password, name string, role model.Role) model.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	u := model.User{ID: a.nextID, Email: email, UserName: name, Role: role}
	a.users = append(a.users, apiUser{User: u, password: password})
	return u
}

// IssueToken returns a valid bearer token for userID.
func (a *QuizAPI) IssueToken(userID int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issueLocked(userID)
}

func (a *QuizAPI) issueLocked(userID int64) string {
	a.nextToken++
	tok := "tok" + strconv.Itoa(a.nextToken)
	a.tokens[tok] = userID
	return tok
}

// RevokeTokens makes every issued token answer 401.
func (a *QuizAPI) RevokeTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.tokens)
}

// FailNext makes the next request to "METHOD /path" answer with status.
func (a *QuizAPI) FailNext(method, path string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failPath[method+" "+path] = status
}

// SeedField stores a field directly.
func (a *QuizAPI) SeedField(name string) model.Field {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	f := model.Field{ID: a.nextID, Name: name}
	a.fields = append(a.fields, f)
	return f
}

// SeedTopic stores a topic directly.
func (a *QuizAPI) SeedTopic(name string, fieldID int64) model.Topic {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	tp := model.Topic{ID: a.nextID, Name: name, FieldID: fieldID}
	a.topics = append(a.topics, tp)
	return tp
}

// SeedQuestion stores a question directly.
func (a *QuizAPI) SeedQuestion(q model.Question) model.Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	q.ID = a.nextID
	a.questions = append(a.questions, q)
	return q
}

// Fields returns the stored fields.
func (a *QuizAPI) Fields() []model.Field {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.fields)
}

// Topics returns the stored topics.
func (a *QuizAPI) Topics() []model.Topic {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.topics)
}

// Questions returns the stored questions.
func (a *QuizAPI) Questions() []model.Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.questions)
}

// Choices returns the stored choice sets.
func (a *QuizAPI) Choices() []model.Choice {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.choices)
}

// Requests returns "METHOD /path" for every request received.
func (a *QuizAPI) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.requests)
}

// CountRequests returns how many requests matched "METHOD /path".
func (a *QuizAPI) CountRequests(line string) int {
	n := 0
	for _, r := range a.Requests() {
		if r == line {
			n++
		}
	}
	return n
}

func (a *QuizAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.Path
		a.mu.Lock()
		a.requests = append(a.requests, line)
		status, fail := a.failPath[line]
		delete(a.failPath, line)
		a.mu.Unlock()

		if fail {
			writeJSON(w, status, map[string]any{"statusCode": status, "message": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *QuizAPI) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		a.mu.Lock()
		_, ok := a.tokens[tok]
		a.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func wireUser(u model.User) map[string]any {
	return map[string]any{"id": u.ID, "email": u.Email, "user_name": u.UserName, "role": string(u.Role)}
}

func (a *QuizAPI) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad request"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.users {
		if u.Email == in.Email && u.password == in.Password {
			writeJSON(w, http.StatusOK, map[string]any{"user": wireUser(u.User), "token": a.issueLocked(u.ID)})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Invalid email or password"})
}

func (a *QuizAPI) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		UserName string `json:"user_name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad request"})
		return
	}

	a.mu.Lock()
	for _, u := range a.users {
		if strings.EqualFold(u.Email, in.Email) {
			a.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"statusCode": 200, "message": "Email already exists"})
			return
		}
	}
	a.mu.Unlock()

	u := a.AddUser(in.Email, in.Password, in.UserName, model.ParseRole(in.Role))
	writeJSON(w, http.StatusCreated, wireUser(u))
}

func (a *QuizAPI) getUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"statusCode": 200, "data": wireUser(u.User)})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "User not found"})
}

func (a *QuizAPI) listFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Fields())
}

func (a *QuizAPI) createField(w http.ResponseWriter, r *http.Request) {
	var f model.Field
	if !decode(w, r, &f) {
		return
	}
	a.mu.Lock()
	a.nextID++
	f.ID = a.nextID
	a.fields = append(a.fields, f)
	a.mu.Unlock()
	writeJSON(w, http.StatusCreated, f)
}

func (a *QuizAPI) updateField(w http.ResponseWriter, r *http.Request) {
	var in model.Field
	if !decode(w, r, &in) {
		return
	}
	in.ID = urlID(r)
	a.mu.Lock()
	i := slices.IndexFunc(a.fields, func(f model.Field) bool { return f.ID == in.ID })
	if i >= 0 {
		a.fields[i] = in
	}
	a.mu.Unlock()
	respondUpdated(w, i, in)
}

func (a *QuizAPI) deleteField(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	a.mu.Lock()
	n := len(a.fields)
	a.fields = slices.DeleteFunc(a.fields, func(f model.Field) bool { return f.ID == id })
	removed := n != len(a.fields)
	var orphaned []int64
	a.topics = slices.DeleteFunc(a.topics, func(t model.Topic) bool {
		if t.FieldID == id {
			orphaned = append(orphaned, t.ID)
			return true
		}
		return false
	})
	a.questions = slices.DeleteFunc(a.questions, func(q model.Question) bool { return slices.Contains(orphaned, q.TopicID) })
	a.mu.Unlock()
	respondDeleted(w, removed)
}

func (a *QuizAPI) listTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"statusCode": 200, "data": a.Topics()})
}

func (a *QuizAPI) createTopic(w http.ResponseWriter, r *http.Request) {
	var tp model.Topic
	if !decode(w, r, &tp) {
		return
	}
	a.mu.Lock()
	a.nextID++
	tp.ID = a.nextID
	a.topics = append(a.topics, tp)
	a.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"statusCode": 201, "data": tp})
}

func (a *QuizAPI) updateTopic(w http.ResponseWriter, r *http.Request) {
	var in model.Topic
	if !decode(w, r, &in) {
		return
	}
	in.ID = urlID(r)
	a.mu.Lock()
	i := slices.IndexFunc(a.topics, func(t model.Topic) bool { return t.ID == in.ID })
	if i >= 0 {
		a.topics[i] = in
	}
	a.mu.Unlock()
	respondUpdated(w, i, in)
}

func (a *QuizAPI) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	a.mu.Lock()
	n := len(a.topics)
	a.topics = slices.DeleteFunc(a.topics, func(t model.Topic) bool { return t.ID == id })
	removed := n != len(a.topics)
	a.questions = slices.DeleteFunc(a.questions, func(q model.Question) bool { return q.TopicID == id })
	a.mu.Unlock()
	respondDeleted(w, removed)
}

func (a *QuizAPI) listQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Questions())
}

func (a *QuizAPI) createQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if !decode(w, r, &q) {
		return
	}
	a.mu.Lock()
	a.nextID++
	q.ID = a.nextID
	a.questions = append(a.questions, q)
	a.mu.Unlock()
	writeJSON(w, http.StatusCreated, q)
}

func (a *QuizAPI) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var in model.Question
	if !decode(w, r, &in) {
		return
	}
	in.ID = urlID(r)
	a.mu.Lock()
	i := slices.IndexFunc(a.questions, func(q model.Question) bool { return q.ID == in.ID })
	if i >= 0 {
		a.questions[i] = in
	}
	a.mu.Unlock()
	respondUpdated(w, i, in)
}

func (a *QuizAPI) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	a.mu.Lock()
	n := len(a.questions)
	a.questions = slices.DeleteFunc(a.questions, func(q model.Question) bool { return q.ID == id })
	removed := n != len(a.questions)
	a.mu.Unlock()
	respondDeleted(w, removed)
}

func (a *QuizAPI) saveChoice(w http.ResponseWriter, r *http.Request) {
	var c model.Choice
	if !decode(w, r, &c) {
		return
	}
	a.mu.Lock()
	a.choices = append(a.choices, c)
	a.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

func urlID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": fmt.Sprintf("bad request: %v", err)})
		return false
	}
	return true
}

func respondUpdated(w http.ResponseWriter, index int, v any) {
	if index < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func respondDeleted(w http.ResponseWriter, removed bool) {
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
