// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/quizzer/internal/model"
)

const (
	pathFields    = RouteAdmin + RouteFields
	pathTopics    = RouteAdmin + RouteTopics
	pathQuestions = RouteAdmin + RouteQuestions
)

func TestFields_ListIsMirrored(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	app.api.SeedField("Mathematics")

	resp := app.get(t, pathFields)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Mathematics")

	app.api.SeedField("Biology")
	resp = app.get(t, pathFields)
	assert.NotContains(t, resp.body, "Biology", "second view served from the mirror")
	assert.Equal(t, 1, app.api.CountRequests("GET /fields"))

	resp = app.get(t, pathFields+"?refresh=1")
	assert.Contains(t, resp.body, "Biology")
	assert.Equal(t, 2, app.api.CountRequests("GET /fields"))
}

func TestFields_UnauthorizedTearsDownSession(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	app.api.FailNext(http.MethodGet, "/fields", http.StatusUnauthorized)

	resp := app.get(t, pathFields)
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)

	resp = app.get(t, RouteLogin)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Your session has expired")

	resp = app.get(t, RouteAdmin)
	assert.Equal(t, RouteLogin, resp.location)
}

func TestFields_LoadErrorShownInline(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	app.api.FailNext(http.MethodGet, "/fields", http.StatusInternalServerError)

	resp := app.get(t, pathFields)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, http.StatusText(http.StatusInternalServerError))

	// A failed load is not cached.
	app.api.SeedField("Physics")
	resp = app.get(t, pathFields)
	assert.Contains(t, resp.body, "Physics")
}

func TestFields_CreateAndDuplicate(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)

	resp := app.post(t, pathFields, url.Values{"name": {"Mathematics"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, pathFields, resp.location)
	require.Len(t, app.api.Fields(), 1)

	resp = app.get(t, pathFields)
	assert.Contains(t, resp.body, "Field created.")
	assert.Contains(t, resp.body, "Mathematics")

	resp = app.post(t, pathFields, url.Values{"name": {"  mathematics "}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Field name already exists")
	assert.Equal(t, 1, app.api.CountRequests("POST /fields"))

	resp = app.post(t, pathFields, url.Values{"name": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Field name is required")
}

func TestFields_EditAndUpdate(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Maths")
	app.api.SeedField("Physics")
	itemPath := fmt.Sprintf("%s/%d", pathFields, f.ID)

	resp := app.get(t, itemPath+RouteSuffixEdit)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, `value="Maths"`)

	resp = app.post(t, itemPath, url.Values{"name": {"Physics"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Field name already exists")

	// Renaming to its own name differing only in case is allowed.
	resp = app.post(t, itemPath, url.Values{"name": {"MATHS"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "MATHS", app.api.Fields()[0].Name)

	resp = app.get(t, pathFields)
	assert.Contains(t, resp.body, "Field updated.")
	assert.Contains(t, resp.body, "MATHS")
}

func TestFields_EditUnknownID(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)

	resp := app.get(t, pathFields+"/99"+RouteSuffixEdit)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, pathFields, resp.location)

	resp = app.get(t, pathFields+"/abc"+RouteSuffixEdit)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestFields_DeleteNeedsConfirmation(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Mathematics")
	deletePath := fmt.Sprintf("%s/%d%s", pathFields, f.ID, RouteSuffixDelete)

	resp := app.post(t, deletePath, url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, deletePath, resp.location)
	assert.Len(t, app.api.Fields(), 1)

	resp = app.get(t, deletePath)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Mathematics")
	assert.Contains(t, resp.body, "Its topics and their questions")

	resp = app.post(t, deletePath, url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, pathFields, resp.location)
	assert.Empty(t, app.api.Fields())

	resp = app.get(t, pathFields)
	assert.Contains(t, resp.body, "Field deleted.")
	assert.NotContains(t, resp.body, "<td>Mathematics</td>")
}

func TestFields_DeleteInvalidatesDependents(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Mathematics")
	app.api.SeedTopic("Algebra", f.ID)

	resp := app.get(t, pathTopics)
	require.Contains(t, resp.body, "Algebra")
	require.Equal(t, 1, app.api.CountRequests("GET /topics"))

	resp = app.post(t, fmt.Sprintf("%s/%d%s", pathFields, f.ID, RouteSuffixDelete), url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusSeeOther, resp.status)

	resp = app.get(t, pathTopics)
	assert.Equal(t, 2, app.api.CountRequests("GET /topics"))
	assert.NotContains(t, resp.body, "Algebra")
}

func TestTopics_CreateValidatesField(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Mathematics")

	resp := app.get(t, pathTopics)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Mathematics", "field select is populated")

	resp = app.post(t, pathTopics, url.Values{"name": {"Algebra"}, "field_id": {"999"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Selected field does not exist")

	resp = app.post(t, pathTopics, url.Values{"name": {"Algebra"}, "field_id": {fmt.Sprint(f.ID)}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	topics := app.api.Topics()
	require.Len(t, topics, 1)
	assert.Equal(t, f.ID, topics[0].FieldID)
}

func TestQuestions_CreateSavesChoices(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Mathematics")
	topic := app.api.SeedTopic("Arithmetic", f.ID)

	resp := app.post(t, pathQuestions, url.Values{
		"topic_id": {fmt.Sprint(topic.ID)},
		"type":     {string(model.QuestionChoose)},
		"question": {"What is 2 + 2?"},
		"answer":   {"4"},
		"answer_a": {"3"},
		"answer_b": {"4"},
		"answer_c": {"5"},
		"answer_d": {"22"},
	})
	require.Equal(t, http.StatusSeeOther, resp.status)

	questions := app.api.Questions()
	require.Len(t, questions, 1)
	assert.Equal(t, "What is 2 + 2?", questions[0].Text)

	choices := app.api.Choices()
	require.Len(t, choices, 1)
	assert.Equal(t, questions[0].ID, choices[0].QuestionID)
	assert.Equal(t, "22", choices[0].AnswerD)
}

func TestQuestions_TrueFalseUsesFixedChoices(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Mathematics")
	topic := app.api.SeedTopic("Logic", f.ID)

	resp := app.post(t, pathQuestions, url.Values{
		"topic_id": {fmt.Sprint(topic.ID)},
		"type":     {string(model.QuestionTrueFalse)},
		"question": {"Zero is even."},
		"answer":   {"True"},
	})
	require.Equal(t, http.StatusSeeOther, resp.status)

	choices := app.api.Choices()
	require.Len(t, choices, 1)
	assert.Equal(t, "True", choices[0].AnswerA)
	assert.Equal(t, "False", choices[0].AnswerB)
}

func TestQuestions_ChoiceFailureIsAWarning(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Mathematics")
	topic := app.api.SeedTopic("Logic", f.ID)
	app.api.FailNext(http.MethodPost, "/choice", http.StatusInternalServerError)

	resp := app.post(t, pathQuestions, url.Values{
		"topic_id": {fmt.Sprint(topic.ID)},
		"type":     {string(model.QuestionTrueFalse)},
		"question": {"Zero is even."},
		"answer":   {"True"},
	})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Len(t, app.api.Questions(), 1)

	resp = app.get(t, pathQuestions)
	assert.Contains(t, resp.body, "choices could not be saved")
	assert.Contains(t, resp.body, "Zero is even.")
}

func TestQuestions_InvalidFormRerenders(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)

	resp := app.post(t, pathQuestions, url.Values{
		"type":     {string(model.QuestionChoose)},
		"question": {""},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Please select a topic")
	assert.Contains(t, resp.body, "Question text is required")
	assert.Zero(t, app.api.CountRequests("POST /question"))
}

func TestQuestions_TopicFilter(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)
	f := app.api.SeedField("Mathematics")
	algebra := app.api.SeedTopic("Algebra", f.ID)
	geometry := app.api.SeedTopic("Geometry", f.ID)
	app.api.SeedQuestion(model.Question{TopicID: algebra.ID, Type: model.QuestionTrueFalse, Text: "Solve for x", Answer: "True"})
	app.api.SeedQuestion(model.Question{TopicID: geometry.ID, Type: model.QuestionTrueFalse, Text: "Count the angles", Answer: "True"})

	resp := app.get(t, pathQuestions)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Solve for x")
	assert.Contains(t, resp.body, "Count the angles")

	resp = app.get(t, fmt.Sprintf("%s?topic=%d", pathQuestions, algebra.ID))
	assert.Contains(t, resp.body, "Solve for x")
	assert.NotContains(t, resp.body, "Count the angles")
	assert.Contains(t, resp.body, fmt.Sprintf(`href="?refresh=1&amp;topic=%d"`, algebra.ID), "refresh keeps the filter")
	assert.Equal(t, 1, app.api.CountRequests("GET /question"))
}

func TestCatalogView_RefreshQuery(t *testing.T) {
	assert.Equal(t, "?refresh=1", catalogView{}.RefreshQuery())
	assert.Equal(t, "?refresh=1&topic=4", catalogView{TopicFilter: 4}.RefreshQuery())
}

func TestQuestionForm(t *testing.T) {
	form := questionForm(model.Question{ID: 3, TopicID: 7, Type: model.QuestionTrueFalse, Text: "Sky is blue", Answer: "True"})
	assert.Equal(t, "7", form["topic_id"])
	assert.Equal(t, "True", form["answer_a"])
	assert.Equal(t, "False", form["answer_b"])

	form = questionForm(model.Question{TopicID: 7, Type: model.QuestionChoose, Text: "Pick one", Answer: "b"})
	assert.Empty(t, form["answer_a"])
}

func TestFormID(t *testing.T) {
	assert.Equal(t, int64(12), formID(" 12 "))
	assert.Zero(t, formID(""))
	assert.Zero(t, formID("-4"))
	assert.Zero(t, formID("x"))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "héllo...", shorten("héllo world", 5))
}
