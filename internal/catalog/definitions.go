// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/olegiv/quizzer/internal/model"
)

// Collection kinds.
const (
	KindFields    = "fields"
	KindTopics    = "topics"
	KindQuestions = "questions"
)

// MaxNameLength bounds field and topic names.
const MaxNameLength = 255

// FieldInput is the field form.
type FieldInput struct {
	Name string
}

// TopicInput is the topic form.
type TopicInput struct {
	Name    string
	FieldID int64
}

// QuestionInput is the question form. Choices are ignored for
// true-or-false questions.
type QuestionInput struct {
	TopicID int64
	Type    model.QuestionType
	Text    string
	Answer  string
	Choices [4]string
}

// EffectiveChoices returns the choices that will be stored for the question.
func (in QuestionInput) EffectiveChoices() [4]string {
	if in.Type == model.QuestionTrueFalse {
		return model.TrueFalseChoices
	}
	var out [4]string
	for i, c := range in.Choices {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func validateName(errs map[string]string, kind, name string) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		errs["name"] = kind + " name is required"
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs["name"] = fmt.Sprintf("%s name must be at most %d characters", kind, MaxNameLength)
	}
}

// FieldDefinition configures the fields screen.
func FieldDefinition() Definition[model.Field, FieldInput] {
	return Definition[model.Field, FieldInput]{
		Kind:     KindFields,
		Singular: "field",
		Validate: func(in FieldInput, items []model.Field, selfID int64) map[string]string {
			errs := make(map[string]string)
			validateName(errs, "Field", in.Name)
			if _, bad := errs["name"]; !bad && NameTaken(items, in.Name, selfID) {
				errs["name"] = "Field name already exists"
			}
			return errs
		},
		Body: func(in FieldInput) any {
			return map[string]any{"name": strings.TrimSpace(in.Name)}
		},
		Dependents: []string{KindTopics, KindQuestions},
	}
}

// TopicDefinition configures the topics screen. When fields is loaded the
// chosen field must be one of its items.
func TopicDefinition(fields *Mirror[model.Field]) Definition[model.Topic, TopicInput] {
	return Definition[model.Topic, TopicInput]{
		Kind:     KindTopics,
		Singular: "topic",
		Validate: func(in TopicInput, items []model.Topic, selfID int64) map[string]string {
			errs := make(map[string]string)
			validateName(errs, "Topic", in.Name)
			if _, bad := errs["name"]; !bad && NameTaken(items, in.Name, selfID) {
				errs["name"] = "Topic name already exists"
			}
			if in.FieldID <= 0 {
				errs["field_id"] = "Please select a field"
			} else if fields != nil && fields.Loaded() {
				if _, ok := fields.Find(in.FieldID); !ok {
					errs["field_id"] = "Selected field does not exist"
				}
			}
			return errs
		},
		Body: func(in TopicInput) any {
			return map[string]any{"name": strings.TrimSpace(in.Name), "field_id": in.FieldID}
		},
		Dependents: []string{KindQuestions},
	}
}

// ChoiceSaver stores the answer options of a question.
type ChoiceSaver interface {
	SaveChoices(ctx context.Context, token string, choice model.Choice) error
}

// QuestionDefinition configures the questions screen. When topics is loaded
// the chosen topic must be one of its items. Choices are saved through
// choices after the question itself.
func QuestionDefinition(topics *Mirror[model.Topic], choices ChoiceSaver) Definition[model.Question, QuestionInput] {
	def := Definition[model.Question, QuestionInput]{
		Kind:     KindQuestions,
		Singular: "question",
		Validate: func(in QuestionInput, _ []model.Question, _ int64) map[string]string {
			return validateQuestion(in, topics)
		},
		Body: func(in QuestionInput) any {
			return map[string]any{
				"topic_id": in.TopicID,
				"type":     string(in.Type),
				"question": strings.TrimSpace(in.Text),
				"answer":   strings.TrimSpace(in.Answer),
			}
		},
	}

	if choices != nil {
		def.AfterSave = func(ctx context.Context, token string, saved model.Question, in QuestionInput) error {
			c := in.EffectiveChoices()
			err := choices.SaveChoices(ctx, token, model.Choice{
				QuestionID: saved.ID,
				AnswerA:    c[0],
				AnswerB:    c[1],
				AnswerC:    c[2],
				AnswerD:    c[3],
			})
			if err != nil {
				return fmt.Errorf("%w: %w", ErrChoicesFailed, err)
			}
			return nil
		}
	}
	return def
}

func validateQuestion(in QuestionInput, topics *Mirror[model.Topic]) map[string]string {
	errs := make(map[string]string)

	if in.TopicID <= 0 {
		errs["topic_id"] = "Please select a topic"
	} else if topics != nil && topics.Loaded() {
		if _, ok := topics.Find(in.TopicID); !ok {
			errs["topic_id"] = "Selected topic does not exist"
		}
	}

	if strings.TrimSpace(in.Text) == "" {
		errs["question"] = "Question text is required"
	}

	if !in.Type.Valid() {
		errs["type"] = "Please select a question type"
		return errs
	}

	answer := strings.TrimSpace(in.Answer)
	choices := in.EffectiveChoices()

	if in.Type == model.QuestionChoose {
		for i, c := range choices {
			if c == "" {
				errs[fmt.Sprintf("answer_%c", 'a'+i)] = "Choice is required"
			}
		}
	}

	switch {
	case answer == "":
		errs["answer"] = "Answer is required"
	case !slices.Contains(choices[:], answer):
		errs["answer"] = "Answer must match one of the choices"
	}
	return errs
}
