// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Field is a top-level quiz category, e.g. "Mathematics".
type Field struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// EntityID returns the server-assigned ID.
func (f Field) EntityID() int64 { return f.ID }

// DisplayName returns the field name.
func (f Field) DisplayName() string { return f.Name }

// Topic is a subcategory within a Field.
type Topic struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	FieldID   int64      `json:"field_id"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// EntityID returns the server-assigned ID.
func (t Topic) EntityID() int64 { return t.ID }

// DisplayName returns the topic name.
func (t Topic) DisplayName() string { return t.Name }

// QuestionType is the answer format of a question.
type QuestionType string

// Question types understood by the quiz API.
const (
	QuestionChoose    QuestionType = "choose"
	QuestionTrueFalse QuestionType = "true or false"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == QuestionChoose || t == QuestionTrueFalse
}

// Label returns a human-readable name for the type.
func (t QuestionType) Label() string {
	switch t {
	case QuestionChoose:
		return "Multiple Choice"
	case QuestionTrueFalse:
		return "True or False"
	default:
		return string(t)
	}
}

// Question is a quiz item belonging to a Topic.
type Question struct {
	ID        int64        `json:"id"`
	TopicID   int64        `json:"topic_id"`
	Type      QuestionType `json:"type"`
	Text      string       `json:"question"`
	Answer    string       `json:"answer"`
	CreatedAt *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt *time.Time   `json:"updatedAt,omitempty"`
	DeletedAt *time.Time   `json:"deletedAt,omitempty"`
}

// EntityID returns the server-assigned ID.
func (q Question) EntityID() int64 { return q.ID }

// DisplayName returns the question text.
func (q Question) DisplayName() string { return q.Text }

// Choice holds the answer options of a question.
type Choice struct {
	QuestionID int64  `json:"question_id"`
	AnswerA    string `json:"answer_a"`
	AnswerB    string `json:"answer_b"`
	AnswerC    string `json:"answer_c"`
	AnswerD    string `json:"answer_d"`
}

// TrueFalseChoices are the fixed options of a true-or-false question.
var TrueFalseChoices = [4]string{"True", "False", "", ""}
