package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/quizzer/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestLogin_BareResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/user/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.com", in["email"])
		assert.Equal(t, "secret123", in["password"])

		_, _ = w.Write([]byte(`{"user":{"id":1,"email":"a@b.com","user_name":"alice","role":"admin"},"token":"tok1"}`))
	})

	res, err := c.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok1", res.Token)
	assert.Equal(t, &model.User{ID: 1, Email: "a@b.com", UserName: "alice", Role: model.RoleAdmin}, res.User)
}

func TestLogin_EnvelopedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statusCode":200,"message":"ok","data":{"access_token":"tok2","user":{"id":7,"email":"s@b.com","user_name":"sam","role":"user"}}}`))
	})

	res, err := c.Login(context.Background(), "s@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok2", res.Token)
	assert.Equal(t, int64(7), res.User.ID)
	assert.Equal(t, model.RoleStudent, res.User.Role)
	assert.Equal(t, "sam", res.User.UserName)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid credentials"}`, ErrUnauthorized, "Invalid credentials"},
		{"enveloped failure", http.StatusOK, `{"statusCode":401,"message":"Wrong password"}`, ErrUnauthorized, "Wrong password"},
		{"server error", http.StatusInternalServerError, `oops`, nil, ""},
		{"missing token", http.StatusOK, `{"user":{"id":1}}`, ErrMalformedResponse, ""},
		{"missing user", http.StatusOK, `{"token":"t"}`, ErrMalformedResponse, ""},
		{"not json", http.StatusOK, `<html>`, ErrMalformedResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Login(context.Background(), "a@b.com", "x")
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.wantMsg, httpErr.Message)
			}
		})
	}
}

func TestLogin_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, Timeout: time.Second})
	_, err := c.Login(context.Background(), "a@b.com", "x")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "/user/login", transportErr.Path)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestCurrentUser(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare", `{"id":3,"email":"c@d.com","user_name":"carol","role":"admin"}`},
		{"enveloped", `{"statusCode":200,"data":{"id":3,"email":"c@d.com","user_name":"carol","role":"admin"}}`},
		{"nested user", `{"data":{"user":{"id":3,"email":"c@d.com","userName":"carol","role":"admin"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/user/3", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(tt.body))
			})

			u, err := c.CurrentUser(context.Background(), "tok", 3)
			require.NoError(t, err)
			assert.Equal(t, "carol", u.UserName)
			assert.Equal(t, model.RoleAdmin, u.Role)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/user", r.URL.Path)
			var in map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "student", in["role"])
			assert.Equal(t, "dave", in["user_name"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":9}`))
		})
		require.NoError(t, c.Register(context.Background(), RegisterInput{Email: "d@e.com", UserName: "dave", Password: "Passw0rd"}))
	})

	t.Run("email taken", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Email already exists"}`))
		})
		err := c.Register(context.Background(), RegisterInput{Email: "d@e.com"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestResource_CRUD(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"statusCode":200,"data":[{"id":1,"name":"Math"},{"id":2,"name":"Art"}]}`))
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"id":3,"name":"Music"}`))
		case http.MethodPatch:
			_, _ = w.Write([]byte(`{"data":{"id":1,"name":"Maths"}}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	fields := c.Fields()
	ctx := context.Background()

	list, err := fields.List(ctx, "tok")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	created, err := fields.Create(ctx, "tok", map[string]string{"name": "Music"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)

	updated, err := fields.Update(ctx, "tok", 1, map[string]string{"name": "Maths"})
	require.NoError(t, err)
	assert.Equal(t, "Maths", updated.Name)

	require.NoError(t, fields.Delete(ctx, "tok", 2))

	assert.Equal(t, []string{"GET /fields", "POST /fields", "PATCH /fields/1", "DELETE /fields/2"}, seen)
}

func TestResource_ListUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Topics().List(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResource_EmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	list, err := c.Questions().List(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSaveChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/choice", r.URL.Path)
		var in model.Choice
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, int64(5), in.QuestionID)
		assert.Equal(t, "B", in.AnswerB)
		w.WriteHeader(http.StatusCreated)
	})

	err := c.SaveChoices(context.Background(), "tok", model.Choice{QuestionID: 5, AnswerA: "A", AnswerB: "B"})
	require.NoError(t, err)
}

func TestRateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	limited := New(Config{BaseURL: c.BaseURL(), RateLimit: 1, Burst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := limited.Fields().List(ctx, "tok")
	require.NoError(t, err)

	// Second call must wait ~1s for a token and exceeds the deadline.
	_, err = limited.Fields().List(ctx, "tok")
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unauthorized", &HTTPError{Status: 401}, "Your session has expired. Please log in again."},
		{"server message", &HTTPError{Status: 400, Message: "Name required"}, "Name required"},
		{"status only", &HTTPError{Status: 502}, "The quiz service rejected the request (status 502)."},
		{"transport", &TransportError{Err: errors.New("refused")}, "Could not reach the quiz service. Please try again."},
		{"email taken", ErrEmailTaken, "Email already exists. Please use a different one."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, c.Ping(context.Background()))

	down := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	err := down.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "HEAD /"))
}

func TestRegister_DuplicateReportedAsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Email already exists"}`))
	})

	err := c.Register(context.Background(), RegisterInput{Email: "d@e.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
