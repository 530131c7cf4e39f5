package httpjson

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrite(t *testing.T) {
	recorder := httptest.NewRecorder()

	Write(recorder, http.StatusCreated, map[string]string{"username": "alice"})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"username":"alice"}`, recorder.Body.String())
}

func TestWriteError(t *testing.T) {
	type tTestCase struct {
		name                    string
		status                  int
		detail                  string
		expectedWWWAuthenticate string
	}
	testCases := []tTestCase{
		{name: "unauthorized", status: http.StatusUnauthorized, detail: "Not authenticated", expectedWWWAuthenticate: "Bearer"},
		{name: "bad_request", status: http.StatusBadRequest, detail: "Username already registered"},
		{name: "internal", status: http.StatusInternalServerError, detail: "connection refused"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()

			WriteError(recorder, testCase.status, testCase.detail)

			assert.Equal(t, testCase.status, recorder.Code)
			assert.Equal(t, testCase.expectedWWWAuthenticate, recorder.Header().Get("WWW-Authenticate"))
			assert.JSONEq(t, `{"detail":"`+testCase.detail+`"}`, recorder.Body.String())
		})
	}
}
