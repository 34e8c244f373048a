package checklist

import (
	"net/http"
	"testing"
	"time"

	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://checklist.internal/api"

func newMockedClient(t *testing.T) (*HTTPClient, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := NewHTTPClient(testBaseURL+"/", time.Second, &http.Client{Transport: transport})
	return client, transport
}

func TestHTTPClient_Found(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponderWithQuery(http.MethodGet,
		testBaseURL+"/properties/prop-1/checklist-items",
		"orchestrationActionId=hvac_filter",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []map[string]any{
			{"id": "item-1", "title": "Replace HVAC filter", "frequency": "QUARTERLY", "nextDueDate": "2025-09-01T00:00:00Z", "status": "PENDING"},
			{"id": "item-2", "title": "Duplicate", "status": "COMPLETED"},
		}))

	item, err := client.FindChecklistItem(t.Context(), "prop-1", "hvac_filter")
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "PENDING", item.Status)
	require.NotNil(t, item.NextDueDate)
	assert.Equal(t, 2025, item.NextDueDate.Year())
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestHTTPClient_NotFound(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"404", httpmock.NewStringResponder(http.StatusNotFound, "")},
		{"empty list", httpmock.NewJsonResponderOrPanic(http.StatusOK, []any{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newMockedClient(t)
			transport.RegisterResponder(http.MethodGet, `=~/properties/prop-1/checklist-items`, tt.responder)

			_, err := client.FindChecklistItem(t.Context(), "prop-1", "hvac_filter")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestHTTPClient_Failures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		category  errors.ErrorCategory
	}{
		{"server error", httpmock.NewStringResponder(http.StatusInternalServerError, "boom"), errors.CategoryNetwork},
		{"transport error", httpmock.NewErrorResponder(errors.NewStd("connection refused")), errors.CategoryNetwork},
		{"bad json", httpmock.NewStringResponder(http.StatusOK, "{not json"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newMockedClient(t)
			transport.RegisterResponder(http.MethodGet, `=~/properties/prop-1/checklist-items`, tt.responder)

			_, err := client.FindChecklistItem(t.Context(), "prop-1", "hvac_filter")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotFound)
			assert.Equal(t, tt.category, errors.CategoryOf(err))
		})
	}
}

func TestHTTPClient_EscapesQuery(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponderWithQuery(http.MethodGet,
		testBaseURL+"/properties/prop-1/checklist-items",
		map[string]string{"orchestrationActionId": "a&b"},
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []map[string]any{{"id": "item-9", "title": "x", "status": "PENDING"}}))

	item, err := client.FindChecklistItem(t.Context(), "prop-1", "a&b")
	require.NoError(t, err)
	assert.Equal(t, "item-9", item.ID)
}
