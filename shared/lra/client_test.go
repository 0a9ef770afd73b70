package lra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coordinatorCall struct {
	method string
	path   string
	query  string
	link   string
	body   string
}

// fakeCoordinator records calls and answers with a scripted response.
type fakeCoordinator struct {
	calls      []coordinatorCall
	status     int
	location   string
	recoveryID string
}

func (f *fakeCoordinator) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.calls = append(f.calls, coordinatorCall{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			link:   r.Header.Get("Link"),
			body:   string(body),
		})
		if f.location != "" {
			w.Header().Set("Location", f.location)
		}
		if f.recoveryID != "" {
			w.Header().Set(HeaderRecovery, f.recoveryID)
		}
		w.WriteHeader(f.status)
	})
}

func newTestClient(t *testing.T, coord *fakeCoordinator) (*CoordinatorClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(coord.handler())
	t.Cleanup(server.Close)

	client, err := NewCoordinatorClient(server.URL, server.Client())
	require.NoError(t, err)
	return client, server
}

func TestCoordinatorClient_Start(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusCreated}
	client, server := newTestClient(t, coord)
	coord.location = server.URL + "/lra-coordinator/0_ffff_1234"

	lraID, err := client.Start(context.Background(), "order-service", "")

	require.NoError(t, err)
	assert.Equal(t, coord.location, lraID)
	require.Len(t, coord.calls, 1)
	assert.Equal(t, http.MethodPost, coord.calls[0].method)
	assert.Equal(t, "/start", coord.calls[0].path)
	assert.Contains(t, coord.calls[0].query, "ClientID=order-service")
	assert.Contains(t, coord.calls[0].query, "TimeLimit=0")
}

func TestCoordinatorClient_Start_EncodesParent(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusCreated}
	client, server := newTestClient(t, coord)
	coord.location = server.URL + "/lra-coordinator/child"

	_, err := client.Start(context.Background(), "order-service", "http://coord/lra-coordinator/parent")

	require.NoError(t, err)
	require.Len(t, coord.calls, 1)
	assert.Contains(t, coord.calls[0].query, "ParentLRA=http%3A%2F%2Fcoord%2Flra-coordinator%2Fparent")
}

func TestCoordinatorClient_Start_ProtocolFailure(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusInternalServerError}
	client, _ := newTestClient(t, coord)

	_, err := client.Start(context.Background(), "order-service", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestCoordinatorClient_Join(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusOK}
	client, _ := newTestClient(t, coord)
	uris := NewTerminationURIs("http://inventory:8081", "/inventory")

	got, err := client.Join(context.Background(), "http://coord/lra-coordinator/abc123", uris, "")

	require.NoError(t, err)
	assert.Equal(t, "http://coord/lra-coordinator/abc123", got)
	require.Len(t, coord.calls, 1)
	assert.Equal(t, http.MethodPut, coord.calls[0].method)
	assert.Equal(t, "/abc123", coord.calls[0].path)
	assert.Equal(t, "TimeLimit=0", coord.calls[0].query)
	assert.Contains(t, coord.calls[0].link, `rel="compensate"`)
	// body defaults to the link header text
	assert.Equal(t, coord.calls[0].link, coord.calls[0].body)
}

func TestCoordinatorClient_Join_RecoveryReplacesHandle(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusOK, recoveryID: "http://coord/recovery/xyz"}
	client, _ := newTestClient(t, coord)

	got, err := client.Join(context.Background(), "http://coord/lra-coordinator/abc123",
		NewTerminationURIs("http://inventory:8081", "/inventory"), "")

	require.NoError(t, err)
	assert.Equal(t, "http://coord/recovery/xyz", got)
}

func TestCoordinatorClient_Join_ParticipantData(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusOK}
	client, _ := newTestClient(t, coord)

	_, err := client.Join(context.Background(), "http://coord/lra-coordinator/abc123",
		NewTerminationURIs("http://inventory:8081", "/inventory"), "participant-data")

	require.NoError(t, err)
	assert.Equal(t, "participant-data", coord.calls[0].body)
}

func TestCoordinatorClient_Join_ProtocolFailure(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusPreconditionFailed}
	client, _ := newTestClient(t, coord)

	_, err := client.Join(context.Background(), "http://coord/lra-coordinator/abc123",
		NewTerminationURIs("http://inventory:8081", "/inventory"), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "412")
}

func TestCoordinatorClient_EndStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK, wantErr: false},
		{name: "accepted", status: http.StatusAccepted, wantErr: false},
		{name: "already ended", status: http.StatusNotFound, wantErr: false},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
		{name: "bad request", status: http.StatusBadRequest, wantErr: true},
	}

	for _, tt := range tests {
		t.Run("close "+tt.name, func(t *testing.T) {
			coord := &fakeCoordinator{status: tt.status}
			client, _ := newTestClient(t, coord)

			err := client.Close(context.Background(), "http://coord/lra-coordinator/abc123")

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, coord.calls, 1)
			assert.Equal(t, "/abc123/close", coord.calls[0].path)
		})

		t.Run("cancel "+tt.name, func(t *testing.T) {
			coord := &fakeCoordinator{status: tt.status}
			client, _ := newTestClient(t, coord)

			err := client.Cancel(context.Background(), "http://coord/lra-coordinator/abc123")

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, coord.calls, 1)
			assert.Equal(t, "/abc123/cancel", coord.calls[0].path)
		})
	}
}

func TestCoordinatorClient_EndTwice(t *testing.T) {
	coord := &fakeCoordinator{status: http.StatusOK}
	client, _ := newTestClient(t, coord)

	require.NoError(t, client.Close(context.Background(), "http://coord/lra-coordinator/abc123"))

	// the coordinator forgot the LRA; the retry must still succeed
	coord.status = http.StatusNotFound
	require.NoError(t, client.Close(context.Background(), "http://coord/lra-coordinator/abc123"))
}

func TestUID(t *testing.T) {
	tests := []struct {
		lraID string
		want  string
	}{
		{lraID: "http://coord:8080/lra-coordinator/0_ffff_1234", want: "0_ffff_1234"},
		{lraID: "http://coord:8080/lra-coordinator/0_ffff_1234/", want: "0_ffff_1234"},
		{lraID: "0_ffff_1234", want: "0_ffff_1234"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, uid(tt.lraID))
	}
}
