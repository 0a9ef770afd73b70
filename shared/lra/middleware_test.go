package lra

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// protocolCoordinator is a minimal in-memory coordinator: it hands out
// LRA ids and records every protocol action it sees.
type protocolCoordinator struct {
	server  *httptest.Server
	started int
	actions []string
	parents []string
	links   []string
}

func newProtocolCoordinator(t *testing.T) *protocolCoordinator {
	t.Helper()
	c := &protocolCoordinator{}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/start":
			c.started++
			c.actions = append(c.actions, "start")
			c.parents = append(c.parents, r.URL.Query().Get("ParentLRA"))
			w.Header().Set("Location", fmt.Sprintf("%s/lra/%d", c.server.URL, c.started))
			w.WriteHeader(http.StatusCreated)
		case strings.HasSuffix(r.URL.Path, "/close"):
			c.actions = append(c.actions, "close")
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/cancel"):
			c.actions = append(c.actions, "cancel")
			w.WriteHeader(http.StatusOK)
		default: // join
			c.actions = append(c.actions, "join")
			c.links = append(c.links, r.Header.Get("Link"))
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(c.server.Close)
	return c
}

func (c *protocolCoordinator) enlister(t *testing.T, name string) *Enlister {
	t.Helper()
	client, err := NewCoordinatorClient(c.server.URL, c.server.Client())
	require.NoError(t, err)
	return NewEnlister(client, name, "http://inventory:8081", "/inventory")
}

// capturingHandler records whether it ran and what enlistment it saw,
// then answers with the configured status.
type capturingHandler struct {
	called     bool
	enlistment *EnlistmentContext
	header     string
	status     int
}

func (h *capturingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.enlistment = EnlistmentFromContext(r.Context())
	h.header = r.Header.Get(HeaderContext)
	w.WriteHeader(h.status)
}

func TestEnlist_EntryPhaseTable(t *testing.T) {
	const inbound = "http://coord/lra/inbound-1"

	tests := []struct {
		name           string
		spec           Enlistment
		inboundHeader  string
		handlerStatus  int
		wantStatus     int
		wantHandlerRun bool
		wantActions    []string
		wantEnlistment bool
		wantStartedHre bool
	}{
		{
			name:           "none without header passes through",
			spec:           Enlistment{Policy: PolicyNone},
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    nil,
			wantEnlistment: false,
		},
		{
			name:           "none with header carries context without ownership",
			spec:           Enlistment{Policy: PolicyNone},
			inboundHeader:  inbound,
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    nil,
			wantEnlistment: true,
		},
		{
			name:           "mandatory without header is a precondition failure",
			spec:           Enlistment{Policy: PolicyMandatory, Participant: true},
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusPreconditionFailed,
			wantHandlerRun: false,
			wantActions:    nil,
		},
		{
			name:           "mandatory with header joins as participant",
			spec:           Enlistment{Policy: PolicyMandatory, Participant: true},
			inboundHeader:  inbound,
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    []string{"join"},
			wantEnlistment: true,
		},
		{
			name:           "mandatory non-participant does not join",
			spec:           Enlistment{Policy: PolicyMandatory},
			inboundHeader:  inbound,
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    nil,
			wantEnlistment: true,
		},
		{
			name:           "required without header starts and ends",
			spec:           Enlistment{Policy: PolicyRequired, End: true},
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    []string{"start", "close"},
			wantEnlistment: true,
			wantStartedHre: true,
		},
		{
			name:           "required with header joins without ownership",
			spec:           Enlistment{Policy: PolicyRequired, End: true, Participant: true},
			inboundHeader:  inbound,
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    []string{"join"},
			wantEnlistment: true,
		},
		{
			name:           "requires new without header starts parentless",
			spec:           Enlistment{Policy: PolicyRequiresNew, End: true},
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    []string{"start", "close"},
			wantEnlistment: true,
			wantStartedHre: true,
		},
		{
			name:           "requires new with header starts nested",
			spec:           Enlistment{Policy: PolicyRequiresNew, End: true},
			inboundHeader:  inbound,
			handlerStatus:  http.StatusOK,
			wantStatus:     http.StatusOK,
			wantHandlerRun: true,
			wantActions:    []string{"start", "close"},
			wantEnlistment: true,
			wantStartedHre: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := newProtocolCoordinator(t)
			enlister := coord.enlister(t, "test-service")
			handler := &capturingHandler{status: tt.handlerStatus}

			req := httptest.NewRequest(http.MethodPost, "/resource", nil)
			if tt.inboundHeader != "" {
				req.Header.Set(HeaderContext, tt.inboundHeader)
			}
			rec := httptest.NewRecorder()

			enlister.Enlist(tt.spec)(handler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantHandlerRun, handler.called)
			assert.Equal(t, tt.wantActions, coord.actions)

			if !tt.wantHandlerRun {
				return
			}
			if tt.wantEnlistment {
				require.NotNil(t, handler.enlistment)
				assert.Equal(t, tt.wantStartedHre, handler.enlistment.StartedHere)
				assert.NotEmpty(t, handler.header)
			} else {
				assert.Nil(t, handler.enlistment)
			}
		})
	}
}

func TestEnlist_RequiresNewPropagatesParent(t *testing.T) {
	coord := newProtocolCoordinator(t)
	enlister := coord.enlister(t, "order-service")
	handler := &capturingHandler{status: http.StatusOK}

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(HeaderContext, "http://coord/lra/parent-7")
	rec := httptest.NewRecorder()

	enlister.Enlist(Enlistment{Policy: PolicyRequiresNew, End: true})(handler).ServeHTTP(rec, req)

	require.Len(t, coord.parents, 1)
	assert.Equal(t, "http://coord/lra/parent-7", coord.parents[0])
	// the handler sees the new LRA, not the parent
	assert.NotEqual(t, "http://coord/lra/parent-7", handler.header)
}

func TestEnlist_ExitPhase(t *testing.T) {
	tests := []struct {
		name          string
		spec          Enlistment
		handlerStatus int
		wantEnd       string
	}{
		{
			name:          "success closes",
			spec:          Enlistment{Policy: PolicyRequiresNew, End: true},
			handlerStatus: http.StatusOK,
			wantEnd:       "close",
		},
		{
			name:          "client error cancels",
			spec:          Enlistment{Policy: PolicyRequiresNew, End: true},
			handlerStatus: http.StatusBadRequest,
			wantEnd:       "cancel",
		},
		{
			name:          "server error cancels",
			spec:          Enlistment{Policy: PolicyRequiresNew, End: true},
			handlerStatus: http.StatusInternalServerError,
			wantEnd:       "cancel",
		},
		{
			name:          "no end when endpoint does not own termination",
			spec:          Enlistment{Policy: PolicyRequiresNew, End: false},
			handlerStatus: http.StatusInternalServerError,
			wantEnd:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := newProtocolCoordinator(t)
			enlister := coord.enlister(t, "order-service")
			handler := &capturingHandler{status: tt.handlerStatus}

			req := httptest.NewRequest(http.MethodPost, "/orders", nil)
			rec := httptest.NewRecorder()

			enlister.Enlist(tt.spec)(handler).ServeHTTP(rec, req)

			wantActions := []string{"start"}
			if tt.wantEnd != "" {
				wantActions = append(wantActions, tt.wantEnd)
			}
			assert.Equal(t, wantActions, coord.actions)
		})
	}
}

func TestEnlist_JoinedParticipantNeverEnds(t *testing.T) {
	coord := newProtocolCoordinator(t)
	enlister := coord.enlister(t, "inventory-service")
	handler := &capturingHandler{status: http.StatusInternalServerError}

	req := httptest.NewRequest(http.MethodPost, "/inventory/reserve", nil)
	req.Header.Set(HeaderContext, "http://coord/lra/owner-1")
	rec := httptest.NewRecorder()

	enlister.Enlist(Enlistment{Policy: PolicyMandatory, Participant: true})(handler).ServeHTTP(rec, req)

	// the participant joined but its failing response must not cancel the
	// LRA; that decision belongs to the request that started it
	assert.Equal(t, []string{"join"}, coord.actions)
	require.Len(t, coord.links, 1)
	assert.Contains(t, coord.links[0], `rel="compensate"`)
	assert.Contains(t, coord.links[0], "http://inventory:8081/inventory/compensate")
}

func TestEnlist_CoordinatorDownFailsRequest(t *testing.T) {
	coord := newProtocolCoordinator(t)
	enlister := coord.enlister(t, "order-service")
	coord.server.Close()
	handler := &capturingHandler{status: http.StatusOK}

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	rec := httptest.NewRecorder()

	enlister.Enlist(Enlistment{Policy: PolicyRequiresNew, End: true})(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, handler.called)
}
