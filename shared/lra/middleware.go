package lra

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Enlistment is the static per-route policy configuration, resolved once
// at startup when routes are mounted.
type Enlistment struct {
	Policy Policy
	// End makes the request that started the LRA close or cancel it when
	// the response is written.
	End bool
	// Participant registers this endpoint's termination URIs with the
	// coordinator when joining an existing LRA. Pure orchestrators that
	// only start LRAs leave it false.
	Participant bool
}

// Enlister builds enlistment middleware for one service. baseURL is the
// externally reachable address of the service, resourcePath the root of
// its participant callbacks.
type Enlister struct {
	client       *CoordinatorClient
	name         string
	participants TerminationURIs
}

// NewEnlister creates an Enlister. name tags LRAs started by this service.
func NewEnlister(client *CoordinatorClient, name, baseURL, resourcePath string) *Enlister {
	return &Enlister{
		client:       client,
		name:         name,
		participants: NewTerminationURIs(baseURL, resourcePath),
	}
}

// Enlist returns middleware that runs the entry phase before the handler
// and the exit phase after it. Only the request that started the LRA
// decides to close or cancel; participants that merely joined are bound
// to the decision made where the LRA started.
func (e *Enlister) Enlist(spec Enlistment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inbound := ContextID(r)

			var ec *EnlistmentContext
			switch spec.Policy {
			case PolicyNone:
				if inbound != "" {
					ec = &EnlistmentContext{ID: inbound}
				}

			case PolicyMandatory:
				if inbound == "" {
					http.Error(w, "missing LRA context", http.StatusPreconditionFailed)
					return
				}
				if !e.join(w, r, inbound, spec) {
					return
				}
				ec = &EnlistmentContext{ID: inbound}

			case PolicyRequired:
				if inbound == "" {
					started, err := e.client.Start(r.Context(), e.name, "")
					if err != nil {
						log.Printf("LRA start failed: %v", err)
						http.Error(w, "failed to start LRA", http.StatusInternalServerError)
						return
					}
					r.Header.Set(HeaderContext, started)
					ec = &EnlistmentContext{ID: started, StartedHere: true, EndOnResponse: spec.End}
				} else {
					if !e.join(w, r, inbound, spec) {
						return
					}
					ec = &EnlistmentContext{ID: inbound}
				}

			case PolicyRequiresNew:
				started, err := e.client.Start(r.Context(), e.name, inbound)
				if err != nil {
					log.Printf("LRA start failed: %v", err)
					http.Error(w, "failed to start LRA", http.StatusInternalServerError)
					return
				}
				r.Header.Set(HeaderContext, started)
				ec = &EnlistmentContext{ID: started, StartedHere: true, EndOnResponse: spec.End}

			default:
				http.Error(w, "unknown LRA policy", http.StatusInternalServerError)
				return
			}

			if ec == nil {
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(WithEnlistment(r.Context(), ec))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if !ec.StartedHere || !ec.EndOnResponse {
				return
			}

			if ww.Status() >= http.StatusBadRequest {
				if err := e.client.Cancel(r.Context(), ec.ID); err != nil {
					log.Printf("LRA cancel failed: id=%s err=%v", ec.ID, err)
				}
			} else {
				if err := e.client.Close(r.Context(), ec.ID); err != nil {
					log.Printf("LRA close failed: id=%s err=%v", ec.ID, err)
				}
			}
		})
	}
}

// join enlists this service as a participant when the route declares
// itself one. Reports whether the request may proceed.
func (e *Enlister) join(w http.ResponseWriter, r *http.Request, lraID string, spec Enlistment) bool {
	if !spec.Participant {
		return true
	}
	if _, err := e.client.Join(r.Context(), lraID, e.participants, ""); err != nil {
		log.Printf("LRA join failed: id=%s err=%v", lraID, err)
		http.Error(w, "failed to join LRA", http.StatusInternalServerError)
		return false
	}
	return true
}
