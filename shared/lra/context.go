package lra

import (
	"context"
	"net/http"
	"strings"
)

// Protocol headers shared with the Narayana coordinator
const (
	// HeaderContext carries the active LRA identifier on every request
	// that runs inside a long-running action.
	HeaderContext = "Long-Running-Action"

	// HeaderRecovery carries the recovery identifier the coordinator may
	// assign to a participant on join.
	HeaderRecovery = "Long-Running-Action-Recovery"

	apiVersionHeader = "Narayana-LRA-API-version"
	apiVersion       = "1.0"
)

// Policy controls how an endpoint relates to an inbound LRA context.
type Policy string

const (
	// PolicyNone passes any inbound context through untouched.
	PolicyNone Policy = "none"
	// PolicyMandatory requires an inbound context and fails the request
	// with 412 when it is absent.
	PolicyMandatory Policy = "mandatory"
	// PolicyRequired reuses an inbound context or starts a new one.
	PolicyRequired Policy = "required"
	// PolicyRequiresNew always starts a new LRA, nesting it under any
	// inbound context.
	PolicyRequiresNew Policy = "requires_new"
)

// EnlistmentContext is the request-scoped view of the active LRA.
// Only the request that started the LRA may end it.
type EnlistmentContext struct {
	ID            string
	StartedHere   bool
	EndOnResponse bool
}

type contextKey string

const enlistmentKey contextKey = "lra.enlistment"

// WithEnlistment injects the enlistment context into ctx
func WithEnlistment(ctx context.Context, ec *EnlistmentContext) context.Context {
	return context.WithValue(ctx, enlistmentKey, ec)
}

// EnlistmentFromContext extracts the enlistment context, nil when the
// request runs outside any LRA.
func EnlistmentFromContext(ctx context.Context) *EnlistmentContext {
	if ec, ok := ctx.Value(enlistmentKey).(*EnlistmentContext); ok {
		return ec
	}
	return nil
}

// ContextID reads the LRA identifier from a request header, "" when absent.
func ContextID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderContext))
}
