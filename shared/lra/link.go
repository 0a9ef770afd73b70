package lra

import (
	"fmt"
	"strings"
)

// Relation names the coordinator understands.
const (
	RelCompensate = "compensate"
	RelComplete   = "complete"
	RelStatus     = "status"
	RelForget     = "forget"
	RelLeave      = "leave"
	RelAfter      = "after"
)

// TerminationURI binds one link relation to a participant callback URL.
type TerminationURI struct {
	Rel string
	URL string
}

// TerminationURIs is the ordered set of callback URLs a participant
// registers when joining an LRA.
type TerminationURIs []TerminationURI

// NewTerminationURIs builds the callback set for a participant rooted at
// baseURL + resourcePath. The status relation maps to the lra-status
// endpoint, every other relation maps to the path named after it.
func NewTerminationURIs(baseURL, resourcePath string) TerminationURIs {
	root := strings.TrimSuffix(baseURL, "/") + "/" + strings.Trim(resourcePath, "/")
	return TerminationURIs{
		{Rel: RelCompensate, URL: root + "/compensate"},
		{Rel: RelComplete, URL: root + "/complete"},
		{Rel: RelStatus, URL: root + "/lra-status"},
		{Rel: RelForget, URL: root + "/forget"},
		{Rel: RelLeave, URL: root + "/leave"},
		{Rel: RelAfter, URL: root + "/after"},
	}
}

// LinkHeader renders the RFC 5988 Link header the coordinator expects:
// one entry per relation, title equal to the relation, text/plain type.
func (t TerminationURIs) LinkHeader() string {
	entries := make([]string, 0, len(t))
	for _, u := range t {
		if u.URL == "" {
			continue
		}
		entries = append(entries,
			fmt.Sprintf("<%s>; rel=%q; title=%q; type=%q", u.URL, u.Rel, u.Rel, "text/plain"))
	}
	return strings.Join(entries, ",")
}
