// Package internal implements endpoint parsing for discoveryx.
package internal

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Target is a parsed logical request host.
type Target struct {
	Service  string
	Endpoint string   // explicit endpoint name from "_name.service", or ""
	Schemes  []string // preferred schemes, e.g. [https http] for "https+http"
}

// ParseTarget splits u into a service name, optional endpoint name and the
// ordered scheme preference.
func ParseTarget(u *url.URL) Target {
	t := Target{Service: u.Hostname(), Schemes: strings.Split(u.Scheme, "+")}
	if name, svc, ok := strings.Cut(t.Service, "."); ok && strings.HasPrefix(name, "_") {
		t.Endpoint = strings.TrimPrefix(name, "_")
		t.Service = svc
	}
	return t
}

// Candidates returns the endpoint names to try in order.
func (t Target) Candidates() []string {
	if t.Endpoint != "" {
		return []string{t.Endpoint}
	}
	return t.Schemes
}

// Indexed collects the values of section keys "<endpoint>:<index>" ordered
// by numeric index. Keys with a non-numeric index are ignored.
func Indexed(section map[string]string, endpoint string) []string {
	type entry struct {
		idx int
		val string
	}
	var entries []entry
	for k, v := range section {
		name, idx, ok := strings.Cut(k, ":")
		if !ok || !strings.EqualFold(name, endpoint) || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		entries = append(entries, entry{n, strings.TrimSpace(v)})
	}
	slices.SortFunc(entries, func(a, b entry) int { return a.idx - b.idx })

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.val
	}
	return out
}

// Apply rewrites u to point at endpoint, which is either an absolute URL or
// "host:port". Path, query and fragment of u are kept.
func Apply(u *url.URL, endpoint, scheme string) (*url.URL, error) {
	out := *u
	if strings.Contains(endpoint, "://") {
		ep, err := url.Parse(endpoint)
		if err != nil {
			return nil, err
		}
		out.Scheme = ep.Scheme
		out.Host = ep.Host
		if p := strings.TrimSuffix(ep.Path, "/"); p != "" {
			out.Path = p + u.Path
		}
		return &out, nil
	}
	out.Scheme = scheme
	out.Host = endpoint
	return &out, nil
}
