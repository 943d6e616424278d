package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/texperia/registration/models"
)

var (
	ErrNotAdmin       = errors.New("access denied: admin role required")
	ErrNotAllowListed = errors.New("access denied: your account is not authorized for admin access")
)

// Resolver decides whether an authenticated admin may use the admin surface
// and which events they may act on. The directory is immutable after
// construction.
type Resolver struct {
	superAdmins map[string]struct{}
	eventAdmins map[string]models.EventID
}

// NewResolver builds the admin directory. Every email may appear in at most
// one set: the super admin list or a single event list.
func NewResolver(superAdmins []string, eventAdmins map[models.EventID][]string) (*Resolver, error) {
	r := &Resolver{
		superAdmins: make(map[string]struct{}),
		eventAdmins: make(map[string]models.EventID),
	}

	for _, raw := range superAdmins {
		email := normalize(raw)
		if email == "" {
			continue
		}
		r.superAdmins[email] = struct{}{}
	}

	for _, event := range models.AllEvents {
		for _, raw := range eventAdmins[event] {
			email := normalize(raw)
			if email == "" {
				continue
			}
			if _, ok := r.superAdmins[email]; ok {
				return nil, fmt.Errorf("admin %s is listed both as super admin and for event %s", email, event)
			}
			if prev, ok := r.eventAdmins[email]; ok && prev != event {
				return nil, fmt.Errorf("admin %s is listed for events %s and %s", email, prev, event)
			}
			r.eventAdmins[email] = event
		}
	}

	for event := range eventAdmins {
		if !event.Valid() {
			return nil, fmt.Errorf("admin list for unknown event %q", event)
		}
	}

	return r, nil
}

// Resolve applies the admin gate to a validated identity: the role claim
// must be admin and the email must be allow-listed.
func (r *Resolver) Resolve(id Identity) (models.AdminScope, error) {
	if id.Role != models.RoleAdmin {
		return "", ErrNotAdmin
	}
	email := normalize(id.Email)
	if _, ok := r.superAdmins[email]; ok {
		return models.ScopeAll, nil
	}
	if event, ok := r.eventAdmins[email]; ok {
		return models.ScopeFor(event), nil
	}
	return "", ErrNotAllowListed
}

// AllowList returns every allow-listed email, super admins first.
func (r *Resolver) AllowList() []string {
	out := make([]string, 0, len(r.superAdmins)+len(r.eventAdmins))
	for email := range r.superAdmins {
		out = append(out, email)
	}
	for email := range r.eventAdmins {
		out = append(out, email)
	}
	return out
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
