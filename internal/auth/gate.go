package auth

import (
	"errors"
	"sync"
	"time"
)

// Role is who is using the session.
type Role string

const (
	RoleNone      Role = "none"
	RoleTeacher   Role = "teacher"
	RoleOwner     Role = "owner"
	RoleDeveloper Role = "developer"
)

// Action is an operation gated by role.
type Action string

const (
	ActionViewRoster     Action = "view_roster"
	ActionMarkAttendance Action = "mark_attendance"
	ActionViewReports    Action = "view_reports"
	ActionAddStudent     Action = "add_student"
	ActionDeleteStudent  Action = "delete_student"
	ActionMarkPaid       Action = "mark_paid"
	ActionExport         Action = "export"
	ActionManageLicense  Action = "manage_license"
)

var (
	ErrAuthFailed       = errors.New("incorrect PIN")
	ErrNotAuthenticated = errors.New("enter a PIN first")
	ErrForbidden        = errors.New("role may not perform this action")
	ErrExpired          = errors.New("subscription expired, please contact developer to renew")
	ErrInvalidExpiry    = errors.New("expiry must be formatted YYYY-MM-DD")
)

var permissions = map[Role]map[Action]bool{
	RoleTeacher: {
		ActionViewRoster:     true,
		ActionMarkAttendance: true,
		ActionViewReports:    true,
	},
	RoleOwner: {
		ActionViewRoster:     true,
		ActionMarkAttendance: true,
		ActionViewReports:    true,
		ActionAddStudent:     true,
		ActionDeleteStudent:  true,
		ActionMarkPaid:       true,
		ActionExport:         true,
	},
	RoleDeveloper: {
		ActionViewRoster:     true,
		ActionMarkAttendance: true,
		ActionViewReports:    true,
		ActionAddStudent:     true,
		ActionDeleteStudent:  true,
		ActionMarkPaid:       true,
		ActionExport:         true,
		ActionManageLicense:  true,
	},
}

// Can reports whether role may perform action, ignoring expiry.
func Can(role Role, action Action) bool {
	return permissions[role][action]
}

// SeesRevenue reports whether fee figures are shown to role.
func SeesRevenue(role Role) bool {
	return role == RoleOwner || role == RoleDeveloper
}

// PINs are the shared secrets for each role. An empty PIN never matches.
type PINs struct {
	Developer string
	Owner     string
	Teacher   string
}

// Gate is the session's role state machine plus the subscription lockout.
// The PINs are compared in clear text; this is a convenience lock for a
// shared device, not a security boundary, and the expiry date is stored
// where the user can edit it.
type Gate struct {
	mu        sync.RWMutex
	pins      PINs
	role      Role
	entryOpen bool
	expiry    time.Time
}

// NewGate starts a session with no role and the entry surface open.
func NewGate(pins PINs, expiry string) (*Gate, error) {
	g := &Gate{pins: pins, role: RoleNone, entryOpen: true}
	if err := g.SetExpiry(expiry); err != nil {
		return nil, err
	}
	return g, nil
}

// Login maps pin to a role, checking developer, owner then teacher.
// A wrong pin leaves the current role in place and the entry surface open.
func (g *Gate) Login(pin string) (Role, error) {
	role := g.match(pin)
	g.mu.Lock()
	defer g.mu.Unlock()
	if role == RoleNone {
		g.entryOpen = true
		return g.role, ErrAuthFailed
	}
	g.role = role
	g.entryOpen = false
	return role, nil
}

func (g *Gate) match(pin string) Role {
	switch {
	case pin == "":
		return RoleNone
	case pin == g.pins.Developer:
		return RoleDeveloper
	case pin == g.pins.Owner:
		return RoleOwner
	case pin == g.pins.Teacher:
		return RoleTeacher
	}
	return RoleNone
}

// Logout drops the role and re-opens the entry surface.
func (g *Gate) Logout() {
	g.mu.Lock()
	g.role = RoleNone
	g.entryOpen = true
	g.mu.Unlock()
}

// RequestReauth re-opens the entry surface without dropping the role, so a
// different role can take over at any time.
func (g *Gate) RequestReauth() {
	g.mu.Lock()
	g.entryOpen = true
	g.mu.Unlock()
}

func (g *Gate) Role() Role {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.role
}

func (g *Gate) EntryOpen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entryOpen
}

// SetExpiry replaces the expiry date (YYYY-MM-DD, midnight UTC).
func (g *Gate) SetExpiry(date string) error {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ErrInvalidExpiry
	}
	g.mu.Lock()
	g.expiry = t
	g.mu.Unlock()
	return nil
}

// Expiry returns the expiry date key.
func (g *Gate) Expiry() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.expiry.Format("2006-01-02")
}

// Expired reports whether now is past the expiry date.
func (g *Gate) Expired(now time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return now.After(g.expiry)
}

// Authorize checks that the current role may perform action at now.
// Once expired only the developer keeps access.
func (g *Gate) Authorize(action Action, now time.Time) error {
	role := g.Role()
	if role == RoleNone {
		return ErrNotAuthenticated
	}
	if role != RoleDeveloper && g.Expired(now) {
		return ErrExpired
	}
	if !Can(role, action) {
		return ErrForbidden
	}
	return nil
}
