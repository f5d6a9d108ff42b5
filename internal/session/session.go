package session

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"grower/internal/auth"
	"grower/internal/metrics"
	"grower/internal/report"
	"grower/internal/roster"
	"grower/internal/store"
)

const persistTimeout = 5 * time.Second

// Config holds what a session needs beyond its store.
type Config struct {
	PINs           auth.PINs
	TrialDays      int
	DeveloperPhone string
	Now            func() time.Time // defaults to time.Now
}

// SyncStatus reports the outcome of the latest write to the store.
type SyncStatus struct {
	OK        bool      `json:"ok"`
	LastError string    `json:"last_error,omitempty"`
	LastWrite time.Time `json:"last_write,omitempty"`
}

// License describes the subscription as seen by the UI.
type License struct {
	Expiry    string `json:"expiry"`
	Expired   bool   `json:"expired"`
	RenewLink string `json:"renew_link"`
}

// Session is the application state: the access gate, the in-memory roster
// and the store behind it. All mutations go through its methods.
type Session struct {
	id     string
	cfg    Config
	gate   *auth.Gate
	roster *roster.Roster
	store  store.Store
	now    func() time.Time

	// mu serializes local mutations; remote snapshots do not take it and
	// simply replace whatever is current.
	mu sync.Mutex

	statusMu sync.RWMutex
	status   SyncStatus
}

// Open loads the roster and expiry from st. A missing expiry starts a trial
// of cfg.TrialDays days.
func Open(ctx context.Context, st store.Store, cfg Config) (*Session, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	list, err := st.LoadRoster(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []roster.Student{}
	}

	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		roster: roster.New(list),
		store:  st,
		now:    cfg.Now,
		status: SyncStatus{OK: true},
	}

	expiry, err := st.LoadExpiry(ctx)
	if err != nil {
		return nil, err
	}
	gate, err := auth.NewGate(cfg.PINs, expiry)
	if err != nil {
		if expiry != "" {
			log.Printf("stored expiry %q unreadable, starting trial", expiry)
		}
		expiry = roster.DateKey(s.now().UTC().AddDate(0, 0, cfg.TrialDays))
		if gate, err = auth.NewGate(cfg.PINs, expiry); err != nil {
			return nil, err
		}
		s.recordSync(st.SaveExpiry(ctx, expiry))
	}
	s.gate = gate
	log.Printf("session %s opened: %d students, expiry %s", s.id, len(list), expiry)
	return s, nil
}

// Start follows roster snapshots written by other sessions when the store is
// shared. The subscription lives until ctx ends.
func (s *Session) Start(ctx context.Context) error {
	sub, ok := s.store.(store.Subscriber)
	if !ok {
		return nil
	}
	return sub.Subscribe(ctx, func(list []roster.Student) {
		s.roster.Replace(list)
		metrics.RemoteSnapshots.Inc()
		log.Printf("remote roster applied: %d students", len(list))
		s.reloadExpiry(ctx)
	})
}

// reloadExpiry picks up an expiry written by another session. The expiry is
// not broadcast on its own, so it is re-read with every remote snapshot.
func (s *Session) reloadExpiry(ctx context.Context) {
	expiry, err := s.store.LoadExpiry(ctx)
	if err != nil {
		log.Printf("remote expiry unreadable: %v", err)
		return
	}
	if expiry == "" || expiry == s.gate.Expiry() {
		return
	}
	if err := s.gate.SetExpiry(expiry); err != nil {
		log.Printf("remote expiry %q rejected: %v", expiry, err)
		return
	}
	log.Printf("remote expiry applied: %s", expiry)
}

// ID identifies this session in tokens and logs.
func (s *Session) ID() string { return s.id }

// Login enters a PIN. A wrong PIN is reported and can be retried at once.
func (s *Session) Login(pin string) (auth.Role, error) {
	role, err := s.gate.Login(pin)
	if err != nil {
		metrics.AuthFailures.Inc()
		log.Printf("login failed")
		return role, err
	}
	log.Printf("logged in as %s", role)
	return role, nil
}

func (s *Session) Logout() {
	s.gate.Logout()
	log.Printf("logged out")
}

// RequestReauth re-opens PIN entry so another role can take over.
func (s *Session) RequestReauth() { s.gate.RequestReauth() }

func (s *Session) Role() auth.Role { return s.gate.Role() }

func (s *Session) EntryOpen() bool { return s.gate.EntryOpen() }

// Now is the session clock.
func (s *Session) Now() time.Time { return s.now() }

// Today is the current date key.
func (s *Session) Today() string { return roster.DateKey(s.now()) }

// Students returns the roster filtered by q.
func (s *Session) Students(q report.Query) ([]roster.Student, error) {
	if err := s.gate.Authorize(auth.ActionViewRoster, s.now()); err != nil {
		return nil, err
	}
	return report.FilterStudents(s.roster.Get(), q), nil
}

// Classes lists the class names in use.
func (s *Session) Classes() ([]string, error) {
	if err := s.gate.Authorize(auth.ActionViewRoster, s.now()); err != nil {
		return nil, err
	}
	return report.Classes(s.roster.Get()), nil
}

// AddStudent validates ns and appends the student.
func (s *Session) AddStudent(ctx context.Context, ns roster.NewStudent) (roster.Student, error) {
	if err := s.gate.Authorize(auth.ActionAddStudent, s.now()); err != nil {
		return roster.Student{}, err
	}
	var created roster.Student
	err := s.apply(ctx, "add", func(list []roster.Student) ([]roster.Student, bool, error) {
		next, st, err := roster.AddStudent(list, ns, s.now())
		created = st
		return next, err == nil, err
	})
	return created, err
}

// DeleteStudent removes the student after confirm approves it. A nil confirm
// counts as declined. It reports whether a student was removed.
func (s *Session) DeleteStudent(ctx context.Context, id int64, confirm func(roster.Student) bool) (bool, error) {
	if err := s.gate.Authorize(auth.ActionDeleteStudent, s.now()); err != nil {
		return false, err
	}
	st, ok := s.roster.Find(id)
	if !ok {
		return false, nil
	}
	if confirm == nil || !confirm(st) {
		return false, nil
	}
	var removed bool
	err := s.apply(ctx, "delete", func(list []roster.Student) ([]roster.Student, bool, error) {
		next, ok := roster.DeleteStudent(list, id)
		removed = ok
		return next, ok, nil
	})
	return removed, err
}

// ToggleAttendance toggles status for the student on date and returns the
// updated student.
func (s *Session) ToggleAttendance(ctx context.Context, id int64, date string, status roster.AttendanceStatus) (roster.Student, bool, error) {
	if err := s.gate.Authorize(auth.ActionMarkAttendance, s.now()); err != nil {
		return roster.Student{}, false, err
	}
	var found bool
	err := s.apply(ctx, "attendance", func(list []roster.Student) ([]roster.Student, bool, error) {
		next, ok, err := roster.ToggleAttendance(list, id, date, status)
		found = ok
		return next, ok, err
	})
	if err != nil || !found {
		return roster.Student{}, false, err
	}
	st, _ := s.roster.Find(id)
	return st, true, nil
}

// TogglePaidMonth flips the paid mark of month for the student.
func (s *Session) TogglePaidMonth(ctx context.Context, id int64, month string) (roster.Student, bool, error) {
	if err := s.gate.Authorize(auth.ActionMarkPaid, s.now()); err != nil {
		return roster.Student{}, false, err
	}
	var found bool
	err := s.apply(ctx, "paid", func(list []roster.Student) ([]roster.Student, bool, error) {
		next, ok, err := roster.TogglePaidMonth(list, id, month)
		found = ok
		return next, ok, err
	})
	if err != nil || !found {
		return roster.Student{}, false, err
	}
	st, _ := s.roster.Find(id)
	return st, true, nil
}

// apply runs fn on the current snapshot and, when it changed something,
// swaps the result in and writes it to the store. Write failures are
// recorded in the sync status, never returned.
func (s *Session) apply(ctx context.Context, op string, fn func([]roster.Student) ([]roster.Student, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed, err := fn(s.roster.Get())
	if err != nil || !changed {
		return err
	}
	s.roster.Replace(next)
	metrics.Mutations.WithLabelValues(op).Inc()

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	s.recordSync(s.store.SaveRoster(wctx, next))
	return nil
}

func (s *Session) recordSync(err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if err != nil {
		metrics.PersistFailures.Inc()
		log.Printf("persist failed: %v", err)
		s.status.OK = false
		s.status.LastError = err.Error()
		return
	}
	s.status = SyncStatus{OK: true, LastWrite: s.now().UTC()}
}

// SyncStatus returns the outcome of the latest write.
func (s *Session) SyncStatus() SyncStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Summary computes the dashboard figures for q. Fee figures are computed for
// every role; hiding them from teachers is up to the caller.
func (s *Session) Summary(q report.Query) (report.Summary, error) {
	now := s.now()
	if err := s.gate.Authorize(auth.ActionViewReports, now); err != nil {
		return report.Summary{}, err
	}
	if q.Date == "" {
		q.Date = roster.DateKey(now)
	}
	return report.Summarize(s.roster.Get(), q, now), nil
}

// Absentee is a student absent on the selected date with a ready nudge link.
type Absentee struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ClassName string `json:"className"`
	Phone     string `json:"phone"`
	Link      string `json:"link"`
}

// Absentees lists the filtered students absent on q.Date.
func (s *Session) Absentees(q report.Query) ([]Absentee, error) {
	if err := s.gate.Authorize(auth.ActionViewReports, s.now()); err != nil {
		return nil, err
	}
	if q.Date == "" {
		q.Date = s.Today()
	}
	absent := report.Absentees(report.FilterStudents(s.roster.Get(), q), q.Date)
	out := make([]Absentee, 0, len(absent))
	for _, st := range absent {
		out = append(out, Absentee{
			ID:        st.ID,
			Name:      st.Name,
			ClassName: st.ClassName,
			Phone:     st.Phone,
			Link:      report.ChatLink(st.Phone, report.AbsenceMessage(st.Name, q.Date)),
		})
	}
	return out, nil
}

// Export writes the whole roster as CSV with paid status for date's month.
func (s *Session) Export(w io.Writer, date string) error {
	if err := s.gate.Authorize(auth.ActionExport, s.now()); err != nil {
		return err
	}
	if date == "" {
		date = s.Today()
	}
	return report.WriteCSV(w, s.roster.Get(), report.MonthKey(date))
}

// License reports the subscription state. It is readable by anyone so the
// lock screen can offer the renewal link.
func (s *Session) License() License {
	return License{
		Expiry:    s.gate.Expiry(),
		Expired:   s.gate.Expired(s.now()),
		RenewLink: report.ChatLink(s.cfg.DeveloperPhone, report.RenewalMessage),
	}
}

// SetExpiry changes the subscription expiry. Developer only.
func (s *Session) SetExpiry(ctx context.Context, date string) (License, error) {
	if err := s.gate.Authorize(auth.ActionManageLicense, s.now()); err != nil {
		return License{}, err
	}
	if err := s.gate.SetExpiry(date); err != nil {
		return License{}, err
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err := s.store.SaveExpiry(wctx, date)
	if _, shared := s.store.(store.Subscriber); shared && err == nil {
		// republish the roster so other sessions re-read the expiry
		s.mu.Lock()
		err = s.store.SaveRoster(wctx, s.roster.Get())
		s.mu.Unlock()
	}
	s.recordSync(err)
	log.Printf("expiry set to %s", date)
	return s.License(), nil
}

// Healthy reports whether the store is reachable.
func (s *Session) Healthy(ctx context.Context) bool {
	return s.store.Healthy(ctx)
}
