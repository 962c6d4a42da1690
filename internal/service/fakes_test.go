package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/notifier"
	"github.com/tutoria/tutoria-backend/internal/repository"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

// memState is the shared backing state for the in-memory store fakes. The
// per-interface wrappers below expose it through the store interfaces the
// services consume, with the same error conventions as the pgx
// implementations: pgx.ErrNoRows for missing rows and zero-row guarded
// updates.
type memState struct {
	mu          sync.Mutex
	students    map[int]model.Student
	groups      map[int]model.Group
	members     map[int]map[int]bool
	sessions    map[uuid.UUID]model.Session
	attendance  map[uuid.UUID][]model.GroupAttendanceRecord
	credits     map[uuid.UUID]model.MakeupCredit
	settings    map[string]model.AppSetting
	nextStudent int
	nextGroup   int
}

func newMemState() *memState {
	return &memState{
		students:   make(map[int]model.Student),
		groups:     make(map[int]model.Group),
		members:    make(map[int]map[int]bool),
		sessions:   make(map[uuid.UUID]model.Session),
		attendance: make(map[uuid.UUID][]model.GroupAttendanceRecord),
		credits:    make(map[uuid.UUID]model.MakeupCredit),
		settings:   make(map[string]model.AppSetting),
	}
}

type memSnapshot struct {
	students   map[int]model.Student
	groups     map[int]model.Group
	members    map[int]map[int]bool
	sessions   map[uuid.UUID]model.Session
	attendance map[uuid.UUID][]model.GroupAttendanceRecord
	credits    map[uuid.UUID]model.MakeupCredit
	settings   map[string]model.AppSetting
}

func (m *memState) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		students:   make(map[int]model.Student, len(m.students)),
		groups:     make(map[int]model.Group, len(m.groups)),
		members:    make(map[int]map[int]bool, len(m.members)),
		sessions:   make(map[uuid.UUID]model.Session, len(m.sessions)),
		attendance: make(map[uuid.UUID][]model.GroupAttendanceRecord, len(m.attendance)),
		credits:    make(map[uuid.UUID]model.MakeupCredit, len(m.credits)),
		settings:   make(map[string]model.AppSetting, len(m.settings)),
	}
	for k, v := range m.students {
		snap.students[k] = v
	}
	for k, v := range m.groups {
		snap.groups[k] = v
	}
	for g, set := range m.members {
		cp := make(map[int]bool, len(set))
		for s, active := range set {
			cp[s] = active
		}
		snap.members[g] = cp
	}
	for k, v := range m.sessions {
		snap.sessions[k] = v
	}
	for k, v := range m.attendance {
		snap.attendance[k] = append([]model.GroupAttendanceRecord(nil), v...)
	}
	for k, v := range m.credits {
		snap.credits[k] = v
	}
	for k, v := range m.settings {
		snap.settings[k] = v
	}
	return snap
}

func (m *memState) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = snap.students
	m.groups = snap.groups
	m.members = snap.members
	m.sessions = snap.sessions
	m.attendance = snap.attendance
	m.credits = snap.credits
	m.settings = snap.settings
}

// fakeTx runs fn against the shared state and restores the pre-call
// snapshot on error, mirroring transactional rollback.
type fakeTx struct {
	state *memState
}

func (t *fakeTx) InTx(ctx context.Context, fn func(db repository.DB) error) error {
	snap := t.state.snapshot()
	if err := fn(nil); err != nil {
		t.state.restore(snap)
		return err
	}
	return nil
}

var (
	_ TxRunner          = (*fakeTx)(nil)
	_ SessionStore      = memSessions{}
	_ StudentStore      = memStudents{}
	_ GroupStore        = memGroups{}
	_ AttendanceStore   = memAttendance{}
	_ CreditStore       = memCredits{}
	_ SettingStore      = memSettings{}
	_ notifier.Notifier = (*fakeNotifier)(nil)
)

// ---------------- students ----------------

type memStudents struct{ *memState }

func (m memStudents) Create(ctx context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.students {
		if existing.Email == s.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.nextStudent++
	s.ID = m.nextStudent
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.students[s.ID] = *s
	return nil
}

func (m memStudents) GetByID(ctx context.Context, id int) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m memStudents) GetByIDForUpdate(ctx context.Context, db repository.DB, id int) (*model.Student, error) {
	return m.GetByID(ctx, id)
}

func (m memStudents) Update(ctx context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[s.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range m.students {
		if id != s.ID && existing.Email == s.Email {
			return repository.ErrDuplicateEmail
		}
	}
	cur.FullName = s.FullName
	cur.Email = s.Email
	cur.Timezone = s.Timezone
	cur.Active = s.Active
	cur.UpdatedAt = time.Now()
	m.students[s.ID] = cur
	return nil
}

func (m memStudents) ListPaginated(ctx context.Context, limit, offset int) ([]model.Student, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.Student, 0, len(m.students))
	for _, s := range m.students {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FullName < all[j].FullName })
	return page(all, limit, offset), len(all), nil
}

func (m memStudents) AddBalance(ctx context.Context, id, sessions int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.TotalSessions += sessions
	s.RemainingSessions += sessions
	m.students[id] = s
	return nil
}

func (m memStudents) ApplyCounterDeltas(ctx context.Context, db repository.DB, studentID, completedDelta, remainingDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[studentID]
	if !ok {
		return nil
	}
	s.CompletedSessions = clampZero(s.CompletedSessions + completedDelta)
	s.RemainingSessions = clampZero(s.RemainingSessions + remainingDelta)
	m.students[studentID] = s
	return nil
}

// ---------------- groups ----------------

type memGroups struct{ *memState }

func (m memGroups) Create(ctx context.Context, g *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextGroup++
	g.ID = m.nextGroup
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	m.groups[g.ID] = *g
	return nil
}

func (m memGroups) GetByID(ctx context.Context, id int) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &g, nil
}

func (m memGroups) GetByIDForUpdate(ctx context.Context, db repository.DB, id int) (*model.Group, error) {
	return m.GetByID(ctx, id)
}

func (m memGroups) ListPaginated(ctx context.Context, limit, offset int) ([]model.Group, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.Group, 0, len(m.groups))
	for _, g := range m.groups {
		all = append(all, g)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), len(all), nil
}

func (m memGroups) AddMember(ctx context.Context, groupID, studentID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[groupID] == nil {
		m.members[groupID] = make(map[int]bool)
	}
	m.members[groupID][studentID] = true
	return nil
}

func (m memGroups) RemoveMember(ctx context.Context, groupID, studentID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.members[groupID]; ok {
		if _, enrolled := set[studentID]; enrolled {
			set[studentID] = false
		}
	}
	return nil
}

func (m memGroups) ListActiveMembers(ctx context.Context, groupID int) ([]model.Student, error) {
	ids, err := m.ListActiveMemberIDs(ctx, nil, groupID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	students := make([]model.Student, 0, len(ids))
	for _, id := range ids {
		students = append(students, m.students[id])
	}
	return students, nil
}

func (m memGroups) ListActiveMemberIDs(ctx context.Context, db repository.DB, groupID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for studentID, active := range m.members[groupID] {
		if active && m.students[studentID].Active {
			ids = append(ids, studentID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (m memGroups) ApplyCounterDeltas(ctx context.Context, db repository.DB, groupID, completedDelta, remainingDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return nil
	}
	g.CompletedSessions = clampZero(g.CompletedSessions + completedDelta)
	g.RemainingSessions = clampZero(g.RemainingSessions + remainingDelta)
	m.groups[groupID] = g
	return nil
}

// ---------------- sessions ----------------

type memSessions struct{ *memState }

func (m memSessions) CreateBatch(ctx context.Context, db repository.DB, sessions []*model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sessions {
		s.CreatedAt = time.Now()
		s.UpdatedAt = s.CreatedAt
		m.sessions[s.ID] = *s
	}
	return nil
}

func (m memSessions) CountBySubject(ctx context.Context, db repository.DB, subject model.SubjectRef) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if s.Subject == subject {
			count++
		}
	}
	return count, nil
}

func (m memSessions) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m memSessions) GetByIDForUpdate(ctx context.Context, db repository.DB, id uuid.UUID) (*model.Session, error) {
	return m.GetByID(ctx, id)
}

func (m memSessions) ListFiltered(ctx context.Context, subject *model.SubjectRef, status *model.SessionStatus, from, to *time.Time, limit, offset int) ([]model.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Session
	for _, s := range m.sessions {
		if subject != nil && s.Subject != *subject {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		if from != nil && s.SessionDate.Before(*from) {
			continue
		}
		if to != nil && s.SessionDate.After(*to) {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartsAt.After(all[j].StartsAt) })
	return page(all, limit, offset), len(all), nil
}

func (m memSessions) ListForAgenda(ctx context.Context, subject model.SubjectRef, date time.Time) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions {
		if s.Subject == subject && s.SessionDate.Equal(date) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m memSessions) mutateInitial(id uuid.UUID, mutate func(*model.Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status.IsTerminal() {
		return pgx.ErrNoRows
	}
	mutate(&s)
	s.UpdatedAt = time.Now()
	m.sessions[id] = s
	return nil
}

func (m memSessions) MarkCompleted(ctx context.Context, db repository.DB, id uuid.UUID, attendance model.Attendance) error {
	return m.mutateInitial(id, func(s *model.Session) {
		s.Status = model.SessionStatusCompleted
		s.Attendance = attendance
	})
}

func (m memSessions) MarkMissed(ctx context.Context, db repository.DB, id uuid.UUID, reason string) error {
	return m.mutateInitial(id, func(s *model.Session) {
		s.Status = model.SessionStatusMissed
		s.Attendance = model.AttendanceAbsent
		s.Reason = reason
	})
}

func (m memSessions) MarkCancelled(ctx context.Context, db repository.DB, id uuid.UUID, status model.SessionStatus, actor model.CancelActor, reason string) error {
	return m.mutateInitial(id, func(s *model.Session) {
		s.Status = status
		s.CancelledBy = actor
		s.Reason = reason
	})
}

func (m memSessions) CompleteGroupSession(ctx context.Context, db repository.DB, id uuid.UUID) error {
	return m.mutateInitial(id, func(s *model.Session) {
		s.Status = model.SessionStatusCompleted
	})
}

func (m memSessions) Delete(ctx context.Context, db repository.DB, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status.IsTerminal() {
		return pgx.ErrNoRows
	}
	delete(m.sessions, id)
	return nil
}

// ---------------- attendance ----------------

type memAttendance struct{ *memState }

func (m memAttendance) CreateBatch(ctx context.Context, db repository.DB, records []*model.GroupAttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		rec.CreatedAt = time.Now()
		rec.UpdatedAt = rec.CreatedAt
		m.attendance[rec.SessionID] = append(m.attendance[rec.SessionID], *rec)
	}
	return nil
}

func (m memAttendance) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.GroupAttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.GroupAttendanceRecord(nil), m.attendance[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m memAttendance) ListBySessionForUpdate(ctx context.Context, db repository.DB, sessionID uuid.UUID) ([]model.GroupAttendanceRecord, error) {
	return m.ListBySession(ctx, sessionID)
}

func (m memAttendance) UpdateMark(ctx context.Context, db repository.DB, sessionID uuid.UUID, studentID int, attendance model.Attendance, homeworkGrade *float64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.attendance[sessionID]
	for i := range records {
		if records[i].StudentID == studentID {
			records[i].Attendance = attendance
			records[i].HomeworkGrade = homeworkGrade
			records[i].Reason = reason
			records[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m memAttendance) DeleteBySession(ctx context.Context, db repository.DB, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attendance, sessionID)
	return nil
}

// ---------------- credits ----------------

type memCredits struct{ *memState }

func (m memCredits) Create(ctx context.Context, db repository.DB, credit *model.MakeupCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits[credit.ID] = *credit
	return nil
}

func (m memCredits) GetByID(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credits[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (m memCredits) GetByIDForUpdate(ctx context.Context, db repository.DB, id uuid.UUID) (*model.MakeupCredit, error) {
	return m.GetByID(ctx, id)
}

func (m memCredits) ListByStudent(ctx context.Context, studentID int, status *model.CreditStatus) ([]model.MakeupCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MakeupCredit
	for _, c := range m.credits {
		if c.StudentID != studentID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreditDate.After(out[j].CreditDate) })
	return out, nil
}

func (m memCredits) Redeem(ctx context.Context, db repository.DB, id uuid.UUID, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credits[id]
	if !ok || c.Status != model.CreditStatusAvailable {
		return pgx.ErrNoRows
	}
	c.Status = model.CreditStatusUsed
	c.UsedDate = &usedAt
	m.credits[id] = c
	return nil
}

func (m memCredits) CountAvailable(ctx context.Context, studentID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.credits {
		if c.StudentID == studentID && c.Status == model.CreditStatusAvailable {
			count++
		}
	}
	return count, nil
}

// ---------------- settings ----------------

type memSettings struct{ *memState }

func (m memSettings) GetAll(ctx context.Context) ([]model.AppSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AppSetting, 0, len(m.settings))
	for _, s := range m.settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m memSettings) GetByKey(ctx context.Context, key string) (*model.AppSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m memSettings) Upsert(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = model.AppSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	return nil
}

// ---------------- notifier ----------------

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []notifier.Message
	failTo string
}

func (f *fakeNotifier) Send(ctx context.Context, msg notifier.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo == "*" || f.failTo == msg.To {
		return context.DeadlineExceeded
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) messages() []notifier.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifier.Message(nil), f.sent...)
}

// ---------------- env ----------------

const (
	testCanonicalZone = "Asia/Jakarta"
	testFallbackLink  = "https://meet.example.com/fallback"
)

type testEnv struct {
	state *memState
	notif *fakeNotifier
	tz    *timezone.Normalizer

	scheduling *SchedulingService
	lifecycle  *LifecycleService
	ledger     *LedgerService
	agenda     *AgendaService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tz, err := timezone.New(testCanonicalZone)
	if err != nil {
		t.Fatalf("timezone.New: %v", err)
	}

	state := newMemState()
	notif := &fakeNotifier{}
	tx := &fakeTx{state: state}
	log := zerolog.Nop()

	sessions := memSessions{state}
	students := memStudents{state}
	groups := memGroups{state}
	attendance := memAttendance{state}
	credits := memCredits{state}
	settings := memSettings{state}

	return &testEnv{
		state:      state,
		notif:      notif,
		tz:         tz,
		scheduling: NewSchedulingService(tx, sessions, students, groups, attendance, credits, settings, tz, notif, nil, testFallbackLink, log),
		lifecycle:  NewLifecycleService(tx, sessions, students, groups, attendance, credits, tz, notif, nil, 2*time.Hour, log),
		ledger:     NewLedgerService(tx, credits, students, log),
		agenda:     NewAgendaService(sessions, students, groups, tz, nil, log),
	}
}

func (e *testEnv) addStudent(t *testing.T, name, zone string, remaining int) model.Student {
	t.Helper()
	s := model.Student{
		FullName:          name,
		Email:             name + "@example.com",
		Timezone:          zone,
		TotalSessions:     remaining,
		RemainingSessions: remaining,
		Active:            true,
	}
	if err := (memStudents{e.state}).Create(context.Background(), &s); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return s
}

func (e *testEnv) addGroup(t *testing.T, name, zone string, remaining int) model.Group {
	t.Helper()
	g := model.Group{
		Name:              name,
		Timezone:          zone,
		TotalSessions:     remaining,
		RemainingSessions: remaining,
		Active:            true,
	}
	if err := (memGroups{e.state}).Create(context.Background(), &g); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	return g
}

func (e *testEnv) enroll(t *testing.T, groupID int, studentIDs ...int) {
	t.Helper()
	for _, id := range studentIDs {
		if err := (memGroups{e.state}).AddMember(context.Background(), groupID, id); err != nil {
			t.Fatalf("seed enrollment: %v", err)
		}
	}
}

// addSession seeds a session directly, bypassing the scheduling flow, for
// lifecycle tests that need precise start instants.
func (e *testEnv) addSession(t *testing.T, subject model.SubjectRef, number int, startsAt time.Time, status model.SessionStatus) model.Session {
	t.Helper()
	disp, err := e.tz.ToDisplay(startsAt.UTC(), e.tz.Zone())
	if err != nil {
		t.Fatalf("seed session display: %v", err)
	}
	var s *model.Session
	if subject.Kind == model.SubjectStudent {
		s = model.NewPrivateSession(subject.ID, number, e.tz.DayInCanonical(startsAt), disp.Time, startsAt.UTC(), status, "")
	} else {
		s = model.NewGroupSession(subject.ID, number, e.tz.DayInCanonical(startsAt), disp.Time, startsAt.UTC(), status, "")
	}
	if err := (memSessions{e.state}).CreateBatch(context.Background(), nil, []*model.Session{s}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return *s
}

// addAttendanceRows seeds blank participant records for a group session.
func (e *testEnv) addAttendanceRows(t *testing.T, sessionID uuid.UUID, studentIDs ...int) {
	t.Helper()
	records := make([]*model.GroupAttendanceRecord, 0, len(studentIDs))
	for _, id := range studentIDs {
		records = append(records, &model.GroupAttendanceRecord{ID: uuid.New(), SessionID: sessionID, StudentID: id})
	}
	if err := (memAttendance{e.state}).CreateBatch(context.Background(), nil, records); err != nil {
		t.Fatalf("seed attendance: %v", err)
	}
}

func (e *testEnv) student(t *testing.T, id int) model.Student {
	t.Helper()
	s, err := (memStudents{e.state}).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("student %d: %v", id, err)
	}
	return *s
}

func (e *testEnv) group(t *testing.T, id int) model.Group {
	t.Helper()
	g, err := (memGroups{e.state}).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("group %d: %v", id, err)
	}
	return *g
}

func (e *testEnv) session(t *testing.T, id uuid.UUID) model.Session {
	t.Helper()
	s, err := (memSessions{e.state}).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("session %s: %v", id, err)
	}
	return *s
}

func (e *testEnv) studentCredits(t *testing.T, studentID int) []model.MakeupCredit {
	t.Helper()
	credits, err := (memCredits{e.state}).ListByStudent(context.Background(), studentID, nil)
	if err != nil {
		t.Fatalf("credits for %d: %v", studentID, err)
	}
	return credits
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
