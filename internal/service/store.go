package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/repository"
)

// The store interfaces below are the persistence surface the services
// operate on. The repository package provides the pgx-backed
// implementations; tests substitute in-memory fakes. Methods taking a
// repository.DB participate in a surrounding transaction.

// TxRunner executes fn inside one datastore transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(db repository.DB) error) error
}

// SessionStore persists session rows.
type SessionStore interface {
	CreateBatch(ctx context.Context, db repository.DB, sessions []*model.Session) error
	CountBySubject(ctx context.Context, db repository.DB, subject model.SubjectRef) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	GetByIDForUpdate(ctx context.Context, db repository.DB, id uuid.UUID) (*model.Session, error)
	ListFiltered(ctx context.Context, subject *model.SubjectRef, status *model.SessionStatus, from, to *time.Time, limit, offset int) ([]model.Session, int, error)
	ListForAgenda(ctx context.Context, subject model.SubjectRef, date time.Time) ([]model.Session, error)
	MarkCompleted(ctx context.Context, db repository.DB, id uuid.UUID, attendance model.Attendance) error
	MarkMissed(ctx context.Context, db repository.DB, id uuid.UUID, reason string) error
	MarkCancelled(ctx context.Context, db repository.DB, id uuid.UUID, status model.SessionStatus, actor model.CancelActor, reason string) error
	CompleteGroupSession(ctx context.Context, db repository.DB, id uuid.UUID) error
	Delete(ctx context.Context, db repository.DB, id uuid.UUID) error
}

// StudentStore persists students and their session counters.
type StudentStore interface {
	Create(ctx context.Context, s *model.Student) error
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByIDForUpdate(ctx context.Context, db repository.DB, id int) (*model.Student, error)
	Update(ctx context.Context, s *model.Student) error
	ListPaginated(ctx context.Context, limit, offset int) ([]model.Student, int, error)
	AddBalance(ctx context.Context, id, sessions int) error
	ApplyCounterDeltas(ctx context.Context, db repository.DB, studentID, completedDelta, remainingDelta int) error
}

// GroupStore persists groups, enrollments and group counters.
type GroupStore interface {
	Create(ctx context.Context, g *model.Group) error
	GetByID(ctx context.Context, id int) (*model.Group, error)
	GetByIDForUpdate(ctx context.Context, db repository.DB, id int) (*model.Group, error)
	ListPaginated(ctx context.Context, limit, offset int) ([]model.Group, int, error)
	AddMember(ctx context.Context, groupID, studentID int) error
	RemoveMember(ctx context.Context, groupID, studentID int) error
	ListActiveMembers(ctx context.Context, groupID int) ([]model.Student, error)
	ListActiveMemberIDs(ctx context.Context, db repository.DB, groupID int) ([]int, error)
	ApplyCounterDeltas(ctx context.Context, db repository.DB, groupID, completedDelta, remainingDelta int) error
}

// AttendanceStore persists per-participant rows of group sessions.
type AttendanceStore interface {
	CreateBatch(ctx context.Context, db repository.DB, records []*model.GroupAttendanceRecord) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.GroupAttendanceRecord, error)
	ListBySessionForUpdate(ctx context.Context, db repository.DB, sessionID uuid.UUID) ([]model.GroupAttendanceRecord, error)
	UpdateMark(ctx context.Context, db repository.DB, sessionID uuid.UUID, studentID int, attendance model.Attendance, homeworkGrade *float64, reason string) error
	DeleteBySession(ctx context.Context, db repository.DB, sessionID uuid.UUID) error
}

// CreditStore persists the makeup credit ledger.
type CreditStore interface {
	Create(ctx context.Context, db repository.DB, credit *model.MakeupCredit) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error)
	GetByIDForUpdate(ctx context.Context, db repository.DB, id uuid.UUID) (*model.MakeupCredit, error)
	ListByStudent(ctx context.Context, studentID int, status *model.CreditStatus) ([]model.MakeupCredit, error)
	Redeem(ctx context.Context, db repository.DB, id uuid.UUID, usedAt time.Time) error
	CountAvailable(ctx context.Context, studentID int) (int, error)
}

// SettingStore persists application settings.
type SettingStore interface {
	GetAll(ctx context.Context) ([]model.AppSetting, error)
	GetByKey(ctx context.Context, key string) (*model.AppSetting, error)
	Upsert(ctx context.Context, key, value string) error
}

var (
	_ TxRunner        = (*repository.TxRunner)(nil)
	_ SessionStore    = (*repository.SessionRepository)(nil)
	_ StudentStore    = (*repository.StudentRepository)(nil)
	_ GroupStore      = (*repository.GroupRepository)(nil)
	_ AttendanceStore = (*repository.AttendanceRepository)(nil)
	_ CreditStore     = (*repository.CreditRepository)(nil)
	_ SettingStore    = (*repository.SettingRepository)(nil)
)
