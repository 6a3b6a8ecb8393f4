package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
	"github.com/cuinc99/docdoc/internal/platform/sequence"
)

// -- Mock repositories --

type mockQueueRepo struct {
	entries   map[uuid.UUID]*Queue
	createErr error
}

func newMockQueueRepo() *mockQueueRepo {
	return &mockQueueRepo{entries: make(map[uuid.UUID]*Queue)}
}

func (m *mockQueueRepo) Create(_ context.Context, q *Queue) error {
	if m.createErr != nil {
		return m.createErr
	}
	q.CreatedAt = time.Now()
	q.UpdatedAt = time.Now()
	m.entries[q.ID] = q
	return nil
}

func (m *mockQueueRepo) GetByID(_ context.Context, id uuid.UUID) (*Queue, error) {
	q, ok := m.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (m *mockQueueRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Queue, error) {
	return m.GetByID(ctx, id)
}

func (m *mockQueueRepo) Update(_ context.Context, q *Queue) error {
	m.entries[q.ID] = q
	return nil
}

func (m *mockQueueRepo) HasActiveVisit(_ context.Context, doctorID, patientID uuid.UUID, date time.Time) (bool, error) {
	for _, q := range m.entries {
		if q.DoctorID == doctorID && q.PatientID == patientID && q.Date.Equal(date) && !IsTerminal(q.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockQueueRepo) ListByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*Queue, error) {
	var out []*Queue
	for _, q := range m.entries {
		if q.DoctorID == doctorID && q.Date.Equal(date) {
			out = append(out, q)
		}
	}
	// urgent first, then by number
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			less := out[j].Priority == PriorityUrgent && out[i].Priority != PriorityUrgent
			if out[i].Priority == out[j].Priority {
				less = out[j].Number < out[i].Number
			}
			if less {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *mockQueueRepo) CountByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	count := 0
	for _, q := range m.entries {
		if q.DoctorID == doctorID && q.Date.Equal(date) {
			count++
		}
	}
	return count, nil
}

func (m *mockQueueRepo) CountNonWaiting(_ context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	count := 0
	for _, q := range m.entries {
		if q.DoctorID == doctorID && q.Date.Equal(date) && q.Status != StatusWaiting {
			count++
		}
	}
	return count, nil
}

func (m *mockQueueRepo) MoveWaiting(_ context.Context, doctorID uuid.UUID, from, to time.Time) (int, error) {
	moved := 0
	for _, q := range m.entries {
		if q.DoctorID == doctorID && q.Date.Equal(from) && q.Status == StatusWaiting {
			q.Date = to
			moved++
		}
	}
	return moved, nil
}

type mockVitalRepo struct {
	vitals map[uuid.UUID]*VitalSign
}

func newMockVitalRepo() *mockVitalRepo {
	return &mockVitalRepo{vitals: make(map[uuid.UUID]*VitalSign)}
}

func (m *mockVitalRepo) Create(_ context.Context, v *VitalSign) error {
	v.CreatedAt = time.Now()
	m.vitals[v.ID] = v
	return nil
}

func (m *mockVitalRepo) GetByID(_ context.Context, id uuid.UUID) (*VitalSign, error) {
	v, ok := m.vitals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return v, nil
}

func (m *mockVitalRepo) GetByQueueID(_ context.Context, queueID uuid.UUID) (*VitalSign, error) {
	for _, v := range m.vitals {
		if v.QueueID == queueID {
			return v, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockVitalRepo) Update(_ context.Context, v *VitalSign) error {
	m.vitals[v.ID] = v
	return nil
}

func (m *mockVitalRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.vitals, id)
	return nil
}

type mockScheduleSource struct {
	available map[string]bool
}

func (m *mockScheduleSource) AvailableOn(_ context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	return m.available[doctorID.String()+date.Format("20060102")], nil
}

func (m *mockScheduleSource) allow(doctorID uuid.UUID, date time.Time) {
	if m.available == nil {
		m.available = make(map[string]bool)
	}
	m.available[doctorID.String()+date.Format("20060102")] = true
}

// -- Helpers --

func newTestService() (*Service, *mockQueueRepo, *mockVitalRepo, *mockScheduleSource, *clock.Fixed) {
	queues := newMockQueueRepo()
	vitals := newMockVitalRepo()
	schedules := &mockScheduleSource{}
	clk := &clock.Fixed{T: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)}
	svc := NewService(queues, vitals, schedules, sequence.NewMemory(), clk, db.NopRunner{})
	return svc, queues, vitals, schedules, clk
}

func admitOne(t *testing.T, svc *Service, doctorID, patientID uuid.UUID) *Queue {
	t.Helper()
	entry, err := svc.Admit(context.Background(), AdmitParams{DoctorID: doctorID, PatientID: patientID})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	return entry
}

var (
	admin        = auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	receptionist = auth.Actor{ID: uuid.New(), Role: auth.RoleReceptionist}
)

func doctorActor(id uuid.UUID) auth.Actor { return auth.Actor{ID: id, Role: auth.RoleDoctor} }

// -- Tests --

func TestAdmitAssignsSequentialNumbers(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())

	for want := 1; want <= 3; want++ {
		entry := admitOne(t, svc, doctorID, uuid.New())
		if entry.Number != want {
			t.Errorf("queue number = %d, want %d", entry.Number, want)
		}
		if entry.Status != StatusWaiting {
			t.Errorf("status = %q, want waiting", entry.Status)
		}
	}
}

func TestAdmitYesterdayWestOfUTC(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	clk.T = time.Date(2026, 8, 29, 12, 0, 0, 0, loc)
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today().AddDate(0, 0, -1))

	// The wire format carries no offset, so the handler's parse lands on UTC
	// midnight; that instant is before the clinic-zone day boundary.
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	entry, err := svc.Admit(context.Background(), AdmitParams{
		DoctorID:  doctorID,
		PatientID: uuid.New(),
		Date:      &date,
	})
	if err != nil {
		t.Fatalf("Admit for yesterday: %v", err)
	}
	if !entry.Date.Equal(time.Date(2026, 8, 28, 0, 0, 0, 0, loc)) {
		t.Errorf("date = %v, want clinic-zone midnight of the same calendar day", entry.Date)
	}
}

func TestAdmitLostInsertRaceMapsToConflict(t *testing.T) {
	svc, queues, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())

	queues.createErr = &pgconn.PgError{Code: "23505"}
	_, err := svc.Admit(context.Background(), AdmitParams{DoctorID: doctorID, PatientID: uuid.New()})
	if !clinicerr.IsKind(err, clinicerr.Conflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

func TestAdmitNumbersScopedPerDoctor(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	docA, docB := uuid.New(), uuid.New()
	schedules.allow(docA, clk.Today())
	schedules.allow(docB, clk.Today())

	admitOne(t, svc, docA, uuid.New())
	entry := admitOne(t, svc, docB, uuid.New())
	if entry.Number != 1 {
		t.Errorf("second doctor's first number = %d, want 1", entry.Number)
	}
}

func TestAdmitWithoutScheduleFails(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.Admit(context.Background(), AdmitParams{DoctorID: uuid.New(), PatientID: uuid.New()})
	if !clinicerr.IsKind(err, clinicerr.NotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestAdmitDuplicateActiveVisitFails(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID, patientID := uuid.New(), uuid.New()
	schedules.allow(doctorID, clk.Today())

	admitOne(t, svc, doctorID, patientID)
	_, err := svc.Admit(context.Background(), AdmitParams{DoctorID: doctorID, PatientID: patientID})
	if !clinicerr.IsKind(err, clinicerr.Conflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

func TestAdmitAgainAfterCancel(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID, patientID := uuid.New(), uuid.New()
	schedules.allow(doctorID, clk.Today())

	first := admitOne(t, svc, doctorID, patientID)
	if _, err := svc.Cancel(context.Background(), first.ID, receptionist); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	second := admitOne(t, svc, doctorID, patientID)
	if second.Number != 2 {
		t.Errorf("number after re-admission = %d, want 2", second.Number)
	}
}

func TestAdmitRejectsOldDate(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	old := clk.Today().AddDate(0, 0, -2)
	schedules.allow(doctorID, old)

	_, err := svc.Admit(context.Background(), AdmitParams{
		DoctorID: doctorID, PatientID: uuid.New(), Date: &old,
	})
	if !clinicerr.IsKind(err, clinicerr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestAdmitRejectsBadPriority(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())

	_, err := svc.Admit(context.Background(), AdmitParams{
		DoctorID: doctorID, PatientID: uuid.New(), Priority: "stat",
	})
	if !clinicerr.IsKind(err, clinicerr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestListOrdersUrgentFirst(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())

	admitOne(t, svc, doctorID, uuid.New()) // number 1, normal
	urgent, err := svc.Admit(context.Background(), AdmitParams{
		DoctorID: doctorID, PatientID: uuid.New(), Priority: PriorityUrgent,
	})
	if err != nil {
		t.Fatalf("Admit urgent: %v", err)
	}

	items, err := svc.ListByDoctorDate(context.Background(), doctorID, clk.Today())
	if err != nil {
		t.Fatalf("ListByDoctorDate: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != urgent.ID {
		t.Errorf("urgent entry should sort first, got number %d priority %s", items[0].Number, items[0].Priority)
	}
}

func TestCallTransition(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())

	got, err := svc.Call(context.Background(), entry.ID, doctorActor(doctorID))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Status != StatusInConsultation {
		t.Errorf("status = %q, want in_consultation", got.Status)
	}
	if got.CalledAt == nil || got.StartedAt == nil {
		t.Error("called_at and started_at should be set")
	}

	// Calling again is not a valid transition.
	if _, err := svc.Call(context.Background(), entry.ID, doctorActor(doctorID)); !clinicerr.IsKind(err, clinicerr.InvalidTransition) {
		t.Fatalf("second call err = %v, want InvalidTransition", err)
	}
}

func TestCallRequiresAssignedDoctor(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())

	if _, err := svc.Call(context.Background(), entry.ID, doctorActor(uuid.New())); !clinicerr.IsKind(err, clinicerr.Forbidden) {
		t.Fatalf("other doctor err = %v, want Forbidden", err)
	}
	if _, err := svc.Call(context.Background(), entry.ID, admin); err != nil {
		t.Fatalf("admin call: %v", err)
	}
}

func TestCompleteOnlyFromConsultation(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())
	actor := doctorActor(doctorID)

	if _, err := svc.Complete(context.Background(), entry.ID, actor); !clinicerr.IsKind(err, clinicerr.InvalidTransition) {
		t.Fatalf("complete from waiting err = %v, want InvalidTransition", err)
	}

	if _, err := svc.Call(context.Background(), entry.ID, actor); err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := svc.Complete(context.Background(), entry.ID, actor)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != StatusCompleted || got.CompletedAt == nil {
		t.Errorf("status = %q completed_at = %v", got.Status, got.CompletedAt)
	}
}

func TestDoctorCannotCancel(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())

	if _, err := svc.Cancel(context.Background(), entry.ID, doctorActor(doctorID)); !clinicerr.IsKind(err, clinicerr.Forbidden) {
		t.Fatalf("doctor cancel err = %v, want Forbidden", err)
	}
	if _, err := svc.Cancel(context.Background(), entry.ID, receptionist); err != nil {
		t.Fatalf("receptionist cancel: %v", err)
	}
}

func TestCancelTerminalFails(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())

	if _, err := svc.Cancel(context.Background(), entry.ID, receptionist); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), entry.ID, receptionist); !clinicerr.IsKind(err, clinicerr.InvalidTransition) {
		t.Fatalf("cancel cancelled err = %v, want InvalidTransition", err)
	}
}

func TestSetStatusValidatesAndSkipsTimestamps(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())

	if _, err := svc.SetStatus(context.Background(), entry.ID, "unknown", receptionist); !clinicerr.IsKind(err, clinicerr.Validation) {
		t.Fatalf("bad status err = %v, want Validation", err)
	}

	got, err := svc.SetStatus(context.Background(), entry.ID, StatusInConsultation, receptionist)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != StatusInConsultation {
		t.Errorf("status = %q, want in_consultation", got.Status)
	}
	if got.CalledAt != nil || got.StartedAt != nil {
		t.Error("SetStatus must not set transition timestamps")
	}
}

func TestRecordVitalsMovesToVitals(t *testing.T) {
	svc, _, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())

	h, w := 170.0, 70.0
	v, err := svc.RecordVitals(context.Background(), entry.ID, &VitalSign{HeightCM: &h, WeightKG: &w}, receptionist)
	if err != nil {
		t.Fatalf("RecordVitals: %v", err)
	}
	if v.BMI == nil || *v.BMI != 24.2 {
		t.Errorf("BMI = %v, want 24.2", v.BMI)
	}

	got, err := svc.Get(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusVitals {
		t.Errorf("status = %q, want vitals", got.Status)
	}

	// One vitals row per visit.
	if _, err := svc.RecordVitals(context.Background(), entry.ID, &VitalSign{}, receptionist); !clinicerr.IsKind(err, clinicerr.Conflict) {
		t.Fatalf("duplicate vitals err = %v, want Conflict", err)
	}
}

func TestDeleteVitalsRevertsToWaiting(t *testing.T) {
	svc, queues, _, schedules, clk := newTestService()
	doctorID := uuid.New()
	schedules.allow(doctorID, clk.Today())
	entry := admitOne(t, svc, doctorID, uuid.New())

	v, err := svc.RecordVitals(context.Background(), entry.ID, &VitalSign{}, receptionist)
	if err != nil {
		t.Fatalf("RecordVitals: %v", err)
	}
	if err := svc.DeleteVitals(context.Background(), v.ID); err != nil {
		t.Fatalf("DeleteVitals: %v", err)
	}
	if queues.entries[entry.ID].Status != StatusWaiting {
		t.Errorf("status = %q, want waiting", queues.entries[entry.ID].Status)
	}
}

func TestComputeBMI(t *testing.T) {
	if got := ComputeBMI(70, 170); got != 24.2 {
		t.Errorf("ComputeBMI(70, 170) = %v, want 24.2", got)
	}
	if got := ComputeBMI(0, 170); got != 0 {
		t.Errorf("ComputeBMI with zero weight = %v, want 0", got)
	}
}
