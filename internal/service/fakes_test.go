package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brightmed/medremind/internal/config"
	"github.com/brightmed/medremind/internal/models"
	"github.com/brightmed/medremind/internal/notify"
	"github.com/brightmed/medremind/internal/repository"
)

// fakeClock lets tests drive grace-period expiry deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakeCaregiverRepo struct {
	caregivers map[int64]*models.Caregiver
}

func (r *fakeCaregiverRepo) Create(ctx context.Context, c *models.Caregiver) (*models.Caregiver, error) {
	r.caregivers[c.ID] = c
	return c, nil
}

func (r *fakeCaregiverRepo) GetByID(ctx context.Context, id int64) (*models.Caregiver, error) {
	c, ok := r.caregivers[id]
	if !ok {
		return nil, fmt.Errorf("caregiver %d: %w", id, repository.ErrNotFound)
	}
	return c, nil
}

func (r *fakeCaregiverRepo) List(ctx context.Context) ([]*models.Caregiver, error) {
	var out []*models.Caregiver
	for _, c := range r.caregivers {
		out = append(out, c)
	}
	return out, nil
}

type fakeElderRepo struct {
	elders map[int64]*models.Elder
}

func (r *fakeElderRepo) Create(ctx context.Context, e *models.Elder) (*models.Elder, error) {
	r.elders[e.ID] = e
	return e, nil
}

func (r *fakeElderRepo) GetByID(ctx context.Context, id int64) (*models.Elder, error) {
	e, ok := r.elders[id]
	if !ok {
		return nil, fmt.Errorf("elder %d: %w", id, repository.ErrNotFound)
	}
	return e, nil
}

func (r *fakeElderRepo) GetByCaregiverID(ctx context.Context, caregiverID int64) ([]*models.Elder, error) {
	var out []*models.Elder
	for _, e := range r.elders {
		if e.CaregiverID == caregiverID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeElderRepo) List(ctx context.Context) ([]*models.Elder, error) {
	var out []*models.Elder
	for _, e := range r.elders {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeElderRepo) Update(ctx context.Context, e *models.Elder) (*models.Elder, error) {
	r.elders[e.ID] = e
	return e, nil
}

func (r *fakeElderRepo) DeleteCascade(ctx context.Context, id int64) error {
	delete(r.elders, id)
	return nil
}

type fakeMedicationRepo struct {
	meds map[int64]*models.Medication
}

func (r *fakeMedicationRepo) Create(ctx context.Context, m *models.Medication) (*models.Medication, error) {
	r.meds[m.ID] = m
	return m, nil
}

func (r *fakeMedicationRepo) GetByID(ctx context.Context, id int64) (*models.Medication, error) {
	m, ok := r.meds[id]
	if !ok {
		return nil, fmt.Errorf("medication %d: %w", id, repository.ErrNotFound)
	}
	return m, nil
}

func (r *fakeMedicationRepo) GetByElderID(ctx context.Context, elderID int64) ([]*models.Medication, error) {
	var out []*models.Medication
	for _, m := range r.meds {
		if m.ElderID == elderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMedicationRepo) GetActive(ctx context.Context, asOf time.Time) ([]*models.Medication, error) {
	var out []*models.Medication
	for _, m := range r.meds {
		if !m.Active {
			continue
		}
		if m.EndDate != nil && m.EndDate.Before(asOf) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMedicationRepo) Update(ctx context.Context, m *models.Medication) (*models.Medication, error) {
	r.meds[m.ID] = m
	return m, nil
}

func (r *fakeMedicationRepo) Deactivate(ctx context.Context, id int64) error {
	m, ok := r.meds[id]
	if !ok {
		return fmt.Errorf("medication %d: %w", id, repository.ErrNotFound)
	}
	m.Active = false
	return nil
}

func (r *fakeMedicationRepo) Delete(ctx context.Context, id int64) error {
	delete(r.meds, id)
	return nil
}

// fakeReminderRepo mirrors the postgres repository's conditional-update
// semantics so the engine's race handling is exercised for real.
type fakeReminderRepo struct {
	mu     sync.Mutex
	nextID int64
	logs   map[int64]*models.ReminderLog

	findErr error
	// findAlwaysNil simulates the window where the dedupe lookup misses a
	// concurrent insert, forcing Create onto the unique-index path.
	findAlwaysNil bool
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{logs: make(map[int64]*models.ReminderLog)}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (r *fakeReminderRepo) Create(ctx context.Context, log *models.ReminderLog) (*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.logs {
		if existing.MedicationID == log.MedicationID && sameDay(existing.ScheduledTime, log.ScheduledTime) {
			return nil, fmt.Errorf("medication %d: %w", log.MedicationID, repository.ErrDuplicateReminder)
		}
	}

	r.nextID++
	log.ID = r.nextID
	if log.Status == "" {
		log.Status = models.ReminderStatusSent
	}
	if log.ConfirmationMethod == "" {
		log.ConfirmationMethod = models.ConfirmationNone
	}
	log.CreatedAt = log.ScheduledTime
	stored := *log
	r.logs[log.ID] = &stored
	return log, nil
}

func (r *fakeReminderRepo) GetByID(ctx context.Context, id int64) (*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return nil, fmt.Errorf("reminder log %d: %w", id, repository.ErrNotFound)
	}
	copied := *log
	return &copied, nil
}

func (r *fakeReminderRepo) FindByMedicationAndDay(ctx context.Context, medicationID int64, day time.Time) (*models.ReminderLog, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.findAlwaysNil {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, log := range r.logs {
		if log.MedicationID == medicationID && sameDay(log.ScheduledTime, day) {
			copied := *log
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeReminderRepo) FindVoiceGraceExpired(ctx context.Context, cutoff time.Time) ([]*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReminderLog
	for _, log := range r.logs {
		if log.Status == models.ReminderStatusSent &&
			log.ConfirmationMethod == models.ConfirmationNone &&
			log.VoiceCallTime != nil && !log.VoiceCallTime.After(cutoff) &&
			log.SMSTime == nil {
			copied := *log
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReminderRepo) FindSMSGraceExpired(ctx context.Context, cutoff time.Time) ([]*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReminderLog
	for _, log := range r.logs {
		if log.Status == models.ReminderStatusSent &&
			log.ConfirmationMethod == models.ConfirmationNone &&
			log.SMSTime != nil && !log.SMSTime.After(cutoff) &&
			log.CaregiverAlertTime == nil {
			copied := *log
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReminderRepo) RecordVoiceAttempt(ctx context.Context, id int64, delivered bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return fmt.Errorf("reminder log %d: %w", id, repository.ErrNotFound)
	}
	log.VoiceCallSent = delivered
	t := at
	log.VoiceCallTime = &t
	return nil
}

func (r *fakeReminderRepo) RecordSMSAttempt(ctx context.Context, id int64, delivered bool, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return false, nil
	}
	if log.Status != models.ReminderStatusSent ||
		log.ConfirmationMethod != models.ConfirmationNone ||
		log.SMSTime != nil {
		return false, nil
	}
	log.SMSSent = delivered
	t := at
	log.SMSTime = &t
	return true, nil
}

func (r *fakeReminderRepo) MarkMissed(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return false, nil
	}
	if log.Status != models.ReminderStatusSent ||
		log.ConfirmationMethod != models.ConfirmationNone ||
		log.CaregiverAlertTime != nil {
		return false, nil
	}
	log.Status = models.ReminderStatusMissed
	log.CaregiverAlertSent = true
	t := at
	log.CaregiverAlertTime = &t
	return true, nil
}

func (r *fakeReminderRepo) Confirm(ctx context.Context, id int64, method models.ConfirmationMethod, at time.Time) (*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return nil, fmt.Errorf("reminder log %d: %w", id, repository.ErrNotFound)
	}
	log.Status = models.ReminderStatusTaken
	log.ConfirmationMethod = method
	t := at
	log.ConfirmationTime = &t
	copied := *log
	return &copied, nil
}

func (r *fakeReminderRepo) ListRecent(ctx context.Context, limit int) ([]*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReminderLog
	for _, log := range r.logs {
		copied := *log
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeReminderRepo) ListByElder(ctx context.Context, elderID int64) ([]*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReminderLog
	for _, log := range r.logs {
		if log.ElderID == elderID {
			copied := *log
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReminderRepo) ListByDay(ctx context.Context, day time.Time) ([]*models.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReminderLog
	for _, log := range r.logs {
		if sameDay(log.ScheduledTime, day) {
			copied := *log
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReminderRepo) Stats(ctx context.Context, since time.Time) (*models.AdherenceStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var logs []*models.ReminderLog
	for _, log := range r.logs {
		if !log.ScheduledTime.Before(since) {
			logs = append(logs, log)
		}
	}
	return Summarize(logs), nil
}

type fakeGateway struct {
	mu         sync.Mutex
	voiceCalls []string
	smsSends   []string
	voiceErr   error
	smsErr     error
}

func (g *fakeGateway) PlaceVoiceCall(ctx context.Context, phone string, lang models.Language, med string) (notify.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.voiceErr != nil {
		return notify.Result{Timestamp: time.Now()}, g.voiceErr
	}
	g.voiceCalls = append(g.voiceCalls, phone+"/"+med)
	return notify.Result{Success: true, ProviderID: "CALL_TEST", Timestamp: time.Now()}, nil
}

func (g *fakeGateway) SendSMS(ctx context.Context, phone string, lang models.Language, med string) (notify.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.smsErr != nil {
		return notify.Result{Timestamp: time.Now()}, g.smsErr
	}
	g.smsSends = append(g.smsSends, phone+"/"+med)
	return notify.Result{Success: true, ProviderID: "SMS_TEST", Timestamp: time.Now()}, nil
}

func (g *fakeGateway) voiceCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.voiceCalls)
}

func (g *fakeGateway) smsCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.smsSends)
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (a *fakeAlerter) AlertCaregiver(ctx context.Context, alert notify.Alert) (notify.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return notify.Result{Timestamp: time.Now()}, a.err
	}
	a.alerts = append(a.alerts, alert)
	return notify.Result{Success: true, ProviderID: "ALERT_TEST", Timestamp: time.Now()}, nil
}

func (a *fakeAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// testEnv wires a Service against fakes with a controllable clock.
type testEnv struct {
	svc        *Service
	clock      *fakeClock
	caregivers *fakeCaregiverRepo
	elders     *fakeElderRepo
	meds       *fakeMedicationRepo
	reminders  *fakeReminderRepo
	gateway    *fakeGateway
	alerter    *fakeAlerter
}

func newTestEnv() *testEnv {
	cfg := &config.Config{
		VoiceGracePeriod: 15 * time.Minute,
		SMSGracePeriod:   10 * time.Minute,
		TickInterval:     60 * time.Second,
		GatewayTimeout:   30 * time.Second,
	}

	l := logrus.New()
	l.SetOutput(io.Discard)

	env := &testEnv{
		clock:      &fakeClock{t: time.Date(2025, 6, 2, 8, 0, 0, 0, time.Local)},
		caregivers: &fakeCaregiverRepo{caregivers: make(map[int64]*models.Caregiver)},
		elders:     &fakeElderRepo{elders: make(map[int64]*models.Elder)},
		meds:       &fakeMedicationRepo{meds: make(map[int64]*models.Medication)},
		reminders:  newFakeReminderRepo(),
		gateway:    &fakeGateway{},
		alerter:    &fakeAlerter{},
	}

	env.svc = New(cfg, l,
		env.caregivers, env.elders, env.meds, env.reminders,
		env.gateway, env.alerter,
	)
	env.svc.now = env.clock.Now

	env.caregivers.caregivers[1] = &models.Caregiver{ID: 1, Name: "Priya", PhoneNumber: "9876500000", Email: "priya@example.com"}
	env.elders.elders[1] = &models.Elder{ID: 1, Name: "Ramesh", PhoneNumber: "9876512345", PreferredLanguage: models.LanguageHindi, CaregiverID: 1}

	return env
}

// addMedication registers a medication for the default elder.
func (env *testEnv) addMedication(id int64, name string, times ...string) *models.Medication {
	med := &models.Medication{
		ID:      id,
		ElderID: 1,
		Name:    name,
		Dosage:  "1 tablet",
		Times:   times,
		Active:  true,
	}
	env.meds.meds[id] = med
	return med
}

// at moves the clock to the given local time on the default test day.
func (env *testEnv) at(hour, minute int) {
	env.clock.Set(time.Date(2025, 6, 2, hour, minute, 0, 0, time.Local))
}
