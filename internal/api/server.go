package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/brightmed/medremind/internal/models"
	"github.com/brightmed/medremind/internal/repository"
	"github.com/brightmed/medremind/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server provides the management HTTP API around the reminder core.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	router *mux.Router
	db     Pinger
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger, db Pinger) *Server {
	s := &Server{svc: svc, logger: logger, router: mux.NewRouter(), db: db}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Caregivers
	s.router.HandleFunc("/api/caregivers", s.handleCreateCaregiver).Methods("POST")
	s.router.HandleFunc("/api/caregivers", s.handleListCaregivers).Methods("GET")
	s.router.HandleFunc("/api/caregivers/{id}", s.handleGetCaregiver).Methods("GET")

	// Elders
	s.router.HandleFunc("/api/elders", s.handleCreateElder).Methods("POST")
	s.router.HandleFunc("/api/elders", s.handleListElders).Methods("GET")
	s.router.HandleFunc("/api/elders/{id}", s.handleGetElder).Methods("GET")
	s.router.HandleFunc("/api/elders/{id}", s.handleUpdateElder).Methods("PUT")
	s.router.HandleFunc("/api/elders/{id}", s.handleDeleteElder).Methods("DELETE")

	// Medications
	s.router.HandleFunc("/api/medications", s.handleCreateMedication).Methods("POST")
	s.router.HandleFunc("/api/medications/elder/{elderId}", s.handleGetMedicationsByElder).Methods("GET")
	s.router.HandleFunc("/api/medications/{id}", s.handleGetMedication).Methods("GET")
	s.router.HandleFunc("/api/medications/{id}", s.handleUpdateMedication).Methods("PUT")
	s.router.HandleFunc("/api/medications/{id}", s.handleDeleteMedication).Methods("DELETE")
	s.router.HandleFunc("/api/medications/{id}/deactivate", s.handleDeactivateMedication).Methods("PUT")

	// Reminders
	s.router.HandleFunc("/api/reminders", s.handleListReminders).Methods("GET")
	s.router.HandleFunc("/api/reminders/today", s.handleTodayReminders).Methods("GET")
	s.router.HandleFunc("/api/reminders/stats", s.handleAdherenceStats).Methods("GET")
	s.router.HandleFunc("/api/reminders/elder/{elderId}", s.handleGetRemindersByElder).Methods("GET")
	s.router.HandleFunc("/api/reminders/{id}/confirm", s.handleConfirmReminder).Methods("PUT")

	// Operational endpoints
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError distinguishes a missing record from a store failure so
// callers see 404 versus 500.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, context string) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.WithError(err).Errorf("failed to %s", context)
	s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to %s", context))
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the named path variable and converts it to int64.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	if raw == "" {
		return 0, fmt.Errorf("missing %s in path", name)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// ---------------------------------------------------------------------------
// Caregivers
// ---------------------------------------------------------------------------

type createCaregiverRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	TelegramChatID *int64 `json:"telegram_chat_id"`
}

func (s *Server) handleCreateCaregiver(w http.ResponseWriter, r *http.Request) {
	var req createCaregiverRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Name == "" || req.PhoneNumber == "" {
		s.respondError(w, http.StatusBadRequest, "name and phone_number are required")
		return
	}

	caregiver, err := s.svc.Caregivers.Create(r.Context(), &models.Caregiver{
		Name:           req.Name,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		s.respondStoreError(w, err, "create caregiver")
		return
	}

	s.respondJSON(w, http.StatusCreated, caregiver)
}

func (s *Server) handleListCaregivers(w http.ResponseWriter, r *http.Request) {
	caregivers, err := s.svc.Caregivers.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "list caregivers")
		return
	}
	s.respondJSON(w, http.StatusOK, caregivers)
}

func (s *Server) handleGetCaregiver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid caregiver ID")
		return
	}

	caregiver, err := s.svc.Caregivers.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "get caregiver")
		return
	}
	s.respondJSON(w, http.StatusOK, caregiver)
}

// ---------------------------------------------------------------------------
// Elders
// ---------------------------------------------------------------------------

type elderRequest struct {
	Name              string          `json:"name"`
	PhoneNumber       string          `json:"phone_number"`
	PreferredLanguage models.Language `json:"preferred_language"`
	CaregiverID       int64           `json:"caregiver_id"`
	Age               *int            `json:"age"`
	Address           string          `json:"address"`
	EmergencyContact  string          `json:"emergency_contact"`
}

func (s *Server) handleCreateElder(w http.ResponseWriter, r *http.Request) {
	var req elderRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Name == "" || req.PhoneNumber == "" || req.CaregiverID == 0 {
		s.respondError(w, http.StatusBadRequest, "name, phone_number and caregiver_id are required")
		return
	}
	if req.PreferredLanguage != "" && !req.PreferredLanguage.Valid() {
		s.respondError(w, http.StatusBadRequest, "preferred_language must be one of: en, hi, mr")
		return
	}

	// Every elder must belong to an existing caregiver.
	if _, err := s.svc.Caregivers.GetByID(r.Context(), req.CaregiverID); err != nil {
		s.respondStoreError(w, err, "resolve caregiver")
		return
	}

	elder, err := s.svc.Elders.Create(r.Context(), &models.Elder{
		Name:              req.Name,
		PhoneNumber:       req.PhoneNumber,
		PreferredLanguage: req.PreferredLanguage,
		CaregiverID:       req.CaregiverID,
		Age:               req.Age,
		Address:           req.Address,
		EmergencyContact:  req.EmergencyContact,
	})
	if err != nil {
		s.respondStoreError(w, err, "create elder")
		return
	}

	s.respondJSON(w, http.StatusCreated, elder)
}

func (s *Server) handleListElders(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("caregiver_id"); raw != "" {
		caregiverID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "caregiver_id must be an integer")
			return
		}
		elders, err := s.svc.Elders.GetByCaregiverID(r.Context(), caregiverID)
		if err != nil {
			s.respondStoreError(w, err, "list elders")
			return
		}
		s.respondJSON(w, http.StatusOK, elders)
		return
	}

	elders, err := s.svc.Elders.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "list elders")
		return
	}
	s.respondJSON(w, http.StatusOK, elders)
}

func (s *Server) handleGetElder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid elder ID")
		return
	}

	elder, err := s.svc.Elders.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "get elder")
		return
	}
	s.respondJSON(w, http.StatusOK, elder)
}

func (s *Server) handleUpdateElder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid elder ID")
		return
	}

	var req elderRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.PreferredLanguage != "" && !req.PreferredLanguage.Valid() {
		s.respondError(w, http.StatusBadRequest, "preferred_language must be one of: en, hi, mr")
		return
	}

	elder, err := s.svc.Elders.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "get elder")
		return
	}

	if req.Name != "" {
		elder.Name = req.Name
	}
	if req.PhoneNumber != "" {
		elder.PhoneNumber = req.PhoneNumber
	}
	if req.PreferredLanguage != "" {
		elder.PreferredLanguage = req.PreferredLanguage
	}
	if req.Age != nil {
		elder.Age = req.Age
	}
	if req.Address != "" {
		elder.Address = req.Address
	}
	if req.EmergencyContact != "" {
		elder.EmergencyContact = req.EmergencyContact
	}

	elder, err = s.svc.Elders.Update(r.Context(), elder)
	if err != nil {
		s.respondStoreError(w, err, "update elder")
		return
	}
	s.respondJSON(w, http.StatusOK, elder)
}

func (s *Server) handleDeleteElder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid elder ID")
		return
	}

	if err := s.svc.Elders.DeleteCascade(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "delete elder")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "elder deleted"})
}

// ---------------------------------------------------------------------------
// Medications
// ---------------------------------------------------------------------------

type medicationRequest struct {
	ElderID      int64    `json:"elder_id"`
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Times        []string `json:"times"`
	StartDate    string   `json:"start_date"` // RFC 3339, optional
	EndDate      string   `json:"end_date"`   // RFC 3339, optional
	Instructions string   `json:"instructions"`
	Active       *bool    `json:"active"`
}

func (req *medicationRequest) apply(med *models.Medication) (ok bool, errMsg string) {
	if req.Name != "" {
		med.Name = req.Name
	}
	if req.Dosage != "" {
		med.Dosage = req.Dosage
	}
	if req.Times != nil {
		med.Times = req.Times
	}
	if req.Instructions != "" {
		med.Instructions = req.Instructions
	}
	if req.Active != nil {
		med.Active = *req.Active
	}
	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return false, "start_date must be RFC 3339"
		}
		med.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return false, "end_date must be RFC 3339"
		}
		med.EndDate = &t
	}
	if err := med.Validate(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (s *Server) handleCreateMedication(w http.ResponseWriter, r *http.Request) {
	var req medicationRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.ElderID == 0 {
		s.respondError(w, http.StatusBadRequest, "elder_id is required")
		return
	}

	if _, err := s.svc.Elders.GetByID(r.Context(), req.ElderID); err != nil {
		s.respondStoreError(w, err, "resolve elder")
		return
	}

	med := &models.Medication{ElderID: req.ElderID, Active: true}
	if ok, msg := req.apply(med); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	med, err := s.svc.Medications.Create(r.Context(), med)
	if err != nil {
		s.respondStoreError(w, err, "create medication")
		return
	}
	s.respondJSON(w, http.StatusCreated, med)
}

func (s *Server) handleGetMedicationsByElder(w http.ResponseWriter, r *http.Request) {
	elderID, err := pathID(r, "elderId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid elder ID")
		return
	}

	meds, err := s.svc.Medications.GetByElderID(r.Context(), elderID)
	if err != nil {
		s.respondStoreError(w, err, "list medications")
		return
	}
	s.respondJSON(w, http.StatusOK, meds)
}

func (s *Server) handleGetMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication ID")
		return
	}

	med, err := s.svc.Medications.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "get medication")
		return
	}
	s.respondJSON(w, http.StatusOK, med)
}

func (s *Server) handleUpdateMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication ID")
		return
	}

	var req medicationRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	med, err := s.svc.Medications.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "get medication")
		return
	}

	if ok, msg := req.apply(med); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	med, err = s.svc.Medications.Update(r.Context(), med)
	if err != nil {
		s.respondStoreError(w, err, "update medication")
		return
	}
	s.respondJSON(w, http.StatusOK, med)
}

func (s *Server) handleDeactivateMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication ID")
		return
	}

	if err := s.svc.Medications.Deactivate(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "deactivate medication")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "medication deactivated"})
}

func (s *Server) handleDeleteMedication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid medication ID")
		return
	}

	if err := s.svc.Medications.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "delete medication")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "medication deleted"})
}

// ---------------------------------------------------------------------------
// Reminders
// ---------------------------------------------------------------------------

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	logs, err := s.svc.Reminders.ListRecent(r.Context(), limit)
	if err != nil {
		s.respondStoreError(w, err, "list reminders")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"count": len(logs),
		"data":  logs,
	})
}

func (s *Server) handleTodayReminders(w http.ResponseWriter, r *http.Request) {
	logs, err := s.svc.Reminders.ListByDay(r.Context(), time.Now())
	if err != nil {
		s.respondStoreError(w, err, "list today's reminders")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"summary": service.Summarize(logs),
		"data":    logs,
	})
}

func (s *Server) handleAdherenceStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			days = v
		}
	}

	stats, err := s.svc.AdherenceStats(r.Context(), days)
	if err != nil {
		s.respondStoreError(w, err, "compute adherence stats")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"period": fmt.Sprintf("Last %d days", days),
		"data":   stats,
	})
}

func (s *Server) handleGetRemindersByElder(w http.ResponseWriter, r *http.Request) {
	elderID, err := pathID(r, "elderId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid elder ID")
		return
	}

	logs, err := s.svc.Reminders.ListByElder(r.Context(), elderID)
	if err != nil {
		s.respondStoreError(w, err, "list reminders")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"count": len(logs),
		"data":  logs,
	})
}

type confirmRequest struct {
	Method models.ConfirmationMethod `json:"method"`
}

func (s *Server) handleConfirmReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid reminder ID")
		return
	}

	// The body is optional; manual confirmation is the default for the
	// dashboard's "mark as taken" action.
	req := confirmRequest{Method: models.ConfirmationManual}
	if r.Body != nil && r.ContentLength > 0 {
		if ok, msg := s.decodeJSON(r, &req); !ok {
			s.respondError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if !req.Method.Valid() {
		s.respondError(w, http.StatusBadRequest, "method must be one of: call_disconnect, keypad, manual")
		return
	}

	log, err := s.svc.ConfirmMedication(r.Context(), id, req.Method)
	if err != nil {
		s.respondStoreError(w, err, "confirm reminder")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": "medication marked as taken",
		"data":    log,
	})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.WithError(err).Error("health check failed")
			s.respondError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
